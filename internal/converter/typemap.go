package converter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deepakkuma24/atrocore/internal/metadata"
	"github.com/deepakkuma24/atrocore/internal/schema"
)

const (
	// Below this key length a wide-encoded identifier column cannot be
	// indexed together with its neighbours.
	wideIndexKeyLength = 3072

	idLength      = 24
	varcharLength = 255
	intLength     = 11

	wideCollation   = "utf8mb4_unicode_ci"
	narrowCollation = "utf8_unicode_ci"
	wideCharset     = "utf8mb4"
)

// dialectSpec holds what the mapper needs to know about one dialect
type dialectSpec struct {
	maxIdentifierLength int
	collations          bool
	types               map[string]string
	autoincrement       map[string]string
}

// Type templates take the column length as their only verb.
var dialects = map[schema.Dialect]dialectSpec{
	schema.MySQL: {
		maxIdentifierLength: 64,
		collations:          true,
		types: map[string]string{
			"bool":       "TINYINT(1)",
			"int":        "INT(%d)",
			"bigint":     "BIGINT",
			"smallint":   "SMALLINT",
			"float":      "DOUBLE PRECISION",
			"varchar":    "VARCHAR(%d)",
			"text":       "TEXT",
			"mediumtext": "MEDIUMTEXT",
			"longtext":   "LONGTEXT",
			"jsonArray":  "LONGTEXT",
			"jsonObject": "LONGTEXT",
			"array":      "LONGTEXT",
			"date":       "DATE",
			"datetime":   "DATETIME",
			"time":       "TIME",
			"blob":       "LONGBLOB",
		},
	},
	schema.Postgres: {
		maxIdentifierLength: 63,
		types: map[string]string{
			"bool":       "BOOLEAN",
			"int":        "INTEGER",
			"bigint":     "BIGINT",
			"smallint":   "SMALLINT",
			"float":      "DOUBLE PRECISION",
			"varchar":    "VARCHAR(%d)",
			"text":       "TEXT",
			"mediumtext": "TEXT",
			"longtext":   "TEXT",
			"jsonArray":  "TEXT",
			"jsonObject": "TEXT",
			"array":      "TEXT",
			"date":       "DATE",
			"datetime":   "TIMESTAMP(0) WITHOUT TIME ZONE",
			"time":       "TIME(0) WITHOUT TIME ZONE",
			"blob":       "BYTEA",
		},
		autoincrement: map[string]string{
			"int":      "SERIAL",
			"smallint": "SMALLSERIAL",
			"bigint":   "BIGSERIAL",
		},
	},
	schema.SQLite: {
		maxIdentifierLength: 64,
		types: map[string]string{
			"bool":       "BOOLEAN",
			"int":        "INTEGER",
			"bigint":     "BIGINT",
			"smallint":   "SMALLINT",
			"float":      "DOUBLE PRECISION",
			"varchar":    "VARCHAR(%d)",
			"text":       "CLOB",
			"mediumtext": "CLOB",
			"longtext":   "CLOB",
			"jsonArray":  "CLOB",
			"jsonObject": "CLOB",
			"array":      "CLOB",
			"date":       "DATE",
			"datetime":   "DATETIME",
			"time":       "TIME",
			"blob":       "BLOB",
		},
	},
}

// Large-text types cannot carry a SQL default.
var largeTextTypes = map[string]bool{
	"text":       true,
	"mediumtext": true,
	"longtext":   true,
	"array":      true,
	"jsonArray":  true,
	"jsonObject": true,
	"blob":       true,
}

func isIdentifierType(t string) bool {
	switch t {
	case "id", "foreignId", "foreignType":
		return true
	default:
		return false
	}
}

func isStringType(t string) bool {
	return t == "varchar" || largeTextTypes[t] && t != "blob"
}

func lookupDialect(d schema.Dialect) (dialectSpec, error) {
	spec, ok := dialects[d]
	if !ok {
		return dialectSpec{}, fmt.Errorf("unsupported dialect: %q", d)
	}
	return spec, nil
}

// TypeMapper translates field definitions into columns for one dialect
type TypeMapper struct {
	dialect           schema.Dialect
	spec              dialectSpec
	charset           string
	maxIndexKeyLength int
}

// NewTypeMapper creates a mapper. maxIndexKeyLength <= 0 means the dialect
// enforces no key length limit.
func NewTypeMapper(dialect schema.Dialect, charset string, maxIndexKeyLength int) (*TypeMapper, error) {
	spec, err := lookupDialect(dialect)
	if err != nil {
		return nil, err
	}
	return &TypeMapper{
		dialect:           dialect,
		spec:              spec,
		charset:           charset,
		maxIndexKeyLength: maxIndexKeyLength,
	}, nil
}

// Supports reports whether the storage type can be mapped
func (m *TypeMapper) Supports(storageType string) bool {
	_, ok := m.spec.types[storageType]
	return ok
}

// MaxIdentifierLength returns the dialect limit for index names
func (m *TypeMapper) MaxIdentifierLength() int {
	return m.spec.maxIdentifierLength
}

// narrowsIdentifiers reports whether identifier columns have to use the narrow
// encoding to stay indexable.
func (m *TypeMapper) narrowsIdentifiers() bool {
	return m.maxIndexKeyLength > 0 && m.maxIndexKeyLength < wideIndexKeyLength
}

// wideCharset reports whether string columns use a 4-byte encoding
func (m *TypeMapper) wideCharset() bool {
	return m.charset == "" || m.charset == wideCharset
}

// effectiveType resolves the storage type and default length of a field
func effectiveType(f metadata.FieldDef) (string, int) {
	switch {
	case f.DBType != "":
		return f.DBType, defaultLength(f.DBType, f.Type)
	case f.Type == "id" || f.Type == "foreignId":
		return "varchar", idLength
	case f.Type == "foreignType":
		return "varchar", varcharLength
	default:
		return f.Type, defaultLength(f.Type, f.Type)
	}
}

func defaultLength(storageType, logicalType string) int {
	switch {
	case storageType == "varchar" && (logicalType == "id" || logicalType == "foreignId"):
		return idLength
	case storageType == "varchar":
		return varcharLength
	case storageType == "int":
		return intLength
	default:
		return 0
	}
}

// MapColumn converts a storable field into a column. narrow forces the narrow
// encoding (oversized index keys); identifier types are narrowed on their own
// when the key length limit requires it.
func (m *TypeMapper) MapColumn(entity string, f metadata.FieldDef, narrow bool) (schema.Column, error) {
	storage, length := effectiveType(f)
	tmpl, ok := m.spec.types[storage]
	if !ok {
		return schema.Column{}, &UnknownStorageTypeError{Entity: entity, Field: f.Name, Type: storage}
	}
	if f.Len != nil {
		length = *f.Len
	}
	if isIdentifierType(f.Type) && m.narrowsIdentifiers() {
		narrow = true
	}

	col := schema.Column{
		Name:          ToUnderscore(f.Name),
		Type:          storage,
		Length:        length,
		NotNull:       f.NotNull,
		Autoincrement: f.Autoincrement,
		Narrow:        narrow && storage == "varchar",
	}

	switch {
	case largeTextTypes[f.Type] || largeTextTypes[storage]:
		if !isEmptyDefault(f.Default) {
			col.Comment = "default={" + formatDefault(f.Default) + "}"
		}
	case f.Type == "bool" || storage == "bool":
		v := strconv.Itoa(boolDefault(f.Default))
		col.Default = &v
	case f.Default != nil:
		v := formatDefault(f.Default)
		col.Default = &v
	}

	if f.Autoincrement {
		col.Unique = true
		col.NotNull = true
	}

	if m.spec.collations && isStringType(storage) {
		switch {
		case col.Narrow:
			col.Collation = narrowCollation
		case m.wideCharset():
			col.Collation = wideCollation
		}
	}

	col.SQLType = m.render(storage, tmpl, length, f.Autoincrement)
	return col, nil
}

func (m *TypeMapper) render(storage, tmpl string, length int, autoincrement bool) string {
	if autoincrement {
		if t, ok := m.spec.autoincrement[storage]; ok {
			return t
		}
	}
	if strings.Contains(tmpl, "%d") {
		return fmt.Sprintf(tmpl, length)
	}
	return tmpl
}

func isEmptyDefault(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == "" || t == "0"
	case int:
		return t == 0
	case float64:
		return t == 0
	default:
		return false
	}
}

// boolDefault coerces a requested default to an integer, absent means 0
func boolDefault(v any) int {
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func formatDefault(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "1"
		}
		return "0"
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
