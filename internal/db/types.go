package db

import (
	"context"
	"strings"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

// Introspector reads the current state of a database
type Introspector interface {
	Introspect(ctx context.Context) (*Snapshot, error)
}

const (
	varcharType = "varchar"
	cardinality = "N:1"
)

// StorageType maps a database column type back to the storage type the
// converter would have used for it. Unknown types are returned lower-cased.
func StorageType(dialect schema.Dialect, dataType, columnType string) string {
	dataType = strings.ToLower(strings.TrimSpace(dataType))
	columnType = strings.ToLower(strings.TrimSpace(columnType))

	if dialect == schema.MySQL && strings.HasPrefix(columnType, "tinyint(1)") {
		return "bool"
	}

	switch {
	case dataType == "boolean" || dataType == "bool":
		return "bool"
	case dataType == "tinyint" || dataType == "int" || dataType == "integer" || dataType == "mediumint" || dataType == "serial":
		return "int"
	case dataType == "bigint" || dataType == "bigserial":
		return "bigint"
	case dataType == "smallint" || dataType == "smallserial":
		return "smallint"
	case dataType == "float" || dataType == "double" || dataType == "double precision" ||
		dataType == "real" || dataType == "decimal" || dataType == "numeric":
		return "float"
	case dataType == "varchar" || dataType == "character varying" || dataType == "char" || dataType == "character":
		return varcharType
	case dataType == "text" || dataType == "tinytext" || dataType == "clob":
		return "text"
	case dataType == "mediumtext":
		return "mediumtext"
	case dataType == "longtext":
		return "longtext"
	case dataType == "date":
		return "date"
	case dataType == "datetime" || strings.HasPrefix(dataType, "timestamp"):
		return "datetime"
	case strings.HasPrefix(dataType, "time"):
		return "time"
	case strings.HasSuffix(dataType, "blob") || dataType == "bytea":
		return "blob"
	default:
		return dataType
	}
}

// splitSQLType splits a declared type such as VARCHAR(24) into its base name
// and length.
func splitSQLType(declared string) (string, int) {
	open := strings.IndexByte(declared, '(')
	if open < 0 {
		return strings.TrimSpace(declared), 0
	}
	base := strings.TrimSpace(declared[:open])
	rest := declared[open+1:]
	end := strings.IndexAny(rest, ",)")
	if end < 0 {
		return base, 0
	}
	n := 0
	for _, r := range strings.TrimSpace(rest[:end]) {
		if r < '0' || r > '9' {
			return base, 0
		}
		n = n*10 + int(r-'0')
	}
	return base, n
}

func splitIndexes(indexes []indexInfo) (plain, unique []schema.Index) {
	for _, idx := range indexes {
		if idx.unique {
			unique = append(unique, idx.Index)
		} else {
			plain = append(plain, idx.Index)
		}
	}
	return plain, unique
}

type indexInfo struct {
	schema.Index
	unique bool
}
