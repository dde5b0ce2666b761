// Package ddl hands a built schema description over to atlas, which owns the
// dialect specific DDL rendering and diffing.
package ddl

import (
	"fmt"
	"slices"
	"strings"

	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

const fulltextFlag = "fulltext"

// per-dialect atlas type names for the storage types the converter emits
var typeNames = map[schema.Dialect]map[string]string{
	schema.MySQL: {
		"bool":       mysql.TypeBool,
		"int":        mysql.TypeInt,
		"bigint":     mysql.TypeBigInt,
		"smallint":   mysql.TypeSmallInt,
		"float":      mysql.TypeDouble,
		"varchar":    mysql.TypeVarchar,
		"text":       mysql.TypeText,
		"mediumtext": mysql.TypeMediumText,
		"longtext":   mysql.TypeLongText,
		"date":       mysql.TypeDate,
		"datetime":   mysql.TypeDateTime,
		"time":       mysql.TypeTime,
		"blob":       mysql.TypeLongBlob,
	},
	schema.Postgres: {
		"bool":       postgres.TypeBoolean,
		"int":        postgres.TypeInteger,
		"bigint":     postgres.TypeBigInt,
		"smallint":   postgres.TypeSmallInt,
		"float":      postgres.TypeDouble,
		"varchar":    postgres.TypeVarChar,
		"text":       postgres.TypeText,
		"mediumtext": postgres.TypeText,
		"longtext":   postgres.TypeText,
		"date":       postgres.TypeDate,
		"datetime":   postgres.TypeTimestamp,
		"time":       postgres.TypeTime,
		"blob":       postgres.TypeBytea,
	},
	schema.SQLite: {
		"bool":       "boolean",
		"int":        "integer",
		"bigint":     "bigint",
		"smallint":   "smallint",
		"float":      "double precision",
		"varchar":    "varchar",
		"text":       "text",
		"mediumtext": "text",
		"longtext":   "text",
		"date":       "date",
		"datetime":   "datetime",
		"time":       "time",
		"blob":       "blob",
	},
}

var serialTypes = map[string]string{
	"int":      postgres.TypeSerial,
	"bigint":   postgres.TypeBigSerial,
	"smallint": postgres.TypeSmallSerial,
}

// ToAtlas converts a schema description into an atlas schema. The atlas
// schema is unnamed so generated statements are not schema qualified.
func ToAtlas(s *schema.Schema) (*atlas.Schema, error) {
	names, ok := typeNames[s.Dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect: %q", s.Dialect)
	}

	out := atlas.New("")
	for _, t := range s.Tables {
		table, err := convertTable(s.Dialect, names, t)
		if err != nil {
			return nil, fmt.Errorf("failed to convert table %s: %w", t.Name, err)
		}
		out.AddTables(table)
	}
	return out, nil
}

func convertTable(dialect schema.Dialect, names map[string]string, t *schema.Table) (*atlas.Table, error) {
	table := atlas.NewTable(t.Name)
	for _, c := range t.Columns {
		col, err := convertColumn(dialect, names, c)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		table.AddColumns(col)
	}

	columns := func(idx schema.Index) ([]*atlas.Column, error) {
		cols := make([]*atlas.Column, 0, len(idx.Columns))
		for _, name := range idx.Columns {
			c, ok := table.Column(name)
			if !ok {
				return nil, fmt.Errorf("index %s references unknown column %s", idx.Name, name)
			}
			cols = append(cols, c)
		}
		return cols, nil
	}

	if len(t.PrimaryKey) > 0 {
		cols, err := columns(schema.Index{Name: "PRIMARY", Columns: t.PrimaryKey})
		if err != nil {
			return nil, err
		}
		table.SetPrimaryKey(atlas.NewPrimaryKey(cols...))
	}

	for _, idx := range t.Indexes {
		fulltext := slices.Contains(idx.Flags, fulltextFlag)
		if fulltext && dialect != schema.MySQL {
			continue
		}
		cols, err := columns(idx)
		if err != nil {
			return nil, err
		}
		index := atlas.NewIndex(idx.Name).AddColumns(cols...)
		if fulltext {
			index.AddAttrs(&mysql.IndexType{T: mysql.IndexTypeFullText})
		}
		table.AddIndexes(index)
	}
	for _, idx := range t.UniqueIndexes {
		cols, err := columns(idx)
		if err != nil {
			return nil, err
		}
		table.AddIndexes(atlas.NewUniqueIndex(idx.Name).AddColumns(cols...))
	}
	return table, nil
}

func convertColumn(dialect schema.Dialect, names map[string]string, c schema.Column) (*atlas.Column, error) {
	typ, err := columnType(dialect, names, c)
	if err != nil {
		return nil, err
	}

	col := atlas.NewColumn(c.Name).SetType(typ).SetNull(!c.NotNull)
	if c.Default != nil && !c.Autoincrement {
		col.SetDefault(&atlas.Literal{V: defaultLiteral(dialect, c, *c.Default)})
	}
	if c.Comment != "" {
		col.SetComment(c.Comment)
	}
	if c.Collation != "" && dialect == schema.MySQL {
		col.SetCollation(c.Collation)
	}
	if c.Autoincrement {
		switch dialect {
		case schema.MySQL:
			col.AddAttrs(&mysql.AutoIncrement{})
		case schema.SQLite:
			col.AddAttrs(&sqlite.AutoIncrement{})
		}
	}
	return col, nil
}

func columnType(dialect schema.Dialect, names map[string]string, c schema.Column) (atlas.Type, error) {
	if dialect == schema.Postgres && c.Autoincrement {
		if t, ok := serialTypes[c.Type]; ok {
			return &postgres.SerialType{T: t}, nil
		}
	}

	name, ok := names[c.Type]
	if !ok {
		return parseType(dialect, c)
	}
	switch c.Type {
	case "bool":
		return &atlas.BoolType{T: name}, nil
	case "int", "bigint", "smallint":
		return &atlas.IntegerType{T: name}, nil
	case "float":
		return &atlas.FloatType{T: name}, nil
	case "varchar":
		return &atlas.StringType{T: name, Size: c.Length}, nil
	case "date", "datetime", "time":
		return &atlas.TimeType{T: name}, nil
	case "blob":
		return &atlas.BinaryType{T: name}, nil
	default:
		return &atlas.StringType{T: name}, nil
	}
}

// parseType falls back to the driver parser for raw types adopted from a
// live database (json columns, decimals and the like).
func parseType(dialect schema.Dialect, c schema.Column) (atlas.Type, error) {
	raw := strings.ToLower(c.SQLType)
	if raw == "" {
		raw = strings.ToLower(c.Type)
	}
	switch dialect {
	case schema.MySQL:
		return mysql.ParseType(raw)
	case schema.Postgres:
		return postgres.ParseType(raw)
	default:
		return sqlite.ParseType(raw)
	}
}

func defaultLiteral(dialect schema.Dialect, c schema.Column, v string) string {
	switch c.Type {
	case "bool":
		if dialect == schema.Postgres {
			if v == "0" || v == "" {
				return "false"
			}
			return "true"
		}
		return v
	case "int", "bigint", "smallint", "float":
		return v
	}
	if strings.HasPrefix(v, "'") && strings.HasSuffix(v, "'") && len(v) > 1 {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
