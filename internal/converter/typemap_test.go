package converter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepakkuma24/atrocore/internal/metadata"
	"github.com/deepakkuma24/atrocore/internal/schema"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestMapColumn(t *testing.T) {
	tests := []struct {
		name    string
		dialect schema.Dialect
		maxKey  int
		field   metadata.FieldDef
		narrow  bool
		want    schema.Column
	}{
		{
			name:    "varchar default length",
			dialect: schema.MySQL,
			maxKey:  3072,
			field:   metadata.FieldDef{Name: "name", Type: "varchar"},
			want: schema.Column{
				Name: "name", Type: "varchar", SQLType: "VARCHAR(255)", Length: 255,
				Collation: "utf8mb4_unicode_ci",
			},
		},
		{
			name:    "explicit length",
			dialect: schema.Postgres,
			field:   metadata.FieldDef{Name: "code", Type: "varchar", Len: intPtr(50), NotNull: true},
			want: schema.Column{
				Name: "code", Type: "varchar", SQLType: "VARCHAR(50)", Length: 50, NotNull: true,
			},
		},
		{
			name:    "int default length",
			dialect: schema.MySQL,
			maxKey:  3072,
			field:   metadata.FieldDef{Name: "sortOrder", Type: "int", Default: 5},
			want: schema.Column{
				Name: "sort_order", Type: "int", SQLType: "INT(11)", Length: 11, Default: strPtr("5"),
			},
		},
		{
			name:    "id maps to varchar 24",
			dialect: schema.MySQL,
			maxKey:  3072,
			field:   metadata.FieldDef{Name: "id", Type: "id"},
			want: schema.Column{
				Name: "id", Type: "varchar", SQLType: "VARCHAR(24)", Length: 24,
				Collation: "utf8mb4_unicode_ci",
			},
		},
		{
			name:    "foreign id narrowed under small key limit",
			dialect: schema.MySQL,
			maxKey:  767,
			field:   metadata.FieldDef{Name: "accountId", Type: "foreignId"},
			want: schema.Column{
				Name: "account_id", Type: "varchar", SQLType: "VARCHAR(24)", Length: 24,
				Narrow: true, Collation: "utf8_unicode_ci",
			},
		},
		{
			name:    "dbType overrides logical type",
			dialect: schema.SQLite,
			field:   metadata.FieldDef{Name: "amount", Type: "currency", DBType: "float"},
			want: schema.Column{
				Name: "amount", Type: "float", SQLType: "DOUBLE PRECISION",
			},
		},
		{
			name:    "bool without default becomes 0",
			dialect: schema.MySQL,
			maxKey:  3072,
			field:   metadata.FieldDef{Name: "deleted", Type: "bool"},
			want: schema.Column{
				Name: "deleted", Type: "bool", SQLType: "TINYINT(1)", Default: strPtr("0"),
			},
		},
		{
			name:    "bool true default becomes 1",
			dialect: schema.Postgres,
			field:   metadata.FieldDef{Name: "isActive", Type: "bool", Default: true},
			want: schema.Column{
				Name: "is_active", Type: "bool", SQLType: "BOOLEAN", Default: strPtr("1"),
			},
		},
		{
			name:    "text default kept as comment",
			dialect: schema.MySQL,
			maxKey:  3072,
			field:   metadata.FieldDef{Name: "description", Type: "text", Default: "none"},
			want: schema.Column{
				Name: "description", Type: "text", SQLType: "TEXT", Comment: "default={none}",
				Collation: "utf8mb4_unicode_ci",
			},
		},
		{
			name:    "jsonArray without default has no comment",
			dialect: schema.Postgres,
			field:   metadata.FieldDef{Name: "tags", Type: "jsonArray"},
			want: schema.Column{
				Name: "tags", Type: "jsonArray", SQLType: "TEXT",
			},
		},
		{
			name:    "autoincrement forces unique and not null",
			dialect: schema.Postgres,
			field:   metadata.FieldDef{Name: "number", Type: "int", Autoincrement: true, NotNull: false},
			want: schema.Column{
				Name: "number", Type: "int", SQLType: "SERIAL", Length: 11,
				Autoincrement: true, Unique: true, NotNull: true,
			},
		},
		{
			name:    "narrow requested by planner",
			dialect: schema.MySQL,
			maxKey:  767,
			field:   metadata.FieldDef{Name: "name", Type: "varchar"},
			narrow:  true,
			want: schema.Column{
				Name: "name", Type: "varchar", SQLType: "VARCHAR(255)", Length: 255,
				Narrow: true, Collation: "utf8_unicode_ci",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewTypeMapper(tt.dialect, "", tt.maxKey)
			require.NoError(t, err)

			got, err := m.MapColumn("Account", tt.field, tt.narrow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapColumnUnknownType(t *testing.T) {
	m, err := NewTypeMapper(schema.MySQL, "", 3072)
	require.NoError(t, err)

	_, err = m.MapColumn("Account", metadata.FieldDef{Name: "geo", Type: "point"}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownStorageType))

	var unknown *UnknownStorageTypeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Account", unknown.Entity)
	assert.Equal(t, "geo", unknown.Field)
	assert.Equal(t, "point", unknown.Type)
}

func TestMapColumnCharset(t *testing.T) {
	m, err := NewTypeMapper(schema.MySQL, "utf8", 3072)
	require.NoError(t, err)

	col, err := m.MapColumn("Account", metadata.FieldDef{Name: "name", Type: "varchar"}, false)
	require.NoError(t, err)
	assert.Empty(t, col.Collation)
}

func TestNewTypeMapperUnsupportedDialect(t *testing.T) {
	_, err := NewTypeMapper(schema.Dialect("oracle"), "", 0)
	assert.Error(t, err)
}
