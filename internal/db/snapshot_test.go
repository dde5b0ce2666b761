package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

func TestSnapshot(t *testing.T) {
	source := []*schema.Table{
		{Name: "note", Columns: []schema.Column{{Name: "id", Type: "varchar"}}},
		{Name: "account", Columns: []schema.Column{{Name: "id", Type: "varchar"}}, PrimaryKey: []string{"id"}},
	}
	s := NewSnapshot(schema.MySQL, 3072, source)

	assert.Equal(t, []string{"account", "note"}, s.ExistingTableNames())

	account, ok := s.ExistingTable("account")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, account.PrimaryKey)

	// callers get copies
	account.Columns[0].Name = "changed"
	again, _ := s.ExistingTable("account")
	assert.Equal(t, "id", again.Columns[0].Name)
	source[1].Columns[0].Name = "mutated"
	again, _ = s.ExistingTable("account")
	assert.Equal(t, "id", again.Columns[0].Name)

	_, ok = s.ExistingTable("missing")
	assert.False(t, ok)

	described := s.Schema()
	assert.Equal(t, schema.MySQL, described.Dialect)
	require.Len(t, described.Tables, 2)
	assert.True(t, described.Tables[0].Existing)
	assert.Empty(t, described.NewTables())
}

func TestOfflineSnapshot(t *testing.T) {
	s := NewOfflineSnapshot(schema.Postgres, 0)
	assert.Equal(t, schema.Postgres, s.Dialect())
	assert.Zero(t, s.MaxIndexKeyLength())
	assert.Empty(t, s.ExistingTableNames())
}

func TestStorageType(t *testing.T) {
	tests := []struct {
		dialect    schema.Dialect
		dataType   string
		columnType string
		want       string
	}{
		{schema.MySQL, "tinyint", "tinyint(1)", "bool"},
		{schema.MySQL, "tinyint", "tinyint(4)", "int"},
		{schema.MySQL, "int", "int(11)", "int"},
		{schema.MySQL, "varchar", "varchar(24)", "varchar"},
		{schema.MySQL, "longtext", "longtext", "longtext"},
		{schema.MySQL, "longblob", "longblob", "blob"},
		{schema.MySQL, "datetime", "datetime", "datetime"},
		{schema.Postgres, "character varying", "", "varchar"},
		{schema.Postgres, "timestamp without time zone", "", "datetime"},
		{schema.Postgres, "time without time zone", "", "time"},
		{schema.Postgres, "double precision", "", "float"},
		{schema.Postgres, "bytea", "", "blob"},
		{schema.Postgres, "boolean", "", "bool"},
		{schema.SQLite, "INTEGER", "INTEGER", "int"},
		{schema.SQLite, "CLOB", "CLOB", "text"},
		{schema.Postgres, "uuid", "", "uuid"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect)+"/"+tt.dataType, func(t *testing.T) {
			assert.Equal(t, tt.want, StorageType(tt.dialect, tt.dataType, tt.columnType))
		})
	}
}

func TestSplitSQLType(t *testing.T) {
	tests := []struct {
		in         string
		wantBase   string
		wantLength int
	}{
		{"VARCHAR(24)", "VARCHAR", 24},
		{"int(11)", "int", 11},
		{"decimal(10,2)", "decimal", 10},
		{"TEXT", "TEXT", 0},
		{"VARCHAR(", "VARCHAR", 0},
	}

	for _, tt := range tests {
		base, length := splitSQLType(tt.in)
		assert.Equal(t, tt.wantBase, base, tt.in)
		assert.Equal(t, tt.wantLength, length, tt.in)
	}
}
