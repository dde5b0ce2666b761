package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

// Catalog queries cover the whole schema at once; rows are grouped per table
// afterwards.
const (
	postgresTablesQuery = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	postgresColumnsQuery = `
		SELECT
			c.table_name,
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES',
			c.column_default,
			c.character_maximum_length,
			COALESCE(c.collation_name, ''),
			COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass::oid, c.ordinal_position::int), '')
		FROM information_schema.columns c
		WHERE c.table_schema = $1
		ORDER BY c.table_name, c.ordinal_position`

	postgresPrimaryKeysQuery = `
		SELECT kcu.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.table_schema = tc.table_schema
		WHERE tc.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.table_name, kcu.ordinal_position`

	postgresForeignKeysQuery = `
		SELECT kcu.table_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.table_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'
		ORDER BY kcu.table_name, kcu.ordinal_position`

	postgresIndexesQuery = `
		SELECT
			t.relname,
			i.relname,
			ix.indisunique,
			array_agg(a.attname ORDER BY array_position(ix.indkey::int2[], a.attnum))
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r' AND n.nspname = $1 AND NOT ix.indisprimary
		GROUP BY t.relname, i.relname, ix.indisunique
		ORDER BY t.relname, i.relname`
)

// PostgresIntrospector reads tables from one PostgreSQL schema
type PostgresIntrospector struct {
	client *PostgresClient
	schema string

	// Tables limits the snapshot to these tables; empty means all.
	Tables []string
}

// NewPostgresIntrospector creates an introspector; an empty schema name means public
func NewPostgresIntrospector(client *PostgresClient, schemaName string) *PostgresIntrospector {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresIntrospector{
		client: client,
		schema: schemaName,
	}
}

type pgColumnRow struct {
	table  string
	column schema.Column
}

type pgKeyRow struct {
	table  string
	column string
}

type pgRelationRow struct {
	table    string
	relation schema.Relation
}

type pgIndexRow struct {
	table string
	index indexInfo
}

// Introspect reads the schema into a snapshot. PostgreSQL enforces no index
// key length limit the converter has to plan around.
func (e *PostgresIntrospector) Introspect(ctx context.Context) (*Snapshot, error) {
	names, err := e.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	tables := make(map[string]*schema.Table, len(names))
	for _, name := range names {
		tables[name] = &schema.Table{Name: name}
	}

	columns, err := collectRows(ctx, e, postgresColumnsQuery, scanPostgresColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	for _, row := range columns {
		if t, ok := tables[row.table]; ok {
			t.Columns = append(t.Columns, row.column)
		}
	}

	keys, err := collectRows(ctx, e, postgresPrimaryKeysQuery, func(row pgx.CollectableRow) (pgKeyRow, error) {
		var r pgKeyRow
		err := row.Scan(&r.table, &r.column)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract primary keys: %w", err)
	}
	for _, row := range keys {
		if t, ok := tables[row.table]; ok {
			t.PrimaryKey = append(t.PrimaryKey, row.column)
		}
	}

	relations, err := collectRows(ctx, e, postgresForeignKeysQuery, func(row pgx.CollectableRow) (pgRelationRow, error) {
		r := pgRelationRow{relation: schema.Relation{Cardinality: cardinality}}
		err := row.Scan(&r.table, &r.relation.SourceColumn, &r.relation.TargetTable, &r.relation.TargetColumn)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	for _, row := range relations {
		if t, ok := tables[row.table]; ok {
			t.Relations = append(t.Relations, row.relation)
		}
	}

	indexes, err := collectRows(ctx, e, postgresIndexesQuery, func(row pgx.CollectableRow) (pgIndexRow, error) {
		var r pgIndexRow
		err := row.Scan(&r.table, &r.index.Name, &r.index.unique, &r.index.Columns)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	grouped := make(map[string][]indexInfo)
	for _, row := range indexes {
		grouped[row.table] = append(grouped[row.table], row.index)
	}

	out := make([]*schema.Table, 0, len(names))
	for _, name := range names {
		t := tables[name]
		t.Indexes, t.UniqueIndexes = splitIndexes(grouped[name])
		out = append(out, t)
	}
	return NewSnapshot(schema.Postgres, 0, out), nil
}

func (e *PostgresIntrospector) tableNames(ctx context.Context) ([]string, error) {
	names, err := collectRows(ctx, e, postgresTablesQuery, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if len(e.Tables) == 0 {
		return names, nil
	}
	return slices.DeleteFunc(names, func(n string) bool {
		return !slices.Contains(e.Tables, n)
	}), nil
}

// collectRows runs a catalog query against the introspected schema
func collectRows[T any](ctx context.Context, e *PostgresIntrospector, query string, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := e.client.Querier().Query(ctx, query, e.schema)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, fn)
}

func scanPostgresColumn(row pgx.CollectableRow) (pgColumnRow, error) {
	var (
		r             pgColumnRow
		dataType      string
		nullable      bool
		defaultVal    *string
		charMaxLength *int
	)
	if err := row.Scan(&r.table, &r.column.Name, &dataType, &nullable, &defaultVal, &charMaxLength, &r.column.Collation, &r.column.Comment); err != nil {
		return r, err
	}

	col := &r.column
	col.Type = StorageType(schema.Postgres, dataType, "")
	col.SQLType = postgresSQLType(dataType, charMaxLength)
	col.NotNull = !nullable
	col.Default = defaultVal
	if charMaxLength != nil {
		col.Length = *charMaxLength
	}
	// serial columns show up as a sequence default
	if defaultVal != nil && strings.HasPrefix(*defaultVal, "nextval(") {
		col.Autoincrement = true
		col.Default = nil
	}
	return r, nil
}

// postgresSQLType renders the declared type the way the type mapper writes it
func postgresSQLType(dataType string, charMaxLength *int) string {
	switch dataType {
	case "character varying":
		if charMaxLength != nil {
			return fmt.Sprintf("VARCHAR(%d)", *charMaxLength)
		}
		return "VARCHAR"
	case "timestamp without time zone":
		return "TIMESTAMP(0) WITHOUT TIME ZONE"
	case "time without time zone":
		return "TIME(0) WITHOUT TIME ZONE"
	default:
		return strings.ToUpper(dataType)
	}
}
