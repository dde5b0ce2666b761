package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

// Index key limits of InnoDB with and without large prefixes
const (
	mysqlLargeKeyLength  = 3072
	mysqlLegacyKeyLength = 767
)

// MySQLIntrospector reads tables from a MySQL or MariaDB schema
type MySQLIntrospector struct {
	client     *MySQLClient
	schemaName string

	// Tables limits the snapshot to these tables; empty means all.
	Tables []string
}

// NewMySQLIntrospector creates a new MySQL introspector
func NewMySQLIntrospector(client *MySQLClient, schemaName string) *MySQLIntrospector {
	return &MySQLIntrospector{
		client:     client,
		schemaName: schemaName,
	}
}

// Introspect reads the server version and every table into a snapshot
func (e *MySQLIntrospector) Introspect(ctx context.Context) (*Snapshot, error) {
	var version string
	if err := e.client.GetDB().QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to read server version: %w", err)
	}

	tableNames, err := e.getTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	tables := make([]*schema.Table, 0, len(tableNames))
	for _, tableName := range tableNames {
		table, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		tables = append(tables, table)
	}

	return NewSnapshot(schema.MySQL, MySQLMaxKeyLength(version), tables), nil
}

// MySQLMaxKeyLength returns the index key byte limit for a server version
// string as reported by VERSION().
func MySQLMaxKeyLength(version string) int {
	minimum := "v5.7.7"
	if strings.Contains(strings.ToLower(version), "mariadb") {
		minimum = "v10.2.2"
	}

	end := strings.IndexFunc(version, func(r rune) bool {
		return r != '.' && (r < '0' || r > '9')
	})
	if end >= 0 {
		version = version[:end]
	}
	v := "v" + strings.TrimSuffix(version, ".")
	if !semver.IsValid(v) {
		return mysqlLegacyKeyLength
	}
	if semver.Compare(v, minimum) >= 0 {
		return mysqlLargeKeyLength
	}
	return mysqlLegacyKeyLength
}

func (e *MySQLIntrospector) getTableNames(ctx context.Context) ([]string, error) {
	if len(e.Tables) > 0 {
		return e.Tables, nil
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

func (e *MySQLIntrospector) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	pk, err := e.extractPrimaryKey(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	table.PrimaryKey = pk

	relations, err := e.extractRelations(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	table.Relations = relations

	indexes, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes, table.UniqueIndexes = splitIndexes(indexes)

	return table, nil
}

func (e *MySQLIntrospector) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.character_maximum_length,
			c.collation_name,
			c.extra,
			c.column_comment
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			col        schema.Column
			dataType   string
			nullable   string
			defaultVal sql.NullString
			charLength sql.NullInt64
			collation  sql.NullString
			extra      string
		)

		if err := rows.Scan(&col.Name, &dataType, &col.SQLType, &nullable, &defaultVal, &charLength, &collation, &extra, &col.Comment); err != nil {
			return nil, err
		}

		col.Type = StorageType(schema.MySQL, dataType, col.SQLType)
		col.NotNull = nullable == "NO"
		col.Collation = collation.String
		col.Autoincrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}
		if charLength.Valid {
			col.Length = int(charLength.Int64)
		} else {
			_, col.Length = splitSQLType(col.SQLType)
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (e *MySQLIntrospector) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return nil, err
		}
		pk = append(pk, colName)
	}

	return pk, rows.Err()
}

func (e *MySQLIntrospector) extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	query := `
		SELECT
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		rel := schema.Relation{Cardinality: cardinality}
		if err := rows.Scan(&rel.SourceColumn, &rel.TargetTable, &rel.TargetColumn); err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}

	return relations, rows.Err()
}

func (e *MySQLIntrospector) extractIndexes(ctx context.Context, tableName string) ([]indexInfo, error) {
	query := `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			s.index_type,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
		GROUP BY s.index_name, s.non_unique, s.index_type
		ORDER BY s.index_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []indexInfo
	for rows.Next() {
		var (
			idx         indexInfo
			isUnique    int
			indexType   string
			columnNames string
		)

		if err := rows.Scan(&idx.Name, &isUnique, &indexType, &columnNames); err != nil {
			return nil, err
		}

		idx.unique = isUnique == 1
		idx.Columns = strings.Split(columnNames, ",")
		if strings.EqualFold(indexType, "FULLTEXT") {
			idx.Flags = []string{"fulltext"}
		}

		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}
