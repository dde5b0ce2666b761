package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

// SQLiteIntrospector reads tables from a SQLite database
type SQLiteIntrospector struct {
	client *SQLiteClient

	// Tables limits the snapshot to these tables; empty means all.
	Tables []string
}

// NewSQLiteIntrospector creates a new SQLite introspector
func NewSQLiteIntrospector(client *SQLiteClient) *SQLiteIntrospector {
	return &SQLiteIntrospector{
		client: client,
	}
}

// Introspect reads every table into a snapshot
func (e *SQLiteIntrospector) Introspect(ctx context.Context) (*Snapshot, error) {
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

	return NewSnapshot(schema.SQLite, 0, tables), nil
}

func (e *SQLiteIntrospector) getTableNames(ctx context.Context) ([]string, error) {
	if len(e.Tables) > 0 {
		return e.Tables, nil
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

func (e *SQLiteIntrospector) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, pk, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns
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

// extractColumns reads columns and the primary key from one table_info call
func (e *SQLiteIntrospector) extractColumns(ctx context.Context, tableName string) ([]schema.Column, []string, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName))

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type pkColumn struct {
		name  string
		order int
	}

	var (
		columns   []schema.Column
		pkColumns []pkColumn
	)
	for rows.Next() {
		var (
			cid          int
			name         string
			colType      string
			notNull, pk  int
			defaultValue sql.NullString
		)

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		base, length := splitSQLType(colType)
		col := schema.Column{
			Name:    name,
			Type:    StorageType(schema.SQLite, base, colType),
			SQLType: colType,
			Length:  length,
			NotNull: notNull == 1,
		}
		if defaultValue.Valid {
			col.Default = &defaultValue.String
		}
		if pk > 0 {
			pkColumns = append(pkColumns, pkColumn{name: name, order: pk})
		}

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	// table_info reports the position inside the key, not the column order
	pk := make([]string, len(pkColumns))
	for _, c := range pkColumns {
		if c.order <= len(pk) {
			pk[c.order-1] = c.name
		}
	}

	// a lone INTEGER primary key is an alias of the rowid
	if len(pk) == 1 {
		for i := range columns {
			if columns[i].Name == pk[0] && strings.EqualFold(columns[i].SQLType, "INTEGER") {
				columns[i].Autoincrement = true
			}
		}
	}

	if len(pk) == 0 {
		pk = nil
	}
	return columns, pk, nil
}

func (e *SQLiteIntrospector) extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(tableName))

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		relations = append(relations, schema.Relation{
			SourceColumn: fromCol,
			TargetTable:  targetTable,
			TargetColumn: toCol.String,
			Cardinality:  cardinality,
		})
	}

	return relations, rows.Err()
}

func (e *SQLiteIntrospector) extractIndexes(ctx context.Context, tableName string) ([]indexInfo, error) {
	query := fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(tableName))

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	type listed struct {
		name   string
		unique bool
	}
	var names []listed
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}

		// Skip indexes backing the primary key
		if origin == "pk" || strings.HasPrefix(name, "sqlite_autoindex") {
			continue
		}
		names = append(names, listed{name: name, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var indexes []indexInfo
	for _, l := range names {
		columns, err := e.indexColumns(ctx, l.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			continue
		}
		idx := indexInfo{unique: l.unique}
		idx.Name = l.name
		idx.Columns = columns
		indexes = append(indexes, idx)
	}

	return indexes, nil
}

func (e *SQLiteIntrospector) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(indexName))
	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}

	return columns, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
