// Package treo registers the schema migrations of the Treo core module.
// Importing it for side effects makes them available to migration.Default.
package treo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/deepakkuma24/atrocore/internal/migration"
)

// Module is the name the units are registered under
const Module = "Treo"

func init() {
	migration.Register(Module, "1.4.0", func() migration.Unit { return unitMeasureAndPortal{} })
	migration.Register(Module, "1.5.39", func() migration.Unit { return unitArrayValue{} })
}

// execAll runs statements best effort: a partly migrated database has to
// converge, so statements that no longer apply are skipped.
func execAll(ctx context.Context, db migration.DB, stmts ...string) {
	for _, stmt := range stmts {
		_, _ = db.ExecContext(ctx, stmt)
	}
}

// copyLinks moves (link, user) pairs of a dropped join table onto user.
// A missing join table means there is nothing to copy.
func copyLinks(ctx context.Context, db migration.DB, query, update string) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil
	}

	type link struct{ target, user sql.NullString }
	var links []link
	for rows.Next() {
		var l link
		if err := rows.Scan(&l.target, &l.user); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to read links: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range links {
		if _, err := db.ExecContext(ctx, update, l.target, l.user); err != nil {
			return fmt.Errorf("failed to update user %s: %w", l.user.String, err)
		}
	}
	return nil
}
