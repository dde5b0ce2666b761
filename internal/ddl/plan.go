package ddl

import (
	"context"
	"fmt"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

// driver pairs the offline differ and planner of one dialect
type driver struct {
	diff atlas.Differ
	plan migrate.PlanApplier
}

var drivers = map[schema.Dialect]driver{
	schema.MySQL:    {diff: mysql.DefaultDiff, plan: mysql.DefaultPlan},
	schema.Postgres: {diff: postgres.DefaultDiff, plan: postgres.DefaultPlan},
	schema.SQLite:   {diff: sqlite.DefaultDiff, plan: sqlite.DefaultPlan},
}

// Plan returns the statements that turn current into desired. Nothing is
// executed; the statements are what an applier would run.
func Plan(ctx context.Context, dialect schema.Dialect, current, desired *schema.Schema) ([]string, error) {
	drv, ok := drivers[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect: %q", dialect)
	}
	if current == nil {
		current = &schema.Schema{Dialect: dialect}
	}

	from, err := ToAtlas(&schema.Schema{Dialect: dialect, Tables: current.Tables})
	if err != nil {
		return nil, fmt.Errorf("failed to convert current schema: %w", err)
	}
	to, err := ToAtlas(&schema.Schema{Dialect: dialect, Tables: desired.Tables})
	if err != nil {
		return nil, fmt.Errorf("failed to convert desired schema: %w", err)
	}

	changes, err := drv.diff.SchemaDiff(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to diff schemas: %w", err)
	}
	if len(changes) == 0 {
		return nil, nil
	}

	plan, err := drv.plan.PlanChanges(ctx, "schemasync", changes)
	if err != nil {
		return nil, fmt.Errorf("failed to plan changes: %w", err)
	}

	stmts := make([]string, 0, len(plan.Changes))
	for _, c := range plan.Changes {
		stmts = append(stmts, c.Cmd)
	}
	return stmts, nil
}

// CreateStatements returns the DDL for the tables the build created,
// treating every existing table as already present.
func CreateStatements(ctx context.Context, s *schema.Schema) ([]string, error) {
	current := &schema.Schema{Dialect: s.Dialect}
	for _, t := range s.Tables {
		if t.Existing {
			current.Tables = append(current.Tables, t)
		}
	}
	return Plan(ctx, s.Dialect, current, s)
}
