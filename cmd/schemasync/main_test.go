package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/deepakkuma24/atrocore/internal/migration"
)

func TestParseEntityList(t *testing.T) {
	tests := []struct {
		name         string
		entitiesStr  string
		wantEntities []string
	}{
		{
			name:         "single entity",
			entitiesStr:  "Account",
			wantEntities: []string{"Account"},
		},
		{
			name:         "multiple entities",
			entitiesStr:  "Account,Contact,Note",
			wantEntities: []string{"Account", "Contact", "Note"},
		},
		{
			name:         "entities with spaces",
			entitiesStr:  "Account, Contact, Note",
			wantEntities: []string{"Account", "Contact", "Note"},
		},
		{
			name:         "empty string",
			entitiesStr:  "",
			wantEntities: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseEntityList(tt.entitiesStr)

			if len(got) != len(tt.wantEntities) {
				t.Errorf("parseEntityList() returned %d entities, want %d", len(got), len(tt.wantEntities))
				return
			}

			for i, e := range got {
				if e != tt.wantEntities[i] {
					t.Errorf("parseEntityList() entity[%d] = %s, want %s", i, e, tt.wantEntities[i])
				}
			}
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	doc := "Account:\n  fields:\n    id:\n      type: id\n    name:\n      type: varchar\n"
	if err := os.WriteFile(filepath.Join(dir, "entities.yaml"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "build", "--metadata", dir, "--format", "markdown", "--ddl", "--log-level", "error")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(out, "## account") {
		t.Errorf("output does not describe the account table:\n%s", out)
	}
	if !strings.Contains(out, "CREATE TABLE `account`") {
		t.Errorf("output does not contain the DDL:\n%s", out)
	}
}

// useMockDatabase routes the migrate command to a sqlmock database
func useMockDatabase(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mk, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	orig := openMigrationDB
	openMigrationDB = func(ctx context.Context, url string) (*sql.DB, error) { return sqlDB, nil }
	t.Cleanup(func() { openMigrationDB = orig })
	return mk
}

func TestMigrateCommand(t *testing.T) {
	useMockDatabase(t)

	var ran []string
	migration.Register("Pim", "1.1.0", func() migration.Unit {
		return migration.UnitFuncs{UpFunc: func(ctx context.Context, db migration.DB) error {
			ran = append(ran, "1.1.0")
			return nil
		}}
	})

	out, err := execute(t, "migrate", "--db-url", "mysql://crm", "--module", "Pim", "--from", "1.0.0", "--to", "1.2.0", "--log-level", "error")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if len(ran) != 1 {
		t.Errorf("ran %v, want [1.1.0]", ran)
	}
	if !strings.Contains(out, "migrated Pim from 1.0.0 to 1.2.0") {
		t.Errorf("unexpected output: %s", out)
	}

	useMockDatabase(t)
	out, err = execute(t, "migrate", "--db-url", "mysql://crm", "--module", "Unknown", "--from", "1.0.0", "--to", "1.2.0", "--log-level", "error")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out, "nothing to migrate for Unknown") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestMigrateCommandRunsTreoUnits(t *testing.T) {
	mk := useMockDatabase(t)
	mk.ExpectExec(`DROP TABLE array_value`).WillReturnResult(sqlmock.NewResult(0, 0))

	out, err := execute(t, "migrate", "--db-url", "mysql://crm", "--module", "Treo", "--from", "1.5.0", "--to", "1.5.39", "--log-level", "error")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out, "migrated Treo from 1.5.0 to 1.5.39") {
		t.Errorf("unexpected output: %s", out)
	}
	if err := mk.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestOpenMigrationDBRequiresMySQL(t *testing.T) {
	if _, err := openMigrationDB(context.Background(), "postgres://localhost/crm"); err == nil {
		t.Error("expected an error for a non-MySQL URL")
	}
}
