package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

// MultiFileFormatter writes schema to multiple files in a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text", "markdown" or "yaml"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes an overview file plus one file per table
func (f *MultiFileFormatter) Format(s *schema.Schema) error {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeOverview(s); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, table := range s.Tables {
		if err := f.writeTableFile(table, s); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeOverview(s *schema.Schema) error {
	filename := filepath.Join(f.OutputDir, "_overview"+f.FileExtension())

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	sorted := make([]*schema.Table, len(s.Tables))
	copy(sorted, s.Tables)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	switch f.OutputFormat {
	case FormatMarkdown:
		f.writeMarkdownOverview(file, sorted)
	case FormatYAML:
		f.writeYAMLOverview(file, sorted)
	default:
		f.writeTextOverview(file, sorted)
	}
	return nil
}

func (f *MultiFileFormatter) writeMarkdownOverview(w io.Writer, tables []*schema.Table) {
	_, _ = fmt.Fprintf(w, "# Schema Overview\n\n")
	_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", f.FileExtension())
	_, _ = fmt.Fprintf(w, "## Tables\n\n")

	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "- **%s**", table.Name)
		if table.Existing {
			_, _ = fmt.Fprint(w, " (existing)")
		}
		if targets := relationTargets(table); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintln(w)
	}
}

func (f *MultiFileFormatter) writeTextOverview(w io.Writer, tables []*schema.Table) {
	_, _ = fmt.Fprintf(w, "SCHEMA OVERVIEW\n")
	_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", f.FileExtension())

	for _, table := range tables {
		_, _ = fmt.Fprint(w, table.Name)
		if table.Existing {
			_, _ = fmt.Fprint(w, " [existing]")
		}
		if targets := relationTargets(table); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ","))
		}
		_, _ = fmt.Fprintln(w)
	}
}

func (f *MultiFileFormatter) writeYAMLOverview(w io.Writer, tables []*schema.Table) {
	_, _ = fmt.Fprintln(w, "tables:")
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  - %s\n", table.Name)
	}
}

// writeTableFile writes a single table to its own file
func (f *MultiFileFormatter) writeTableFile(table *schema.Table, s *schema.Schema) error {
	filename := filepath.Join(f.OutputDir, table.Name+f.FileExtension())

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	incoming := findIncomingRelations(table.Name, s)

	switch f.OutputFormat {
	case FormatMarkdown:
		NewMarkdownFormatter(file).FormatTable(table)
		if len(incoming) > 0 {
			_, _ = fmt.Fprintf(file, "### Referenced by\n\n")
			for _, rel := range incoming {
				_, _ = fmt.Fprintf(file, "- %s.%s → %s (%s)\n", rel.SourceTable, rel.SourceColumn, rel.TargetColumn, rel.Cardinality)
			}
			_, _ = fmt.Fprintln(file)
		}
	case FormatYAML:
		single := &schema.Schema{Dialect: s.Dialect, Tables: []*schema.Table{table}}
		return NewYAMLFormatter(file).Format(single)
	default:
		NewTextFormatter(file).formatTable(table)
		if len(incoming) > 0 {
			_, _ = fmt.Fprintln(file)
			_, _ = fmt.Fprintln(file, "  REFERENCED BY:")
			for _, rel := range incoming {
				_, _ = fmt.Fprintf(file, "    %s.%s → %s (%s)\n", rel.SourceTable, rel.SourceColumn, rel.TargetColumn, rel.Cardinality)
			}
		}
	}

	return nil
}

// IncomingRelation represents a relationship pointing to this table
type IncomingRelation struct {
	SourceTable  string
	SourceColumn string
	TargetTable  string
	TargetColumn string
	Cardinality  string
}

func findIncomingRelations(tableName string, s *schema.Schema) []IncomingRelation {
	var incoming []IncomingRelation

	for _, table := range s.Tables {
		for _, rel := range table.Relations {
			if rel.TargetTable == tableName {
				incoming = append(incoming, IncomingRelation{
					SourceTable:  table.Name,
					SourceColumn: rel.SourceColumn,
					TargetTable:  rel.TargetTable,
					TargetColumn: rel.TargetColumn,
					Cardinality:  rel.Cardinality,
				})
			}
		}
	}

	return incoming
}

func relationTargets(table *schema.Table) []string {
	var targets []string
	for _, rel := range table.Relations {
		targets = append(targets, rel.TargetTable)
	}
	return targets
}

// FileExtension returns the extension used for files of the configured format
func (f *MultiFileFormatter) FileExtension() string {
	switch f.OutputFormat {
	case FormatMarkdown:
		return ".md"
	case FormatYAML:
		return ".yaml"
	}
	return ".txt"
}
