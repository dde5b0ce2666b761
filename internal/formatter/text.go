package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

// TextFormatter formats schema as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(s *schema.Schema) error {
	for i, table := range s.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.formatTable(table)
	}
	return nil
}

func (f *TextFormatter) formatTable(table *schema.Table) {
	pkStr := ""
	if len(table.PrimaryKey) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(table.PrimaryKey, ", "))
	}
	existing := ""
	if table.Existing {
		existing = " [existing]"
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s%s\n", table.Name, pkStr, existing)

	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", formatColumn(col))
	}

	if len(table.Indexes) > 0 || len(table.UniqueIndexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range table.Indexes {
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), formatFlags(idx.Flags))
		}
		for _, idx := range table.UniqueIndexes {
			_, _ = fmt.Fprintf(f.writer, "    %s (%s) UNIQUE%s\n", idx.Name, strings.Join(idx.Columns, ", "), formatFlags(idx.Flags))
		}
	}

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s (%s)\n", rel.SourceColumn, rel.TargetTable, rel.TargetColumn, rel.Cardinality)
		}
	}
}

// formatColumn renders one column the way the text and overview outputs share
func formatColumn(col schema.Column) string {
	parts := []string{col.Name + ":", columnType(col)}
	parts = append(parts, columnConstraints(col)...)
	return strings.Join(parts, " ")
}

func columnType(col schema.Column) string {
	if col.SQLType != "" {
		return col.SQLType
	}
	return col.Type
}

func columnConstraints(col schema.Column) []string {
	var parts []string
	if col.Autoincrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	if col.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *col.Default))
	}
	if col.Collation != "" {
		parts = append(parts, "COLLATE "+col.Collation)
	}
	if col.Comment != "" {
		parts = append(parts, fmt.Sprintf("COMMENT %q", col.Comment))
	}
	return parts
}

func formatFlags(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	return " " + strings.ToUpper(strings.Join(flags, " "))
}
