package formatter

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

// MarkdownFormatter formats schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s *schema.Schema) error {
	_, _ = fmt.Fprintln(f.writer, "# Database Schema")
	_, _ = fmt.Fprintln(f.writer)
	if s.Dialect != "" {
		_, _ = fmt.Fprintf(f.writer, "Dialect: %s\n\n", s.Dialect)
	}

	for _, table := range s.Tables {
		f.FormatTable(table)
	}
	return nil
}

// FormatTable writes a single table section
func (f *MarkdownFormatter) FormatTable(table *schema.Table) {
	heading := table.Name
	if table.Existing {
		heading += " (existing)"
	}
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", heading)
	if table.Entity != "" {
		_, _ = fmt.Fprintf(f.writer, "Entity: `%s`\n\n", table.Entity)
	}

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, col := range table.Columns {
		constraints := columnConstraints(col)
		if slices.Contains(table.PrimaryKey, col.Name) {
			constraints = append([]string{"PK"}, constraints...)
		}
		if len(constraints) > 0 {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Name, columnType(col), strings.Join(constraints, ", "))
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, columnType(col))
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(table.Indexes) > 0 || len(table.UniqueIndexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range table.Indexes {
			_, _ = fmt.Fprintf(f.writer, "- %s on (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), markdownFlags(idx.Flags))
		}
		for _, idx := range table.UniqueIndexes {
			_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique%s\n", idx.Name, strings.Join(idx.Columns, ", "), markdownFlags(idx.Flags))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s (%s)\n",
				rel.SourceColumn,
				rel.TargetTable,
				rel.TargetColumn,
				rel.Cardinality)
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func markdownFlags(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	return ", " + strings.Join(flags, ", ")
}
