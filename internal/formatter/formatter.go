// Package formatter renders a built schema for people and tools to read.
package formatter

import (
	"fmt"
	"io"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

// Supported output formats
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatYAML     = "yaml"
)

// Formatter writes a schema somewhere
type Formatter interface {
	Format(s *schema.Schema) error
}

// New returns the single-stream formatter for format
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	case FormatYAML:
		return NewYAMLFormatter(w), nil
	}
	return nil, fmt.Errorf("unsupported format: %s (supported: text, markdown, yaml)", format)
}
