package formatter

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

// YAMLFormatter writes the schema as a YAML document, one key per table
type YAMLFormatter struct {
	writer io.Writer
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{writer: w}
}

type yamlSchema struct {
	Dialect string      `yaml:"dialect,omitempty"`
	Tables  []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name          string         `yaml:"name"`
	Entity        string         `yaml:"entity,omitempty"`
	Existing      bool           `yaml:"existing,omitempty"`
	Columns       []yamlColumn   `yaml:"columns"`
	PrimaryKey    []string       `yaml:"primaryKey,omitempty,flow"`
	Indexes       []yamlIndex    `yaml:"indexes,omitempty"`
	UniqueIndexes []yamlIndex    `yaml:"uniqueIndexes,omitempty"`
	Options       map[string]any `yaml:"options,omitempty"`
}

type yamlColumn struct {
	Name          string  `yaml:"name"`
	Type          string  `yaml:"type"`
	SQLType       string  `yaml:"sqlType,omitempty"`
	Length        int     `yaml:"length,omitempty"`
	NotNull       bool    `yaml:"notNull,omitempty"`
	Default       *string `yaml:"default,omitempty"`
	Autoincrement bool    `yaml:"autoincrement,omitempty"`
	Unique        bool    `yaml:"unique,omitempty"`
	Collation     string  `yaml:"collation,omitempty"`
	Comment       string  `yaml:"comment,omitempty"`
}

type yamlIndex struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns,flow"`
	Flags   []string `yaml:"flags,omitempty,flow"`
}

// Format writes the schema as YAML
func (f *YAMLFormatter) Format(s *schema.Schema) error {
	doc := yamlSchema{Dialect: string(s.Dialect), Tables: make([]yamlTable, 0, len(s.Tables))}
	for _, t := range s.Tables {
		doc.Tables = append(doc.Tables, toYAMLTable(t))
	}

	enc := yaml.NewEncoder(f.writer)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return enc.Close()
}

func toYAMLTable(t *schema.Table) yamlTable {
	out := yamlTable{
		Name:       t.Name,
		Entity:     t.Entity,
		Existing:   t.Existing,
		Columns:    make([]yamlColumn, 0, len(t.Columns)),
		PrimaryKey: t.PrimaryKey,
		Options:    t.Options,
	}
	for _, c := range t.Columns {
		out.Columns = append(out.Columns, yamlColumn{
			Name:          c.Name,
			Type:          c.Type,
			SQLType:       c.SQLType,
			Length:        c.Length,
			NotNull:       c.NotNull,
			Default:       c.Default,
			Autoincrement: c.Autoincrement,
			Unique:        c.Unique,
			Collation:     c.Collation,
			Comment:       c.Comment,
		})
	}
	for _, idx := range t.Indexes {
		out.Indexes = append(out.Indexes, yamlIndex(idx))
	}
	for _, idx := range t.UniqueIndexes {
		out.UniqueIndexes = append(out.UniqueIndexes, yamlIndex(idx))
	}
	return out
}
