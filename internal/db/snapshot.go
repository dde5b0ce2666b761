package db

import (
	"sort"

	"github.com/deepakkuma24/atrocore/internal/schema"
)

// Snapshot is an immutable view of the tables of a database at one point in
// time. It satisfies the converter's introspector contract.
type Snapshot struct {
	dialect           schema.Dialect
	maxIndexKeyLength int
	tables            map[string]*schema.Table
	names             []string
}

// NewSnapshot creates a snapshot over the given tables. The tables are copied.
func NewSnapshot(dialect schema.Dialect, maxIndexKeyLength int, tables []*schema.Table) *Snapshot {
	s := &Snapshot{
		dialect:           dialect,
		maxIndexKeyLength: maxIndexKeyLength,
		tables:            make(map[string]*schema.Table, len(tables)),
	}
	for _, t := range tables {
		if _, dup := s.tables[t.Name]; !dup {
			s.names = append(s.names, t.Name)
		}
		s.tables[t.Name] = t.Clone()
	}
	sort.Strings(s.names)
	return s
}

// NewOfflineSnapshot describes an empty database, for builds without a
// connection.
func NewOfflineSnapshot(dialect schema.Dialect, maxIndexKeyLength int) *Snapshot {
	return NewSnapshot(dialect, maxIndexKeyLength, nil)
}

// Dialect returns the database dialect
func (s *Snapshot) Dialect() schema.Dialect {
	return s.dialect
}

// MaxIndexKeyLength returns the index key byte limit, 0 if there is none
func (s *Snapshot) MaxIndexKeyLength() int {
	return s.maxIndexKeyLength
}

// ExistingTableNames returns the table names in sorted order
func (s *Snapshot) ExistingTableNames() []string {
	return append([]string(nil), s.names...)
}

// ExistingTable returns a copy of the named table
func (s *Snapshot) ExistingTable(name string) (*schema.Table, bool) {
	t, ok := s.tables[name]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Schema returns the snapshot as a schema description, tables in name order
func (s *Snapshot) Schema() *schema.Schema {
	out := &schema.Schema{Dialect: s.dialect}
	for _, name := range s.names {
		t := s.tables[name].Clone()
		t.Existing = true
		out.Tables = append(out.Tables, t)
	}
	return out
}
