package schema

// Dialect identifies the target database engine
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a user supplied name to a known dialect
func ParseDialect(name string) (Dialect, bool) {
	switch name {
	case "mysql", "mariadb":
		return MySQL, true
	case "postgres", "postgresql", "pgsql":
		return Postgres, true
	case "sqlite", "sqlite3":
		return SQLite, true
	default:
		return "", false
	}
}

// Schema represents a complete schema description
type Schema struct {
	Dialect Dialect
	Tables  []*Table
}

// Table represents a database table
type Table struct {
	Name          string
	Entity        string
	Columns       []Column
	PrimaryKey    []string
	Indexes       []Index
	UniqueIndexes []Index
	Options       map[string]any
	Relations     []Relation

	// Existing marks a table that was already present before the build
	// and was returned unchanged.
	Existing bool
}

// Column represents a table column
type Column struct {
	Name          string
	Type          string // storage type, e.g. varchar
	SQLType       string // dialect rendering, e.g. VARCHAR(255)
	Length        int
	NotNull       bool
	Default       *string
	Autoincrement bool
	Unique        bool
	Collation     string
	Comment       string
	Narrow        bool
}

// Relation represents a foreign key relationship
type Relation struct {
	TargetTable  string
	TargetColumn string
	SourceColumn string
	Cardinality  string // 1:1, 1:N, N:1
}

// Index represents a database index
type Index struct {
	Name    string
	Columns []string
	Flags   []string
}

// Table returns the table with the given name, or nil
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// HasTable reports whether the schema contains a table with the given name
func (s *Schema) HasTable(name string) bool {
	return s.Table(name) != nil
}

// NewTables returns the tables created by the build, skipping existing ones
func (s *Schema) NewTables() []*Table {
	var out []*Table
	for _, t := range s.Tables {
		if !t.Existing {
			out = append(out, t)
		}
	}
	return out
}

// Column returns the column with the given name, or nil
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// HasColumn reports whether the table has a column with the given name
func (t *Table) HasColumn(name string) bool {
	return t.Column(name) != nil
}

// ColumnNames returns column names in table order
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Index returns the index (plain or unique) with the given name, or nil
func (t *Table) Index(name string) *Index {
	for i := range t.Indexes {
		if t.Indexes[i].Name == name {
			return &t.Indexes[i]
		}
	}
	for i := range t.UniqueIndexes {
		if t.UniqueIndexes[i].Name == name {
			return &t.UniqueIndexes[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	c := *t
	c.Columns = make([]Column, len(t.Columns))
	for i, col := range t.Columns {
		if col.Default != nil {
			v := *col.Default
			col.Default = &v
		}
		c.Columns[i] = col
	}
	c.PrimaryKey = append([]string(nil), t.PrimaryKey...)
	c.Indexes = cloneIndexes(t.Indexes)
	c.UniqueIndexes = cloneIndexes(t.UniqueIndexes)
	c.Relations = append([]Relation(nil), t.Relations...)
	if t.Options != nil {
		c.Options = make(map[string]any, len(t.Options))
		for k, v := range t.Options {
			c.Options[k] = v
		}
	}
	return &c
}

func cloneIndexes(in []Index) []Index {
	if in == nil {
		return nil
	}
	out := make([]Index, len(in))
	for i, idx := range in {
		out[i] = Index{
			Name:    idx.Name,
			Columns: append([]string(nil), idx.Columns...),
			Flags:   append([]string(nil), idx.Flags...),
		}
	}
	return out
}
