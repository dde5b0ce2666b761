package converter

import (
	"slices"

	"github.com/deepakkuma24/atrocore/internal/metadata"
	"github.com/deepakkuma24/atrocore/internal/schema"
)

// Bytes per character of a string key column
const (
	wideBytes   = 4
	narrowBytes = 3
)

const fulltextFlag = "fulltext"

// Limits are the dialect limits the planner works against
type Limits struct {
	// MaxIdentifierLength caps index names.
	MaxIdentifierLength int
	// MaxIndexKeyLength caps the byte length of one index key; 0 disables the check.
	MaxIndexKeyLength int
	// WideCharset is true when string columns are stored with 4 bytes per character.
	WideCharset bool
	// Supports reports whether a storage type maps to a column. Fields it
	// rejects get no column and therefore no index. Nil accepts every type.
	Supports func(storageType string) bool
}

// hasColumn reports whether the field ends up as a column of its table
func (l Limits) hasColumn(f metadata.FieldDef) bool {
	if !f.IsStorable() {
		return false
	}
	if l.Supports == nil {
		return true
	}
	storage, _ := effectiveType(f)
	return l.Supports(storage)
}

func (l Limits) narrowsIdentifiers() bool {
	return l.MaxIndexKeyLength > 0 && l.MaxIndexKeyLength < wideIndexKeyLength
}

// IndexPlan is the planner's result for one entity table
type IndexPlan struct {
	Indexes       []schema.Index
	UniqueIndexes []schema.Index
	// Narrow lists the columns that must use the narrow encoding so that
	// their indexes fit the key length limit.
	Narrow map[string]bool
}

type indexKey struct {
	name   string
	unique bool
}

type planner struct {
	table  string
	entity *metadata.EntityDef
	graph  *metadata.Graph
	limits Limits

	plan    IndexPlan
	names   map[string][]string
	groups  map[indexKey][]string
	grouped []indexKey
}

// PlanIndexes derives the indexes and unique indexes of an entity table:
// field level index and unique flags first, in field order, then declared
// indexes and declared unique indexes.
func PlanIndexes(table string, entity *metadata.EntityDef, graph *metadata.Graph, limits Limits) (IndexPlan, error) {
	p := &planner{
		table:  table,
		entity: entity,
		graph:  graph,
		limits: limits,
		plan:   IndexPlan{Narrow: make(map[string]bool)},
		names:  make(map[string][]string),
		groups: make(map[indexKey][]string),
	}

	if err := p.fieldKeys(); err != nil {
		return IndexPlan{}, err
	}
	if err := p.declaredIndexes(); err != nil {
		return IndexPlan{}, err
	}
	if err := p.declaredUniqueIndexes(); err != nil {
		return IndexPlan{}, err
	}
	if err := p.checkKeyLengths(); err != nil {
		return IndexPlan{}, err
	}
	return p.plan, nil
}

func (p *planner) fieldKeys() error {
	for _, f := range p.entity.Fields {
		if f.IsPrimaryID() || !p.limits.hasColumn(f) {
			continue
		}
		column := ToUnderscore(f.Name)

		switch {
		case f.Unique.Group != "":
			p.addToGroup(indexKey{name: f.Unique.Group, unique: true}, column)
		case f.Unique.Enabled || f.Autoincrement:
			cols := []string{column}
			if !f.Autoincrement {
				cols = append(cols, DeletedColumn)
			}
			for _, actual := range p.graph.ActualFields(f.FieldType) {
				if actual == "" {
					continue
				}
				cols = append(cols, column+"_"+ToUnderscore(actual))
			}
			name := GenerateIdentifierName(uniquePrefix, p.table, cols, p.limits.MaxIdentifierLength)
			if err := p.add(schema.Index{Name: name, Columns: cols}, true); err != nil {
				return err
			}
		}

		switch {
		case f.Index.Group != "":
			p.addToGroup(indexKey{name: f.Index.Group}, column)
		case f.Index.Enabled:
			name := GenerateIndexName(column, false, p.limits.MaxIdentifierLength)
			if err := p.add(schema.Index{Name: name, Columns: []string{column}}, false); err != nil {
				return err
			}
		}
	}

	for _, key := range p.grouped {
		idx := schema.Index{
			Name:    GenerateIndexName(key.name, key.unique, p.limits.MaxIdentifierLength),
			Columns: p.groups[key],
		}
		if err := p.add(idx, key.unique); err != nil {
			return err
		}
	}
	return nil
}

func (p *planner) addToGroup(key indexKey, column string) {
	if _, ok := p.groups[key]; !ok {
		p.grouped = append(p.grouped, key)
	}
	p.groups[key] = append(p.groups[key], column)
}

func (p *planner) declaredIndexes() error {
	for _, def := range p.entity.Indexes {
		unique := def.IsUnique()
		name := def.Key
		if name == "" {
			name = GenerateIndexName(def.Name, unique, p.limits.MaxIdentifierLength)
		}
		cols := toUnderscoreAll(def.Columns)
		if len(cols) == 0 {
			cols = []string{ToUnderscore(def.Name)}
		}
		idx := schema.Index{
			Name:    name,
			Columns: cols,
			Flags:   append([]string(nil), def.Flags...),
		}
		if err := p.add(idx, unique); err != nil {
			return err
		}
	}
	return nil
}

func (p *planner) declaredUniqueIndexes() error {
	for _, def := range p.entity.UniqueIndexes {
		idx := schema.Index{
			Name:    GenerateIndexName(def.Name, true, p.limits.MaxIdentifierLength),
			Columns: toUnderscoreAll(def.Columns),
		}
		if err := p.add(idx, true); err != nil {
			return err
		}
	}
	return nil
}

// add appends an index unless an identical one exists. Plain and unique
// indexes share one name space.
func (p *planner) add(idx schema.Index, unique bool) error {
	if cols, ok := p.names[idx.Name]; ok {
		if slices.Equal(cols, idx.Columns) {
			return nil
		}
		return &DuplicateIndexError{Table: p.table, Index: idx.Name}
	}
	p.names[idx.Name] = idx.Columns
	if unique {
		p.plan.UniqueIndexes = append(p.plan.UniqueIndexes, idx)
	} else {
		p.plan.Indexes = append(p.plan.Indexes, idx)
	}
	return nil
}

func (p *planner) checkKeyLengths() error {
	if p.limits.MaxIndexKeyLength <= 0 {
		return nil
	}
	all := append(append([]schema.Index(nil), p.plan.Indexes...), p.plan.UniqueIndexes...)
	for _, idx := range all {
		if slices.Contains(idx.Flags, fulltextFlag) {
			continue
		}
		if p.keyLength(idx.Columns) <= p.limits.MaxIndexKeyLength {
			continue
		}
		for _, col := range idx.Columns {
			if p.isVarchar(col) {
				p.plan.Narrow[col] = true
			}
		}
		if n := p.keyLength(idx.Columns); n > p.limits.MaxIndexKeyLength {
			return &IndexKeyTooLongError{
				Table:   p.table,
				Index:   idx.Name,
				Columns: idx.Columns,
				Length:  n,
				Max:     p.limits.MaxIndexKeyLength,
			}
		}
	}
	return nil
}

func (p *planner) field(column string) (metadata.FieldDef, bool) {
	for _, f := range p.entity.Fields {
		if ToUnderscore(f.Name) == column {
			return f, true
		}
	}
	return metadata.FieldDef{}, false
}

func (p *planner) isVarchar(column string) bool {
	f, ok := p.field(column)
	if !ok {
		return false
	}
	storage, _ := effectiveType(f)
	return storage == "varchar"
}

// keyLength estimates the byte length of an index key. Columns that are not
// fields of the entity count as zero.
func (p *planner) keyLength(columns []string) int {
	total := 0
	for _, col := range columns {
		f, ok := p.field(col)
		if !ok {
			continue
		}
		storage, length := effectiveType(f)
		if f.Len != nil {
			length = *f.Len
		}
		switch storage {
		case "varchar":
			bytes := wideBytes
			if !p.limits.WideCharset || p.plan.Narrow[col] || isIdentifierType(f.Type) && p.limits.narrowsIdentifiers() {
				bytes = narrowBytes
			}
			total += length * bytes
		case "int", "float", "time":
			total += 4
		case "bigint", "datetime":
			total += 8
		case "smallint":
			total += 2
		case "bool":
			total++
		case "date":
			total += 3
		}
	}
	return total
}
