package metadata

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RelationKind is the kind of a relation between two entities
type RelationKind string

const (
	ManyMany        RelationKind = "manyMany"
	BelongsTo       RelationKind = "belongsTo"
	HasMany         RelationKind = "hasMany"
	HasOne          RelationKind = "hasOne"
	HasChildren     RelationKind = "hasChildren"
	BelongsToParent RelationKind = "belongsToParent"
)

// Graph is the resolved entity metadata a schema is built from.
// It is read-only once resolved.
type Graph struct {
	Entities   map[string]*EntityDef
	FieldTypes map[string]FieldTypeDef
}

// EntityDef describes one entity
type EntityDef struct {
	Name          string
	Fields        []FieldDef
	Relations     []RelationDef
	Indexes       []IndexDef
	UniqueIndexes []UniqueIndexDef
	Params        map[string]any
}

// FieldDef describes one entity field
type FieldDef struct {
	Name          string  `yaml:"-"`
	Type          string  `yaml:"type"`
	DBType        string  `yaml:"dbType"`
	Len           *int    `yaml:"len"`
	Default       any     `yaml:"default"`
	NotNull       bool    `yaml:"notNull"`
	Unique        KeyFlag `yaml:"unique"`
	Index         KeyFlag `yaml:"index"`
	Autoincrement bool    `yaml:"autoincrement"`
	NotStorable   bool    `yaml:"notStorable"`
	PrimaryID     bool    `yaml:"primaryId"`
	FieldType     string  `yaml:"fieldType"`
}

// notStorableTypes are field types that never have a column of their own
var notStorableTypes = map[string]bool{
	"foreign": true,
}

// IsStorable reports whether the field is stored in its entity table
func (f FieldDef) IsStorable() bool {
	return !f.NotStorable && !notStorableTypes[f.Type]
}

// IsPrimaryID reports whether the field is part of the primary key
func (f FieldDef) IsPrimaryID() bool {
	return f.PrimaryID || f.Type == "id"
}

// StorageType returns dbType when set, otherwise the logical type
func (f FieldDef) StorageType() string {
	if f.DBType != "" {
		return f.DBType
	}
	return f.Type
}

// KeyFlag is either a plain switch (true) or the name of a shared key group
type KeyFlag struct {
	Enabled bool
	Group   string
}

// IsSet reports whether the flag asks for a key at all
func (k KeyFlag) IsSet() bool {
	return k.Enabled || k.Group != ""
}

// UnmarshalYAML accepts a bool or a group name
func (k *KeyFlag) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: key flag must be a bool or a string", node.Line)
	}
	if node.Tag == "!!bool" {
		return node.Decode(&k.Enabled)
	}
	if node.Tag == "!!null" {
		return nil
	}
	k.Group = node.Value
	return nil
}

// MarshalYAML mirrors UnmarshalYAML
func (k KeyFlag) MarshalYAML() (any, error) {
	if k.Group != "" {
		return k.Group, nil
	}
	return k.Enabled, nil
}

// RelationDef describes one relation of an entity
type RelationDef struct {
	Name              string
	Kind              RelationKind
	Entity            string
	RelationName      string
	MidKeys           []string
	AdditionalColumns []FieldDef
	Conditions        []Condition
}

// Condition is an extra join table column that is part of its unique key
type Condition struct {
	Name  string
	Value any
}

// IndexDef is an index declared on the entity
type IndexDef struct {
	Name    string   `yaml:"-"`
	Columns []string `yaml:"columns"`
	Flags   []string `yaml:"flags"`
	Type    string   `yaml:"type"`
	Key     string   `yaml:"key"`
}

// IsUnique reports whether the declared index is a unique one
func (i IndexDef) IsUnique() bool {
	return i.Type == "unique"
}

// UniqueIndexDef is an entity level named unique index
type UniqueIndexDef struct {
	Name    string
	Columns []string
}

// FieldTypeDef describes a metadata field type
type FieldTypeDef struct {
	ActualFields []string `yaml:"actualFields"`
}

// Field returns the field with the given name
func (e *EntityDef) Field(name string) (FieldDef, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// UnmarshalYAML decodes an entity keeping the declared order of fields,
// relations and indexes.
func (e *EntityDef) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Fields        yaml.Node      `yaml:"fields"`
		Relations     yaml.Node      `yaml:"relations"`
		Indexes       yaml.Node      `yaml:"indexes"`
		UniqueIndexes yaml.Node      `yaml:"uniqueIndexes"`
		Params        map[string]any `yaml:"params"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	e.Params = raw.Params

	fields, err := decodeFields(&raw.Fields)
	if err != nil {
		return fmt.Errorf("fields: %w", err)
	}
	e.Fields = fields

	err = eachPair(&raw.Relations, func(name string, value *yaml.Node) error {
		rel, err := decodeRelation(name, value)
		if err != nil {
			return err
		}
		e.Relations = append(e.Relations, rel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("relations: %w", err)
	}

	err = eachPair(&raw.Indexes, func(name string, value *yaml.Node) error {
		var idx IndexDef
		if err := value.Decode(&idx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		idx.Name = name
		e.Indexes = append(e.Indexes, idx)
		return nil
	})
	if err != nil {
		return fmt.Errorf("indexes: %w", err)
	}

	return eachPair(&raw.UniqueIndexes, func(name string, value *yaml.Node) error {
		var cols []string
		if err := value.Decode(&cols); err != nil {
			return fmt.Errorf("uniqueIndexes: %s: %w", name, err)
		}
		e.UniqueIndexes = append(e.UniqueIndexes, UniqueIndexDef{Name: name, Columns: cols})
		return nil
	})
}

func decodeFields(node *yaml.Node) ([]FieldDef, error) {
	var fields []FieldDef
	err := eachPair(node, func(name string, value *yaml.Node) error {
		var f FieldDef
		if err := value.Decode(&f); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		f.Name = name
		fields = append(fields, f)
		return nil
	})
	return fields, err
}

func decodeRelation(name string, node *yaml.Node) (RelationDef, error) {
	var raw struct {
		Type              RelationKind `yaml:"type"`
		Entity            string       `yaml:"entity"`
		RelationName      string       `yaml:"relationName"`
		MidKeys           []string     `yaml:"midKeys"`
		AdditionalColumns yaml.Node    `yaml:"additionalColumns"`
		Conditions        yaml.Node    `yaml:"conditions"`
	}
	if err := node.Decode(&raw); err != nil {
		return RelationDef{}, fmt.Errorf("%s: %w", name, err)
	}
	rel := RelationDef{
		Name:         name,
		Kind:         raw.Type,
		Entity:       raw.Entity,
		RelationName: raw.RelationName,
		MidKeys:      raw.MidKeys,
	}

	cols, err := decodeFields(&raw.AdditionalColumns)
	if err != nil {
		return RelationDef{}, fmt.Errorf("%s: additionalColumns: %w", name, err)
	}
	rel.AdditionalColumns = cols

	err = eachPair(&raw.Conditions, func(key string, value *yaml.Node) error {
		var v any
		if err := value.Decode(&v); err != nil {
			return err
		}
		rel.Conditions = append(rel.Conditions, Condition{Name: key, Value: v})
		return nil
	})
	if err != nil {
		return RelationDef{}, fmt.Errorf("%s: conditions: %w", name, err)
	}
	return rel, nil
}

// eachPair walks a mapping node in document order. Absent and null nodes are empty.
func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node == nil || node.Kind == 0 || node.Tag == "!!null" {
		return nil
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a copy of the graph that shares no maps with the original
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Entities:   make(map[string]*EntityDef, len(g.Entities)),
		FieldTypes: make(map[string]FieldTypeDef, len(g.FieldTypes)),
	}
	for name, e := range g.Entities {
		out.Entities[name] = e
	}
	for name, ft := range g.FieldTypes {
		out.FieldTypes[name] = ft
	}
	return out
}

// ActualFields returns the composite sub-fields of a metadata field type
func (g *Graph) ActualFields(fieldType string) []string {
	if fieldType == "" || g.FieldTypes == nil {
		return nil
	}
	return g.FieldTypes[fieldType].ActualFields
}
