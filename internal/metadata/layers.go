package metadata

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Reserved top-level keys of a metadata document
const (
	KeyFieldTypes  = "fieldTypes"
	KeyUnset       = "unset"
	KeyUnsetIgnore = "unsetIgnore"
)

// ErrInvalidDocument is returned when a metadata document is not a mapping
var ErrInvalidDocument = errors.New("metadata document must be a mapping")

// Fragment is one override document, usually a custom table file
type Fragment struct {
	Name string
	Node *yaml.Node
}

// Layers is the explicit override stack a graph is resolved from: the base
// definitions, fragments applied in order (later wins), paths to prune, and
// paths protected from pruning.
//
// unset and unsetIgnore sections found inside any document are appended to
// Prune and Protect respectively.
type Layers struct {
	Base      *yaml.Node
	Overrides []Fragment
	Prune     []string
	Protect   []string
}

// ParseDocument parses a YAML or JSON metadata document
func ParseDocument(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	root := unwrap(&doc)
	if root == nil || root.Kind == 0 {
		return newMapping(), nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, ErrInvalidDocument
	}
	return root, nil
}

// Merged returns the fully merged document before pruning
func (l Layers) Merged() (*yaml.Node, error) {
	merged := unwrap(l.Base)
	if merged == nil {
		merged = newMapping()
	}
	if merged.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("base: %w", ErrInvalidDocument)
	}
	merged = cloneNode(merged)
	for _, f := range l.Overrides {
		node := unwrap(f.Node)
		if node == nil {
			continue
		}
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("fragment %s: %w", f.Name, ErrInvalidDocument)
		}
		merged = mergeNode(merged, node)
	}
	return merged, nil
}

// Resolve applies the override stack and decodes the result into a Graph.
// The layers themselves are left untouched.
func (l Layers) Resolve() (*Graph, error) {
	merged, err := l.Merged()
	if err != nil {
		return nil, err
	}

	prune := append(append([]string(nil), l.Prune...), collectPaths(lookup(merged, KeyUnset))...)
	protect := append(append([]string(nil), l.Protect...), collectPaths(lookup(merged, KeyUnsetIgnore))...)
	removePath(merged, KeyUnset)
	removePath(merged, KeyUnsetIgnore)

	var protected *yaml.Node
	for _, path := range protect {
		if value := lookup(merged, path); value != nil {
			protected = mergeNode(protected, fillPath(path, value))
		}
	}

	for _, path := range prune {
		removePath(merged, path)
	}

	if protected != nil {
		merged = mergeNode(merged, protected)
	}

	return decodeGraph(merged)
}

func decodeGraph(root *yaml.Node) (*Graph, error) {
	g := &Graph{
		Entities:   make(map[string]*EntityDef),
		FieldTypes: make(map[string]FieldTypeDef),
	}
	err := eachPair(root, func(name string, value *yaml.Node) error {
		switch name {
		case KeyFieldTypes:
			return value.Decode(&g.FieldTypes)
		case KeyUnset, KeyUnsetIgnore:
			return nil
		}
		e := &EntityDef{}
		if err := value.Decode(e); err != nil {
			return fmt.Errorf("entity %s: %w", name, err)
		}
		e.Name = name
		g.Entities[name] = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}
