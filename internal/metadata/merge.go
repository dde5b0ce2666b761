package metadata

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// AppendMarker in a sequence makes the sequence extend the one it merges over
// instead of replacing it.
const AppendMarker = "__APPEND__"

// cloneNode deep-copies a yaml node tree
func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	return &c
}

// unwrap returns the root mapping of a document node
func unwrap(n *yaml.Node) *yaml.Node {
	if n != nil && n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		return n.Content[0]
	}
	return n
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// mergeNode merges src over dst and returns the result. Mappings merge key by
// key keeping dst's key order, new keys are appended; everything else in src
// replaces dst. Neither argument is modified.
func mergeNode(dst, src *yaml.Node) *yaml.Node {
	dst, src = unwrap(dst), unwrap(src)
	if src == nil {
		return cloneNode(dst)
	}
	if dst == nil {
		return stripAppendMarkers(cloneNode(src))
	}

	switch {
	case dst.Kind == yaml.MappingNode && src.Kind == yaml.MappingNode:
		out := cloneNode(dst)
		for i := 0; i+1 < len(src.Content); i += 2 {
			key, value := src.Content[i], src.Content[i+1]
			if pos := findKey(out, key.Value); pos >= 0 {
				out.Content[pos+1] = mergeNode(out.Content[pos+1], value)
				continue
			}
			out.Content = append(out.Content, cloneNode(key), stripAppendMarkers(cloneNode(value)))
		}
		return out
	case dst.Kind == yaml.SequenceNode && src.Kind == yaml.SequenceNode && hasAppendMarker(src):
		out := cloneNode(dst)
		for _, item := range src.Content {
			if isAppendMarker(item) {
				continue
			}
			out.Content = append(out.Content, cloneNode(item))
		}
		return out
	default:
		return stripAppendMarkers(cloneNode(src))
	}
}

func isAppendMarker(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Value == AppendMarker
}

func hasAppendMarker(seq *yaml.Node) bool {
	for _, item := range seq.Content {
		if isAppendMarker(item) {
			return true
		}
	}
	return false
}

func stripAppendMarkers(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.SequenceNode {
		kept := n.Content[:0]
		for _, item := range n.Content {
			if !isAppendMarker(item) {
				kept = append(kept, item)
			}
		}
		n.Content = kept
	}
	for _, child := range n.Content {
		stripAppendMarkers(child)
	}
	return n
}

// findKey returns the index of key in a mapping's content, or -1
func findKey(m *yaml.Node, key string) int {
	if m == nil || m.Kind != yaml.MappingNode {
		return -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ".") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// lookup returns the node at a dotted path, or nil
func lookup(root *yaml.Node, path string) *yaml.Node {
	n := unwrap(root)
	for _, key := range splitPath(path) {
		pos := findKey(n, key)
		if pos < 0 {
			return nil
		}
		n = n.Content[pos+1]
	}
	return n
}

// removePath deletes the key at a dotted path in place. Missing paths are ignored.
func removePath(root *yaml.Node, path string) bool {
	parts := splitPath(path)
	if len(parts) == 0 {
		return false
	}
	parent := lookup(root, strings.Join(parts[:len(parts)-1], "."))
	pos := findKey(parent, parts[len(parts)-1])
	if pos < 0 {
		return false
	}
	parent.Content = append(parent.Content[:pos], parent.Content[pos+2:]...)
	return true
}

// fillPath builds a mapping tree holding value at the dotted path
func fillPath(path string, value *yaml.Node) *yaml.Node {
	parts := splitPath(path)
	node := cloneNode(value)
	for i := len(parts) - 1; i >= 0; i-- {
		m := newMapping()
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: parts[i]}, node)
		node = m
	}
	return node
}

// collectPaths reads an unset/unsetIgnore section. Both a sequence of full
// dotted paths and a mapping of entity to sub-paths are accepted.
func collectPaths(n *yaml.Node) []string {
	n = unwrap(n)
	if n == nil {
		return nil
	}
	var out []string
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value != "" && n.Value != AppendMarker {
			out = append(out, n.Value)
		}
	case yaml.SequenceNode:
		for _, item := range n.Content {
			out = append(out, collectPaths(item)...)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			prefix := n.Content[i].Value
			for _, sub := range collectPaths(n.Content[i+1]) {
				out = append(out, prefix+"."+sub)
			}
		}
	}
	return out
}
