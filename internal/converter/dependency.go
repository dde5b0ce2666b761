package converter

import (
	"sort"

	"github.com/deepakkuma24/atrocore/internal/metadata"
)

// ResolveDependencies returns the requested entities plus every entity they
// reach through relations, sorted by name. Cycles are fine. Requested names
// missing from the graph are kept but lead nowhere; relation targets missing
// from the graph are left out.
func ResolveDependencies(requested []string, graph *metadata.Graph) []string {
	visited := make(map[string]bool)
	for _, name := range requested {
		visit(name, graph, visited)
	}

	out := make([]string, 0, len(visited))
	for name := range visited {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func visit(name string, graph *metadata.Graph, visited map[string]bool) {
	if visited[name] {
		return
	}
	visited[name] = true

	if graph == nil {
		return
	}
	entity, ok := graph.Entities[name]
	if !ok {
		return
	}
	for _, rel := range entity.Relations {
		if _, ok := graph.Entities[rel.Entity]; !ok {
			continue
		}
		visit(rel.Entity, graph, visited)
	}
}

// filterGraph narrows a graph to the named entities without touching the input
func filterGraph(graph *metadata.Graph, names []string) *metadata.Graph {
	out := graph.Clone()
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	for name := range out.Entities {
		if !keep[name] {
			delete(out.Entities, name)
		}
	}
	return out
}
