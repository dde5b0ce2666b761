// Package converter derives a relational schema description from entity
// metadata.
package converter

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/deepakkuma24/atrocore/internal/metadata"
	"github.com/deepakkuma24/atrocore/internal/schema"
)

// ErrNoIntrospector is returned when Process is called without a database view
var ErrNoIntrospector = errors.New("introspector is required")

// Introspector is the read-only view of the target database the build is
// reconciled against.
type Introspector interface {
	Dialect() schema.Dialect
	// MaxIndexKeyLength returns the index key byte limit, 0 if there is none.
	MaxIndexKeyLength() int
	ExistingTableNames() []string
	ExistingTable(name string) (*schema.Table, bool)
}

// Assembler builds schema descriptions. It holds configuration only and can
// be shared between goroutines.
type Assembler struct {
	logger  *zap.Logger
	charset string
}

// Option configures an Assembler
type Option func(*Assembler)

// WithLogger sets the logger used for build progress and skipped fields
func WithLogger(logger *zap.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithCharset sets the table charset. Empty and utf8mb4 mean 4 bytes per
// character.
func WithCharset(charset string) Option {
	return func(a *Assembler) {
		a.charset = charset
	}
}

// NewAssembler creates an Assembler
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Process resolves the override stack and builds the schema. See ProcessGraph.
func (a *Assembler) Process(layers metadata.Layers, snapshot Introspector, entities []string) (*schema.Schema, error) {
	graph, err := layers.Resolve()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve metadata: %w", err)
	}
	return a.ProcessGraph(graph, snapshot, entities)
}

// ProcessGraph builds the schema for the graph. With a non-empty entity list
// only those entities and the entities they reach through relations are
// built. Tables already known to the snapshot are returned unchanged and
// marked Existing. The graph is not modified.
func (a *Assembler) ProcessGraph(graph *metadata.Graph, snapshot Introspector, entities []string) (*schema.Schema, error) {
	if snapshot == nil {
		return nil, ErrNoIntrospector
	}
	if graph == nil {
		graph = &metadata.Graph{}
	}

	mapper, err := NewTypeMapper(snapshot.Dialect(), a.charset, snapshot.MaxIndexKeyLength())
	if err != nil {
		return nil, err
	}

	if len(entities) > 0 {
		closure := ResolveDependencies(entities, graph)
		a.logger.Debug("Resolved entity dependencies",
			zap.Strings("requested", entities),
			zap.Strings("closure", closure))
		graph = filterGraph(graph, closure)
	}

	ctx := &buildContext{
		graph:    graph,
		snapshot: snapshot,
		mapper:   mapper,
		limits: Limits{
			MaxIdentifierLength: mapper.MaxIdentifierLength(),
			MaxIndexKeyLength:   snapshot.MaxIndexKeyLength(),
			WideCharset:         mapper.wideCharset(),
			Supports:            mapper.Supports,
		},
		logger: a.logger,
		tables: make(map[string]*schema.Table),
	}

	names := make([]string, 0, len(graph.Entities))
	for name := range graph.Entities {
		names = append(names, name)
	}
	sort.Strings(names)

	a.logger.Info("Building entity tables",
		zap.String("dialect", string(snapshot.Dialect())),
		zap.Int("entities", len(names)))
	for _, name := range names {
		if _, err := ctx.buildEntityTable(graph.Entities[name]); err != nil {
			return nil, fmt.Errorf("entity %s: %w", name, err)
		}
	}

	a.logger.Info("Building relation tables")
	for _, name := range names {
		for _, rel := range graph.Entities[name].Relations {
			if rel.Kind != metadata.ManyMany {
				continue
			}
			if _, err := ctx.buildJoinTable(name, rel); err != nil {
				return nil, err
			}
		}
	}

	s := &schema.Schema{Dialect: snapshot.Dialect(), Tables: ctx.order}
	a.logger.Info("Schema built",
		zap.Int("tables", len(s.Tables)),
		zap.Int("new_tables", len(s.NewTables())))
	return s, nil
}
