package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrDuplicateUnit is returned when a module registers the same version twice
var ErrDuplicateUnit = errors.New("migration unit already registered")

// DB is the database a unit migrates. *sql.DB and *sql.Tx satisfy it.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Unit is one versioned migration step
type Unit interface {
	Up(ctx context.Context, db DB) error
	Down(ctx context.Context, db DB) error
}

// Factory constructs a fresh unit for a run
type Factory func() Unit

// UnitFuncs adapts a pair of functions to Unit. A nil function is a no-op.
type UnitFuncs struct {
	UpFunc   func(ctx context.Context, db DB) error
	DownFunc func(ctx context.Context, db DB) error
}

func (u UnitFuncs) Up(ctx context.Context, db DB) error {
	if u.UpFunc == nil {
		return nil
	}
	return u.UpFunc(ctx, db)
}

func (u UnitFuncs) Down(ctx context.Context, db DB) error {
	if u.DownFunc == nil {
		return nil
	}
	return u.DownFunc(ctx, db)
}

// Registry maps (module, version) to unit factories.
// Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	units map[string]map[Version]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{units: make(map[string]map[Version]Factory)}
}

// Register adds a unit factory for module at version
func (r *Registry) Register(module, version string, f Factory) error {
	if f == nil {
		return fmt.Errorf("nil factory for %s %s", module, version)
	}
	v, err := ParseVersion(version)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	byVersion, ok := r.units[module]
	if !ok {
		byVersion = make(map[Version]Factory)
		r.units[module] = byVersion
	}
	if _, exists := byVersion[v]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateUnit, module, v.UnitName())
	}
	byVersion[v] = f
	return nil
}

// Versions returns the registered versions of module in ascending order
func (r *Registry) Versions(module string) []Version {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Version, 0, len(r.units[module]))
	for v := range r.units[module] {
		out = append(out, v)
	}
	slices.SortFunc(out, Version.Compare)
	return out
}

// Lookup returns the factory registered for exactly module and v
func (r *Registry) Lookup(module string, v Version) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.units[module][v]
	return f, ok
}

// Default is the process wide registry modules register into from init()
var Default = NewRegistry()

// Register adds a unit to Default and panics on invalid or duplicate
// registrations, which are programming errors.
func Register(module, version string, f Factory) {
	if err := Default.Register(module, version, f); err != nil {
		panic(err)
	}
}
