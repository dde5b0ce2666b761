package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Runner applies registered units between two versions
type Runner struct {
	registry *Registry
	db       DB
	logger   *zap.Logger
}

// NewRunner creates a runner that hands db to every unit it runs.
// A nil logger disables logging.
func NewRunner(registry *Registry, db DB, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{registry: registry, db: db, logger: logger}
}

// Run migrates module from one version to another. Upgrading runs Up on
// every registered version v with from < v <= to in ascending order;
// downgrading runs Down on every v with to < v <= from in descending order.
// It reports false when the versions are equal or the module has no units.
func (r *Runner) Run(ctx context.Context, module, from, to string) (bool, error) {
	versions := r.registry.Versions(module)
	if len(versions) == 0 {
		return false, nil
	}

	fromV, err := ParseVersion(from)
	if err != nil {
		return false, fmt.Errorf("failed to parse from version: %w", err)
	}
	toV, err := ParseVersion(to)
	if err != nil {
		return false, fmt.Errorf("failed to parse to version: %w", err)
	}

	switch fromV.Compare(toV) {
	case 0:
		return false, nil
	case -1:
		for _, v := range versions {
			if v.Compare(fromV) > 0 && v.Compare(toV) <= 0 {
				if err := r.apply(ctx, module, v, true); err != nil {
					return false, err
				}
			}
		}
	default:
		for i := len(versions) - 1; i >= 0; i-- {
			v := versions[i]
			if v.Compare(toV) > 0 && v.Compare(fromV) <= 0 {
				if err := r.apply(ctx, module, v, false); err != nil {
					return false, err
				}
			}
		}
	}
	return true, nil
}

func (r *Runner) apply(ctx context.Context, module string, v Version, up bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, ok := r.registry.Lookup(module, v)
	if !ok {
		return nil
	}

	direction := "down"
	if up {
		direction = "up"
	}
	r.logger.Info("Run migration",
		zap.String("module", module),
		zap.String("version", v.String()),
		zap.String("direction", direction))

	unit := f()
	if up {
		err := unit.Up(ctx, r.db)
		if err != nil {
			return fmt.Errorf("migration %s %s up failed: %w", module, v.UnitName(), err)
		}
		return nil
	}
	if err := unit.Down(ctx, r.db); err != nil {
		return fmt.Errorf("migration %s %s down failed: %w", module, v.UnitName(), err)
	}
	return nil
}
