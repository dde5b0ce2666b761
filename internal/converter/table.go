package converter

import (
	"errors"

	"go.uber.org/zap"

	"github.com/deepakkuma24/atrocore/internal/metadata"
	"github.com/deepakkuma24/atrocore/internal/schema"
)

const (
	idColumn          = "id"
	midKeyCount       = 2
	defaultColumnType = "varchar"
)

// buildContext is the working table set of one Process call. It is threaded
// through the entity pass and the relation pass and never escapes the call.
type buildContext struct {
	graph    *metadata.Graph
	snapshot Introspector
	mapper   *TypeMapper
	limits   Limits
	logger   *zap.Logger

	tables map[string]*schema.Table
	order  []*schema.Table
}

func (c *buildContext) add(t *schema.Table) {
	c.tables[t.Name] = t
	c.order = append(c.order, t)
}

// existing returns the table if it is already part of the build or of the
// live database. Live tables are adopted unchanged.
func (c *buildContext) existing(name string) (*schema.Table, bool) {
	if t, ok := c.tables[name]; ok {
		return t, true
	}
	t, ok := c.snapshot.ExistingTable(name)
	if !ok || t == nil {
		return nil, false
	}
	t = t.Clone()
	t.Existing = true
	c.add(t)
	return t, true
}

// mapColumn maps a field, logging and skipping unknown storage types
func (c *buildContext) mapColumn(entity string, f metadata.FieldDef, narrow bool) (schema.Column, bool) {
	col, err := c.mapper.MapColumn(entity, f, narrow)
	if err != nil {
		var unknown *UnknownStorageTypeError
		if errors.As(err, &unknown) {
			c.logger.Warn("Skipping field with unknown storage type",
				zap.String("entity", entity),
				zap.String("field", f.Name),
				zap.String("type", unknown.Type))
		} else {
			c.logger.Error("Failed to map field", zap.String("entity", entity), zap.String("field", f.Name), zap.Error(err))
		}
		return schema.Column{}, false
	}
	return col, true
}

func (c *buildContext) buildEntityTable(entity *metadata.EntityDef) (*schema.Table, error) {
	name := ToUnderscore(entity.Name)
	if t, ok := c.existing(name); ok {
		c.logger.Debug("Table exists, skipping", zap.String("table", name), zap.String("entity", entity.Name))
		return t, nil
	}

	plan, err := PlanIndexes(name, entity, c.graph, c.limits)
	if err != nil {
		return nil, err
	}

	t := &schema.Table{
		Name:          name,
		Entity:        entity.Name,
		Indexes:       plan.Indexes,
		UniqueIndexes: plan.UniqueIndexes,
	}
	if len(entity.Params) > 0 {
		t.Options = make(map[string]any, len(entity.Params))
		for k, v := range entity.Params {
			t.Options[k] = v
		}
	}

	for _, f := range entity.Fields {
		if !f.IsStorable() {
			continue
		}
		col, ok := c.mapColumn(entity.Name, f, plan.Narrow[ToUnderscore(f.Name)])
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, col)
		if f.IsPrimaryID() {
			t.PrimaryKey = append(t.PrimaryKey, col.Name)
		}
	}

	c.add(t)
	return t, nil
}

func validateJoinRelation(entity string, rel metadata.RelationDef) error {
	switch {
	case rel.RelationName == "":
		return &InvalidRelationConfigError{Entity: entity, Relation: rel.Name, Reason: "relationName is required"}
	case len(rel.MidKeys) != midKeyCount:
		return &InvalidRelationConfigError{Entity: entity, Relation: rel.Name, Reason: "exactly two midKeys are required"}
	}
	for _, k := range rel.MidKeys {
		if k == "" {
			return &InvalidRelationConfigError{Entity: entity, Relation: rel.Name, Reason: "midKeys must not be empty"}
		}
	}
	return nil
}

func (c *buildContext) buildJoinTable(entity string, rel metadata.RelationDef) (*schema.Table, error) {
	if err := validateJoinRelation(entity, rel); err != nil {
		return nil, err
	}

	name := ToUnderscore(rel.RelationName)
	if t, ok := c.existing(name); ok {
		c.logger.Debug("Table exists, skipping", zap.String("table", name), zap.String("relation", rel.Name))
		return t, nil
	}

	t := &schema.Table{Name: name, PrimaryKey: []string{idColumn}}
	maxName := c.limits.MaxIdentifierLength

	if col, ok := c.mapColumn(entity, metadata.FieldDef{Name: idColumn, Type: "int", Autoincrement: true}, false); ok {
		t.Columns = append(t.Columns, col)
	}

	var uniqueCols []string
	for _, key := range rel.MidKeys {
		col, ok := c.mapColumn(entity, metadata.FieldDef{Name: key, Type: "foreignId"}, false)
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, col)
		t.Indexes = append(t.Indexes, schema.Index{
			Name:    GenerateIdentifierName(indexPrefix, name, []string{col.Name}, maxName),
			Columns: []string{col.Name},
		})
		uniqueCols = append(uniqueCols, col.Name)
	}

	for _, f := range rel.AdditionalColumns {
		column := ToUnderscore(f.Name)
		if column == DeletedColumn || t.HasColumn(column) || !f.IsStorable() {
			continue
		}
		if f.Type == "" {
			f.Type = defaultColumnType
		}
		if col, ok := c.mapColumn(entity, f, false); ok {
			t.Columns = append(t.Columns, col)
		}
	}

	for _, cond := range rel.Conditions {
		column := ToUnderscore(cond.Name)
		if !t.HasColumn(column) {
			if col, ok := c.mapColumn(entity, metadata.FieldDef{Name: cond.Name, Type: defaultColumnType, Default: cond.Value}, false); ok {
				t.Columns = append(t.Columns, col)
			}
		}
		uniqueCols = append(uniqueCols, column)
	}

	if len(uniqueCols) > 0 {
		t.UniqueIndexes = append(t.UniqueIndexes, schema.Index{
			Name:    GenerateIdentifierName(uniquePrefix, name, uniqueCols, maxName),
			Columns: uniqueCols,
		})
	}

	if col, ok := c.mapColumn(entity, metadata.FieldDef{Name: DeletedColumn, Type: "bool", Default: false}, false); ok {
		t.Columns = append(t.Columns, col)
	}

	c.add(t)
	return t, nil
}
