package mapping

import (
	"context"
	"fmt"

	"github.com/tordrt/relstore/internal/conn"
	"github.com/tordrt/relstore/internal/schema"
	"github.com/tordrt/relstore/internal/shape"
)

// refMapping stores a to-one entity reference as a single <prop>$id column
// with a foreign key to the target entity's main table. The referenced
// entity must already be persisted when the owner is saved; fetch loads it
// eagerly through the registry.
type refMapping struct {
	path     string
	column   schema.Column
	target   string
	registry *Registry
}

func newRefMapping(bc buildContext, path string, s shape.Shape) (*refMapping, error) {
	if bc.registry == nil {
		return nil, fmt.Errorf("property %s: reference shapes require a registry", path)
	}
	return &refMapping{
		path:     path,
		column:   schema.Column{Name: path + "$id", Type: schema.ColumnType{Kind: schema.BigInt}},
		target:   s.Entity,
		registry: bc.registry,
	}, nil
}

func (m *refMapping) Tables() []schema.Table { return nil }

func (m *refMapping) Columns() []schema.Column { return []schema.Column{m.column} }

// ForeignKeys constrains the reference column. Deleting a referenced entity
// while rows still point at it is a store error, not a cascade.
func (m *refMapping) ForeignKeys() []schema.ForeignKey {
	return []schema.ForeignKey{{
		TargetTable:   m.target,
		LocalColumns:  []string{m.column.Name},
		TargetColumns: []string{"id"},
		OnDelete:      schema.Restrict,
		OnUpdate:      schema.Cascade,
	}}
}

func (m *refMapping) Encode(value any) ([]conn.Cell, error) {
	e, ok := value.(*shape.Entity)
	if !ok {
		return nil, invalidValue(m.path, "entity reference", value)
	}
	if !e.IsPersisted() {
		return nil, fmt.Errorf("property %s references a transient %s: %w", m.path, m.target, ErrNotPersisted)
	}
	return []conn.Cell{{Column: m.column.Name, Value: e.ID()}}, nil
}

func (m *refMapping) Decode(ctx context.Context, q conn.Queryer, row conn.Row, _ Key) (any, error) {
	raw, ok := row[m.column.Name]
	if !ok {
		return nil, fmt.Errorf("row has no column %s", m.column.Name)
	}
	id, ok := rawInt(raw)
	if !ok {
		return nil, fmt.Errorf("property %s: cannot decode %T as reference id", m.path, raw)
	}

	target, err := m.registry.Entity(m.target)
	if err != nil {
		return nil, err
	}
	e, err := target.Load(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("property %s: dangling reference to %s id %d", m.path, m.target, id)
	}
	return e, nil
}

func (m *refMapping) Insert(context.Context, conn.Queryer, any, Key) error { return nil }
func (m *refMapping) Update(context.Context, conn.Queryer, any, Key) error { return nil }
func (m *refMapping) Delete(context.Context, conn.Queryer, Key) error      { return nil }

var _ Mapping = (*refMapping)(nil)
var _ foreignKeyContributor = (*refMapping)(nil)
