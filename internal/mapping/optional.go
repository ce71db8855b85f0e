package mapping

import (
	"context"
	"fmt"

	"github.com/tordrt/relstore/internal/conn"
	"github.com/tordrt/relstore/internal/schema"
	"github.com/tordrt/relstore/internal/shape"
)

// optionalMapping wraps an inline element and stores absence as NULL in
// every column the element contributes. Optional containers are rejected at
// build time: a missing collection is indistinguishable from an empty one,
// so the shape carries no information a plain container would not.
type optionalMapping struct {
	path string
	elem Mapping
}

func newOptionalMapping(bc buildContext, path string, s shape.Shape) (*optionalMapping, error) {
	elem, err := build(bc, path, *s.Elem)
	if err != nil {
		return nil, err
	}
	if len(elem.Tables()) > 0 {
		return nil, fmt.Errorf("property %s: optional %s shapes are not supported, use the container directly", path, s.Elem.Kind)
	}
	return &optionalMapping{path: path, elem: elem}, nil
}

func (m *optionalMapping) Tables() []schema.Table { return nil }

func (m *optionalMapping) Columns() []schema.Column {
	cols := m.elem.Columns()
	out := make([]schema.Column, len(cols))
	for i, c := range cols {
		c.Nullable = true
		out[i] = c
	}
	return out
}

func (m *optionalMapping) Encode(value any) ([]conn.Cell, error) {
	if value == nil {
		cols := m.elem.Columns()
		cells := make([]conn.Cell, len(cols))
		for i, c := range cols {
			cells[i] = conn.Cell{Column: c.Name, Value: nil}
		}
		return cells, nil
	}
	return m.elem.Encode(value)
}

func (m *optionalMapping) Decode(ctx context.Context, q conn.Queryer, row conn.Row, parent Key) (any, error) {
	absent := true
	for _, c := range m.elem.Columns() {
		if row[c.Name] != nil {
			absent = false
			break
		}
	}
	if absent {
		return nil, nil
	}
	return m.elem.Decode(ctx, q, row, parent)
}

func (m *optionalMapping) Insert(ctx context.Context, q conn.Queryer, value any, parent Key) error {
	if value == nil {
		return nil
	}
	return m.elem.Insert(ctx, q, value, parent)
}

func (m *optionalMapping) Update(ctx context.Context, q conn.Queryer, value any, parent Key) error {
	if value == nil {
		return nil
	}
	return m.elem.Update(ctx, q, value, parent)
}

func (m *optionalMapping) Delete(ctx context.Context, q conn.Queryer, parent Key) error {
	return m.elem.Delete(ctx, q, parent)
}

// ForeignKeys forwards the element's contributions so an optional reference
// still constrains its column.
func (m *optionalMapping) ForeignKeys() []schema.ForeignKey {
	if fc, ok := m.elem.(foreignKeyContributor); ok {
		return fc.ForeignKeys()
	}
	return nil
}

var _ foreignKeyContributor = (*optionalMapping)(nil)

// foreignKeyContributor is implemented by inline mappings that add foreign
// keys to the table assembling their columns.
type foreignKeyContributor interface {
	ForeignKeys() []schema.ForeignKey
}

// collectForeignKeys gathers the foreign keys contributed by a set of child
// mappings for their containing table.
func collectForeignKeys(children []namedMapping) []schema.ForeignKey {
	var fks []schema.ForeignKey
	for _, c := range children {
		if fc, ok := c.m.(foreignKeyContributor); ok {
			fks = append(fks, fc.ForeignKeys()...)
		}
	}
	return fks
}

var _ Mapping = (*optionalMapping)(nil)
var _ Mapping = (*structMapping)(nil)
var _ Mapping = (*valueMapping)(nil)

// structMapping forwards children's foreign keys too.
func (m *structMapping) ForeignKeys() []schema.ForeignKey {
	return collectForeignKeys(m.fields)
}
