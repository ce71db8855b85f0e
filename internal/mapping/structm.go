package mapping

import (
	"context"

	"github.com/tordrt/relstore/internal/conn"
	"github.com/tordrt/relstore/internal/schema"
	"github.com/tordrt/relstore/internal/shape"
)

// structMapping flattens a nested value object into the owner's table:
// each field becomes a column (or a deeper structure) with a $-joined name
// prefix. Collections inside the struct still get their own dependent tables
// keyed by the owner.
type structMapping struct {
	path   string
	fields []namedMapping
}

type namedMapping struct {
	name string
	m    Mapping
}

func newStructMapping(bc buildContext, path string, s shape.Shape) (*structMapping, error) {
	sm := &structMapping{path: path}
	for _, f := range s.Fields {
		child, err := build(bc, joinPath(path, f.Name), f.Shape)
		if err != nil {
			return nil, err
		}
		sm.fields = append(sm.fields, namedMapping{name: f.Name, m: child})
	}
	return sm, nil
}

func (m *structMapping) Tables() []schema.Table {
	var tables []schema.Table
	for _, f := range m.fields {
		tables = append(tables, f.m.Tables()...)
	}
	return tables
}

func (m *structMapping) Columns() []schema.Column {
	var cols []schema.Column
	for _, f := range m.fields {
		cols = append(cols, f.m.Columns()...)
	}
	return cols
}

func (m *structMapping) Encode(value any) ([]conn.Cell, error) {
	rec, err := m.record(value)
	if err != nil {
		return nil, err
	}
	var cells []conn.Cell
	for _, f := range m.fields {
		fc, err := f.m.Encode(rec[f.name])
		if err != nil {
			return nil, err
		}
		cells = append(cells, fc...)
	}
	return cells, nil
}

func (m *structMapping) Decode(ctx context.Context, q conn.Queryer, row conn.Row, parent Key) (any, error) {
	rec := make(shape.Record, len(m.fields))
	for _, f := range m.fields {
		v, err := f.m.Decode(ctx, q, row, parent)
		if err != nil {
			return nil, err
		}
		rec[f.name] = v
	}
	return rec, nil
}

func (m *structMapping) Insert(ctx context.Context, q conn.Queryer, value any, parent Key) error {
	rec, err := m.record(value)
	if err != nil {
		return err
	}
	for _, f := range m.fields {
		if err := f.m.Insert(ctx, q, rec[f.name], parent); err != nil {
			return err
		}
	}
	return nil
}

func (m *structMapping) Update(ctx context.Context, q conn.Queryer, value any, parent Key) error {
	rec, err := m.record(value)
	if err != nil {
		return err
	}
	for _, f := range m.fields {
		if err := f.m.Update(ctx, q, rec[f.name], parent); err != nil {
			return err
		}
	}
	return nil
}

func (m *structMapping) Delete(ctx context.Context, q conn.Queryer, parent Key) error {
	for _, f := range m.fields {
		if err := f.m.Delete(ctx, q, parent); err != nil {
			return err
		}
	}
	return nil
}

func (m *structMapping) record(value any) (shape.Record, error) {
	switch rec := value.(type) {
	case shape.Record:
		return rec, nil
	case map[string]any:
		return shape.Record(rec), nil
	}
	return nil, invalidValue(m.path, "record", value)
}
