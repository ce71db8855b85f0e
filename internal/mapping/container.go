package mapping

import (
	"context"
	"fmt"
	"slices"

	"github.com/tordrt/relstore/internal/conn"
	"github.com/tordrt/relstore/internal/schema"
	"github.com/tordrt/relstore/internal/shape"
)

// Container mappings store collection- and map-typed properties in a
// dependent table named <ownerTable>$<property>. Every dependent table, at
// any nesting depth, carries the root entity's <root>$id column (foreign key
// with ON DELETE CASCADE to the root) plus one discriminating column per
// container level, so cascade delete holds through the single root key.

const (
	ordinalColumn = "index"
	keyColumn     = "key"
	valueColumn   = "value"
)

// sliceMapping handles ordered collections. Rows are keyed by the parent key
// plus an ordinal column; update is delete-all-reinsert-all, not a diff.
type sliceMapping struct {
	path      string
	tableName string
	rootTable string
	keyCols   []schema.Column
	passDown  string // ordinal column name in nested dependent tables
	elem      Mapping
}

func newSliceMapping(bc buildContext, path string, s shape.Shape) (*sliceMapping, error) {
	m := &sliceMapping{
		path:      path,
		tableName: bc.ownerTable + "$" + path,
		rootTable: bc.rootTable,
		keyCols:   slices.Clone(bc.keyColumns),
		passDown:  path + "$" + ordinalColumn,
	}

	elemBC := buildContext{
		registry:   bc.registry,
		rootTable:  bc.rootTable,
		ownerTable: m.tableName,
		keyColumns: append(slices.Clone(m.keyCols), schema.Column{
			Name: m.passDown,
			Type: schema.ColumnType{Kind: schema.Integer},
		}),
	}
	elem, err := build(elemBC, valueColumn, *s.Elem)
	if err != nil {
		return nil, err
	}
	m.elem = elem
	return m, nil
}

func (m *sliceMapping) Tables() []schema.Table {
	own := dependentTable(m.tableName, m.rootTable, m.keyCols,
		[]schema.Column{{Name: ordinalColumn, Type: schema.ColumnType{Kind: schema.Integer}}},
		m.elem)
	return append([]schema.Table{own}, m.elem.Tables()...)
}

func (m *sliceMapping) Columns() []schema.Column { return nil }

func (m *sliceMapping) Encode(any) ([]conn.Cell, error) { return nil, nil }

func (m *sliceMapping) Decode(ctx context.Context, q conn.Queryer, _ conn.Row, parent Key) (any, error) {
	cols := append([]string{ordinalColumn}, columnNames(m.elem.Columns())...)
	rows, err := q.Select(ctx, m.tableName, cols, parent, []string{ordinalColumn})
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(rows))
	for _, row := range rows {
		ord, ok := rawInt(row[ordinalColumn])
		if !ok {
			return nil, fmt.Errorf("property %s: bad ordinal value %v", m.path, row[ordinalColumn])
		}
		v, err := m.elem.Decode(ctx, q, row, childKey(parent, m.passDown, ord))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *sliceMapping) Insert(ctx context.Context, q conn.Queryer, value any, parent Key) error {
	values, err := normalizeSlice(m.path, value)
	if err != nil {
		return err
	}
	for i, v := range values {
		elemCells, err := m.elem.Encode(v)
		if err != nil {
			return err
		}
		cells := make([]conn.Cell, 0, len(parent)+1+len(elemCells))
		cells = append(cells, parent...)
		cells = append(cells, conn.Cell{Column: ordinalColumn, Value: int64(i)})
		cells = append(cells, elemCells...)
		if err := q.InsertNoKey(ctx, m.tableName, cells); err != nil {
			return err
		}
		if err := m.elem.Insert(ctx, q, v, childKey(parent, m.passDown, int64(i))); err != nil {
			return err
		}
	}
	return nil
}

func (m *sliceMapping) Update(ctx context.Context, q conn.Queryer, value any, parent Key) error {
	if err := m.Delete(ctx, q, parent); err != nil {
		return err
	}
	return m.Insert(ctx, q, value, parent)
}

func (m *sliceMapping) Delete(ctx context.Context, q conn.Queryer, parent Key) error {
	// Deepest tables first; all of them carry the parent's key columns.
	if err := m.elem.Delete(ctx, q, parent); err != nil {
		return err
	}
	return q.Delete(ctx, m.tableName, []conn.Cell(parent))
}

// mapMapping handles scalar-keyed maps: one row per entry, keyed by the
// parent key plus the key column.
type mapMapping struct {
	path      string
	tableName string
	rootTable string
	keyCols   []schema.Column
	passDown  string // key column name in nested dependent tables
	key       Mapping
	elem      Mapping
}

func newMapMapping(bc buildContext, path string, s shape.Shape) (*mapMapping, error) {
	m := &mapMapping{
		path:      path,
		tableName: bc.ownerTable + "$" + path,
		rootTable: bc.rootTable,
		keyCols:   slices.Clone(bc.keyColumns),
		passDown:  path + "$" + keyColumn,
	}

	key, err := newValueMapping(keyColumn, *s.Key)
	if err != nil {
		return nil, err
	}
	m.key = key

	elemBC := buildContext{
		registry:   bc.registry,
		rootTable:  bc.rootTable,
		ownerTable: m.tableName,
		keyColumns: append(slices.Clone(m.keyCols), schema.Column{
			Name: m.passDown,
			Type: scalarColumnType(*s.Key),
		}),
	}
	elem, err := build(elemBC, valueColumn, *s.Elem)
	if err != nil {
		return nil, err
	}
	m.elem = elem
	return m, nil
}

func (m *mapMapping) Tables() []schema.Table {
	own := dependentTable(m.tableName, m.rootTable, m.keyCols, m.key.Columns(), m.elem)
	return append([]schema.Table{own}, m.elem.Tables()...)
}

func (m *mapMapping) Columns() []schema.Column { return nil }

func (m *mapMapping) Encode(any) ([]conn.Cell, error) { return nil, nil }

func (m *mapMapping) Decode(ctx context.Context, q conn.Queryer, _ conn.Row, parent Key) (any, error) {
	cols := append(columnNames(m.key.Columns()), columnNames(m.elem.Columns())...)
	rows, err := q.Select(ctx, m.tableName, cols, parent, []string{keyColumn})
	if err != nil {
		return nil, err
	}

	out := make(map[any]any, len(rows))
	for _, row := range rows {
		k, err := m.key.Decode(ctx, q, row, nil)
		if err != nil {
			return nil, err
		}
		v, err := m.elem.Decode(ctx, q, row, childKey(parent, m.passDown, row[keyColumn]))
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (m *mapMapping) Insert(ctx context.Context, q conn.Queryer, value any, parent Key) error {
	entries, err := normalizeMap(m.path, value)
	if err != nil {
		return err
	}
	for k, v := range entries {
		keyCells, err := m.key.Encode(k)
		if err != nil {
			return err
		}
		elemCells, err := m.elem.Encode(v)
		if err != nil {
			return err
		}
		cells := make([]conn.Cell, 0, len(parent)+len(keyCells)+len(elemCells))
		cells = append(cells, parent...)
		cells = append(cells, keyCells...)
		cells = append(cells, elemCells...)
		if err := q.InsertNoKey(ctx, m.tableName, cells); err != nil {
			return err
		}
		if err := m.elem.Insert(ctx, q, v, childKey(parent, m.passDown, keyCells[0].Value)); err != nil {
			return err
		}
	}
	return nil
}

func (m *mapMapping) Update(ctx context.Context, q conn.Queryer, value any, parent Key) error {
	if err := m.Delete(ctx, q, parent); err != nil {
		return err
	}
	return m.Insert(ctx, q, value, parent)
}

func (m *mapMapping) Delete(ctx context.Context, q conn.Queryer, parent Key) error {
	if err := m.elem.Delete(ctx, q, parent); err != nil {
		return err
	}
	return q.Delete(ctx, m.tableName, []conn.Cell(parent))
}

// dependentTable assembles a container table: parent key columns,
// discriminator columns, inline element columns, a cascade foreign key to
// the root entity and an index on the parent key for lookups.
func dependentTable(name, rootTable string, keyCols, discriminators []schema.Column, elem Mapping) schema.Table {
	cols := make([]schema.Column, 0, len(keyCols)+len(discriminators)+len(elem.Columns()))
	cols = append(cols, keyCols...)
	cols = append(cols, discriminators...)
	cols = append(cols, elem.Columns()...)

	fks := []schema.ForeignKey{{
		TargetTable:   rootTable,
		LocalColumns:  []string{keyCols[0].Name},
		TargetColumns: []string{"id"},
		OnDelete:      schema.Cascade,
		OnUpdate:      schema.Cascade,
	}}
	if fc, ok := elem.(foreignKeyContributor); ok {
		fks = append(fks, fc.ForeignKeys()...)
	}

	return schema.Table{
		Name:        name,
		Columns:     cols,
		Indexes:     []schema.Index{{Columns: columnNames(keyCols)}},
		ForeignKeys: fks,
	}
}

func childKey(parent Key, column string, value any) Key {
	out := make(Key, 0, len(parent)+1)
	out = append(out, parent...)
	out = append(out, conn.Cell{Column: column, Value: value})
	return out
}

func normalizeSlice(path string, value any) ([]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case []int64:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, nil
	}
	return nil, invalidValue(path, "slice", value)
}

func normalizeMap(path string, value any) (map[any]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[any]any:
		return v, nil
	case map[string]any:
		out := make(map[any]any, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out, nil
	}
	return nil, invalidValue(path, "map", value)
}

var _ Mapping = (*sliceMapping)(nil)
var _ Mapping = (*mapMapping)(nil)
