package mapping

import (
	"context"
	"fmt"

	"github.com/tordrt/relstore/internal/conn"
	"github.com/tordrt/relstore/internal/schema"
	"github.com/tordrt/relstore/internal/shape"
)

// idColumn is the synthetic identity of every entity table: a single
// auto-increment BIGINT primary key named id.
const idColumn = "id"

// EntityMapping is the root of a persisted aggregate: it owns the main
// table, the identity column and one child mapping per declared property.
type EntityMapping struct {
	def    shape.EntityDef
	table  string
	fields []namedMapping
}

func newEntityMapping(reg *Registry, def shape.EntityDef) (*EntityMapping, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	em := &EntityMapping{def: def, table: def.Name}
	bc := buildContext{
		registry:   reg,
		rootTable:  em.table,
		ownerTable: em.table,
		keyColumns: []schema.Column{{
			Name: em.table + "$" + idColumn,
			Type: schema.ColumnType{Kind: schema.BigInt},
		}},
	}
	for _, f := range def.Fields {
		child, err := build(bc, f.Name, f.Shape)
		if err != nil {
			return nil, err
		}
		em.fields = append(em.fields, namedMapping{name: f.Name, m: child})
	}
	return em, nil
}

// Name returns the entity type name, which is also the main table name.
func (em *EntityMapping) Name() string { return em.table }

// Tables returns the main table plus the union of the children's fragments.
func (em *EntityMapping) Tables() []schema.Table {
	main := schema.Table{
		Name: em.table,
		Columns: append([]schema.Column{{
			Name:          idColumn,
			Type:          schema.ColumnType{Kind: schema.BigInt},
			AutoIncrement: true,
		}}, em.inlineColumns()...),
		PrimaryKey:  []string{idColumn},
		ForeignKeys: collectForeignKeys(em.fields),
	}
	for _, key := range em.UniqueKeyColumnNames() {
		main.UniqueKeys = append(main.UniqueKeys, schema.UniqueKey{Columns: key})
	}
	for _, key := range em.indexColumnNames() {
		main.Indexes = append(main.Indexes, schema.Index{Columns: key})
	}

	tables := []schema.Table{main}
	for _, f := range em.fields {
		tables = append(tables, f.m.Tables()...)
	}
	return tables
}

func (em *EntityMapping) inlineColumns() []schema.Column {
	var cols []schema.Column
	for _, f := range em.fields {
		cols = append(cols, f.m.Columns()...)
	}
	return cols
}

// UniqueKeyColumnNames resolves the declared unique-key property sets into
// concrete column names. A set expands to nothing, and is dropped, if any of
// its properties contribute no columns: container-typed properties cannot
// participate in a table-level key.
func (em *EntityMapping) UniqueKeyColumnNames() [][]string {
	return em.resolveKeys(em.def.Settings.UniqueKeys)
}

func (em *EntityMapping) indexColumnNames() [][]string {
	return em.resolveKeys(em.def.Settings.Indexes)
}

func (em *EntityMapping) resolveKeys(propertySets [][]string) [][]string {
	var out [][]string
	for _, props := range propertySets {
		var cols []string
		dropped := false
		for _, prop := range props {
			fieldCols := em.fieldColumns(prop)
			if len(fieldCols) == 0 {
				dropped = true
				break
			}
			cols = append(cols, fieldCols...)
		}
		if !dropped {
			out = append(out, cols)
		}
	}
	return out
}

func (em *EntityMapping) fieldColumns(name string) []string {
	for _, f := range em.fields {
		if f.name == name {
			return columnNames(f.m.Columns())
		}
	}
	return nil
}

func (em *EntityMapping) ownerKey(id int64) Key {
	return Key{{Column: em.table + "$" + idColumn, Value: id}}
}

// Save writes the aggregate. Identity presence decides the verb: a
// persisted value updates its main row and propagates updates to every
// child mapping under its existing id; a transient value inserts the main
// row first, obtains the generated id, then propagates inserts so dependent
// rows can reference it. Returns the persisted result either way.
func (em *EntityMapping) Save(ctx context.Context, q conn.Queryer, e *shape.Entity) (*shape.Entity, error) {
	cells, err := em.encodeInline(e.Values())
	if err != nil {
		return nil, err
	}

	if e.IsPersisted() {
		if len(cells) > 0 {
			where := []conn.Cell{{Column: idColumn, Value: e.ID()}}
			if err := q.Update(ctx, em.table, cells, where); err != nil {
				return nil, err
			}
		}
		key := em.ownerKey(e.ID())
		for _, f := range em.fields {
			if err := f.m.Update(ctx, q, e.Get(f.name), key); err != nil {
				return nil, err
			}
		}
		return shape.Persisted(e.ID(), e.Values()), nil
	}

	id, err := q.Insert(ctx, em.table, cells)
	if err != nil {
		return nil, err
	}
	key := em.ownerKey(id)
	for _, f := range em.fields {
		if err := f.m.Insert(ctx, q, e.Get(f.name), key); err != nil {
			return nil, err
		}
	}
	return shape.Persisted(id, e.Values()), nil
}

// Delete removes the main row by id. Dependent-table rows go away through
// the cascade foreign keys; this is the single write. Deleting a transient
// value is an identity error, never a silent no-op.
func (em *EntityMapping) Delete(ctx context.Context, q conn.Queryer, e *shape.Entity) error {
	if !e.IsPersisted() {
		return fmt.Errorf("cannot delete %s: %w", em.table, ErrNotPersisted)
	}
	return q.Delete(ctx, em.table, []conn.Cell{{Column: idColumn, Value: e.ID()}})
}

// Load fetches one aggregate by id. Returns (nil, nil) when no row matches.
func (em *EntityMapping) Load(ctx context.Context, q conn.Queryer, id int64) (*shape.Entity, error) {
	cols := append([]string{idColumn}, columnNames(em.inlineColumns())...)
	rows, err := q.Select(ctx, em.table, cols, []conn.Cell{{Column: idColumn, Value: id}}, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return em.decodeRow(ctx, q, rows[0])
}

// LoadAll fetches every aggregate of the type, ordered by id.
func (em *EntityMapping) LoadAll(ctx context.Context, q conn.Queryer) ([]*shape.Entity, error) {
	cols := append([]string{idColumn}, columnNames(em.inlineColumns())...)
	rows, err := q.Select(ctx, em.table, cols, nil, []string{idColumn})
	if err != nil {
		return nil, err
	}
	out := make([]*shape.Entity, 0, len(rows))
	for _, row := range rows {
		e, err := em.decodeRow(ctx, q, row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// FindByUniqueKeys looks up an existing row matching all columns of every
// declared unique key for the given property values. Returns the id and
// whether a row was found.
func (em *EntityMapping) FindByUniqueKeys(ctx context.Context, q conn.Queryer, values shape.Record) (int64, bool, error) {
	keys := em.UniqueKeyColumnNames()
	if len(keys) == 0 {
		return 0, false, fmt.Errorf("%s: %w", em.table, ErrNoUniqueKeys)
	}

	cells, err := em.encodeInline(values)
	if err != nil {
		return 0, false, err
	}
	byName := make(map[string]any, len(cells))
	for _, c := range cells {
		byName[c.Column] = c.Value
	}

	var where []conn.Cell
	for _, key := range keys {
		for _, col := range key {
			v, ok := byName[col]
			if !ok {
				return 0, false, fmt.Errorf("%s: unique key column %s has no value", em.table, col)
			}
			where = append(where, conn.Cell{Column: col, Value: v})
		}
	}

	rows, err := q.Select(ctx, em.table, []string{idColumn}, where, nil)
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	id, ok := rawInt(rows[0][idColumn])
	if !ok {
		return 0, false, fmt.Errorf("%s: %w: %v", em.table, ErrBadIDColumn, rows[0][idColumn])
	}
	return id, true, nil
}

// RowID extracts the identity column from a result row. Drivers differ in
// the integer shape they hand back (MySQL's text protocol returns numeric
// columns as []byte), so coercion is permissive.
func RowID(row conn.Row) (int64, bool) {
	v, ok := row[idColumn]
	if !ok {
		return 0, false
	}
	return rawInt(v)
}

func (em *EntityMapping) encodeInline(values shape.Record) ([]conn.Cell, error) {
	var cells []conn.Cell
	for _, f := range em.fields {
		fc, err := f.m.Encode(values[f.name])
		if err != nil {
			return nil, err
		}
		cells = append(cells, fc...)
	}
	return cells, nil
}

func (em *EntityMapping) decodeRow(ctx context.Context, q conn.Queryer, row conn.Row) (*shape.Entity, error) {
	id, ok := rawInt(row[idColumn])
	if !ok {
		return nil, fmt.Errorf("%s: %w: %v", em.table, ErrBadIDColumn, row[idColumn])
	}
	key := em.ownerKey(id)
	rec := make(shape.Record, len(em.fields))
	for _, f := range em.fields {
		v, err := f.m.Decode(ctx, q, row, key)
		if err != nil {
			return nil, err
		}
		rec[f.name] = v
	}
	return shape.Persisted(id, rec), nil
}
