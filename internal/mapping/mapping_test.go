package mapping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/relstore/internal/conn"
	"github.com/tordrt/relstore/internal/schema"
	"github.com/tordrt/relstore/internal/shape"
)

func TestScalarEncodeDecode(t *testing.T) {
	noon := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		kind    shape.Kind
		value   any
		encoded any
		raw     any // driver value handed back on decode
		decoded any
	}{
		{name: "text", kind: shape.Text, value: "hello", encoded: "hello", raw: []byte("hello"), decoded: "hello"},
		{name: "varchar", kind: shape.Varchar, value: "v", encoded: "v", raw: "v", decoded: "v"},
		{name: "int", kind: shape.Int, value: 42, encoded: int64(42), raw: int64(42), decoded: int64(42)},
		{name: "bigint", kind: shape.BigInt, value: int64(1 << 40), encoded: int64(1 << 40), raw: int64(1 << 40), decoded: int64(1 << 40)},
		{name: "double", kind: shape.Double, value: 2.5, encoded: 2.5, raw: 2.5, decoded: 2.5},
		{name: "bool true", kind: shape.Bool, value: true, encoded: int64(1), raw: int64(1), decoded: true},
		{name: "bool false", kind: shape.Bool, value: false, encoded: int64(0), raw: int64(0), decoded: false},
		{name: "enum", kind: shape.Enum, value: "new", encoded: "new", raw: "new", decoded: "new"},
		{name: "decimal", kind: shape.Decimal, value: "12.50", encoded: "12.50", raw: []byte("12.50"), decoded: "12.50"},
		{name: "timestamp", kind: shape.Timestamp, value: noon, encoded: noon, raw: "2024-05-01 12:00:00", decoded: noon},
		{name: "date", kind: shape.Date, value: noon, encoded: "2024-05-01", raw: "2024-05-01", decoded: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeScalar("p", tt.kind, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.encoded, got)

			back, err := decodeScalar("p", tt.kind, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.decoded, back)
		})
	}
}

// pgx hands SMALLINT back as int16 and TIME as pgtype.Time; MySQL's text
// protocol hands numeric columns back as []byte.
func TestDecodeDriverValueShapes(t *testing.T) {
	got, err := decodeScalar("flag", shape.Bool, int16(1))
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = decodeScalar("n", shape.SmallInt, int16(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	got, err = decodeScalar("n", shape.TinyInt, int16(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	got, err = decodeScalar("n", shape.Int, []byte("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	halfNine := 9*time.Hour + 30*time.Minute
	got, err = decodeScalar("at", shape.Time, pgtype.Time{Microseconds: halfNine.Microseconds(), Valid: true})
	require.NoError(t, err)
	at, ok := got.(time.Time)
	require.True(t, ok)
	assert.Equal(t, 9, at.Hour())
	assert.Equal(t, 30, at.Minute())

	_, err = decodeScalar("at", shape.Time, pgtype.Time{})
	assert.Error(t, err)
}

func TestRowID(t *testing.T) {
	tests := []struct {
		name   string
		row    conn.Row
		want   int64
		wantOK bool
	}{
		{name: "int64", row: conn.Row{"id": int64(5)}, want: 5, wantOK: true},
		{name: "int16", row: conn.Row{"id": int16(5)}, want: 5, wantOK: true},
		{name: "bytes", row: conn.Row{"id": []byte("7")}, want: 7, wantOK: true},
		{name: "missing column", row: conn.Row{"name": "ada"}},
		{name: "non-numeric", row: conn.Row{"id": "ada"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := RowID(tt.row)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, id)
			}
		})
	}
}

func TestScalarEncodeRejectsWrongType(t *testing.T) {
	_, err := encodeScalar("p", shape.Int, "not a number")
	assert.Error(t, err)

	_, err = encodeScalar("p", shape.Text, 42)
	assert.Error(t, err)

	_, err = encodeScalar("p", shape.Text, nil)
	assert.Error(t, err)
}

func TestStructMappingFlattensColumns(t *testing.T) {
	reg := NewRegistry()
	def := shape.EntityDef{
		Name: "person",
		Fields: []shape.Field{
			{Name: "name", Shape: shape.Shape{Kind: shape.Text}},
			{Name: "address", Shape: shape.Shape{Kind: shape.Struct, Fields: []shape.Field{
				{Name: "city", Shape: shape.Shape{Kind: shape.Text}},
				{Name: "zip", Shape: shape.Shape{Kind: shape.Varchar, Length: 16}},
			}}},
		},
	}
	require.NoError(t, reg.Register(def))
	em, err := reg.Entity("person")
	require.NoError(t, err)

	tables := em.Tables()
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"id", "name", "address$city", "address$zip"}, tables[0].ColumnNames())

	q := newFakeQueryer()
	saved, err := em.Save(context.Background(), q, shape.Transient(shape.Record{
		"name":    "Ada",
		"address": shape.Record{"city": "Oslo", "zip": "0150"},
	}))
	require.NoError(t, err)
	require.True(t, saved.IsPersisted())

	inserts := q.opsFor("insert")
	require.Len(t, inserts, 1)
	city, _ := cellValue(inserts[0].cells, "address$city")
	assert.Equal(t, "Oslo", city)
}

func TestNestedCollectionTables(t *testing.T) {
	reg := NewRegistry()
	def := shape.EntityDef{
		Name: "board",
		Fields: []shape.Field{
			{Name: "rows", Shape: shape.Shape{
				Kind: shape.Seq,
				Elem: &shape.Shape{Kind: shape.Seq, Elem: &shape.Shape{Kind: shape.Int}},
			}},
		},
	}
	require.NoError(t, reg.Register(def))
	em, err := reg.Entity("board")
	require.NoError(t, err)

	tables := em.Tables()
	require.Len(t, tables, 3)
	assert.Equal(t, "board", tables[0].Name)
	assert.Equal(t, "board$rows", tables[1].Name)
	assert.Equal(t, "board$rows$value", tables[2].Name)

	// Every dependent table carries the root id and cascades from the root.
	inner := tables[2]
	assert.Equal(t, []string{"board$id", "rows$index", "index", "value"}, inner.ColumnNames())
	require.Len(t, inner.ForeignKeys, 1)
	assert.Equal(t, "board", inner.ForeignKeys[0].TargetTable)
	assert.Equal(t, schema.Cascade, inner.ForeignKeys[0].OnDelete)

	q := newFakeQueryer()
	_, err = em.Save(context.Background(), q, shape.Transient(shape.Record{
		"rows": []any{[]int{1, 2}, []int{3}},
	}))
	require.NoError(t, err)

	var innerRows []fakeOp
	for _, op := range q.opsFor("insertRow") {
		if op.table == "board$rows$value" {
			innerRows = append(innerRows, op)
		}
	}
	require.Len(t, innerRows, 3)
	parentOrd, _ := cellValue(innerRows[2].cells, "rows$index")
	assert.Equal(t, int64(1), parentOrd)
	v, _ := cellValue(innerRows[2].cells, "value")
	assert.Equal(t, int64(3), v)
}

func TestMapMapping(t *testing.T) {
	reg := NewRegistry()
	def := shape.EntityDef{
		Name: "config",
		Fields: []shape.Field{
			{Name: "attrs", Shape: shape.Shape{
				Kind: shape.Map,
				Key:  &shape.Shape{Kind: shape.Text},
				Elem: &shape.Shape{Kind: shape.Text},
			}},
		},
	}
	require.NoError(t, reg.Register(def))
	em, err := reg.Entity("config")
	require.NoError(t, err)

	tables := em.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "config$attrs", tables[1].Name)
	assert.Equal(t, []string{"config$id", "key", "value"}, tables[1].ColumnNames())

	q := newFakeQueryer()
	_, err = em.Save(context.Background(), q, shape.Transient(shape.Record{
		"attrs": map[string]any{"lang": "en"},
	}))
	require.NoError(t, err)

	rows := q.opsFor("insertRow")
	require.Len(t, rows, 1)
	k, _ := cellValue(rows[0].cells, "key")
	assert.Equal(t, "lang", k)
}

func TestMapLoad(t *testing.T) {
	reg := NewRegistry()
	def := shape.EntityDef{
		Name: "config",
		Fields: []shape.Field{
			{Name: "attrs", Shape: shape.Shape{
				Kind: shape.Map,
				Key:  &shape.Shape{Kind: shape.Text},
				Elem: &shape.Shape{Kind: shape.Int},
			}},
		},
	}
	require.NoError(t, reg.Register(def))
	em, err := reg.Entity("config")
	require.NoError(t, err)

	q := newFakeQueryer()
	q.stub("config", []conn.Row{{"id": int64(1)}})
	q.stub("config$attrs", []conn.Row{
		{"key": "a", "value": int64(1)},
		{"key": "b", "value": int64(2)},
	})

	e, err := em.Load(context.Background(), q, 1)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, map[any]any{"a": int64(1), "b": int64(2)}, e.Get("attrs"))
}

func TestOptionalMapping(t *testing.T) {
	reg := NewRegistry()
	def := shape.EntityDef{
		Name: "article",
		Fields: []shape.Field{
			{Name: "title", Shape: shape.Shape{Kind: shape.Text}},
			{Name: "subtitle", Shape: shape.Shape{Kind: shape.Option, Elem: &shape.Shape{Kind: shape.Text}}},
		},
	}
	require.NoError(t, reg.Register(def))
	em, err := reg.Entity("article")
	require.NoError(t, err)

	tables := em.Tables()
	col, ok := tables[0].Column("subtitle")
	require.True(t, ok)
	assert.True(t, col.Nullable)

	q := newFakeQueryer()
	_, err = em.Save(context.Background(), q, shape.Transient(shape.Record{
		"title":    "A",
		"subtitle": nil,
	}))
	require.NoError(t, err)

	inserts := q.opsFor("insert")
	require.Len(t, inserts, 1)
	sub, present := cellValue(inserts[0].cells, "subtitle")
	assert.True(t, present, "absent optionals still write a NULL cell")
	assert.Nil(t, sub)

	q.stub("article", []conn.Row{{"id": int64(1), "title": "A", "subtitle": nil}})
	e, err := em.Load(context.Background(), q, 1)
	require.NoError(t, err)
	assert.Nil(t, e.Get("subtitle"))
}

func TestOptionalContainerRejected(t *testing.T) {
	reg := NewRegistry()
	def := shape.EntityDef{
		Name: "article",
		Fields: []shape.Field{
			{Name: "tags", Shape: shape.Shape{
				Kind: shape.Option,
				Elem: &shape.Shape{Kind: shape.Seq, Elem: &shape.Shape{Kind: shape.Text}},
			}},
		},
	}
	assert.Error(t, reg.Register(def))
}

func TestRefMapping(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(shape.EntityDef{
		Name:   "author",
		Fields: []shape.Field{{Name: "name", Shape: shape.Shape{Kind: shape.Text}}},
	}))
	require.NoError(t, reg.Register(shape.EntityDef{
		Name: "article",
		Fields: []shape.Field{
			{Name: "title", Shape: shape.Shape{Kind: shape.Text}},
			{Name: "author", Shape: shape.Shape{Kind: shape.Ref, Entity: "author"}},
		},
	}))
	em, err := reg.Entity("article")
	require.NoError(t, err)

	tables := em.Tables()
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"id", "title", "author$id"}, tables[0].ColumnNames())
	require.Len(t, tables[0].ForeignKeys, 1)
	assert.Equal(t, "author", tables[0].ForeignKeys[0].TargetTable)

	// Saving with a transient reference is an identity error.
	q := newFakeQueryer()
	_, err = em.Save(context.Background(), q, shape.Transient(shape.Record{
		"title":  "A",
		"author": shape.Transient(shape.Record{"name": "Ada"}),
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotPersisted))

	// A persisted reference stores its id.
	q = newFakeQueryer()
	saved, err := em.Save(context.Background(), q, shape.Transient(shape.Record{
		"title":  "A",
		"author": shape.Persisted(5, shape.Record{"name": "Ada"}),
	}))
	require.NoError(t, err)
	require.True(t, saved.IsPersisted())
	inserts := q.opsFor("insert")
	authorID, _ := cellValue(inserts[0].cells, "author$id")
	assert.Equal(t, int64(5), authorID)
}

func TestRefLoadEager(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(shape.EntityDef{
		Name:   "author",
		Fields: []shape.Field{{Name: "name", Shape: shape.Shape{Kind: shape.Text}}},
	}))
	require.NoError(t, reg.Register(shape.EntityDef{
		Name: "article",
		Fields: []shape.Field{
			{Name: "author", Shape: shape.Shape{Kind: shape.Ref, Entity: "author"}},
		},
	}))
	em, err := reg.Entity("article")
	require.NoError(t, err)

	q := newFakeQueryer()
	q.stub("article", []conn.Row{{"id": int64(1), "author$id": int64(5)}})
	q.stub("author", []conn.Row{{"id": int64(5), "name": "Ada"}})

	e, err := em.Load(context.Background(), q, 1)
	require.NoError(t, err)
	author, ok := e.Get("author").(*shape.Entity)
	require.True(t, ok)
	assert.Equal(t, int64(5), author.ID())
	assert.Equal(t, "Ada", author.Get("name"))
}
