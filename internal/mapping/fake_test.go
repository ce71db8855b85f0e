package mapping

import (
	"context"
	"time"

	"github.com/tordrt/relstore/internal/conn"
)

// fakeQueryer records every statement the mapping tree issues and serves
// canned Select results per table, in order.
type fakeQueryer struct {
	ops     []fakeOp
	nextID  int64
	selects map[string][][]conn.Row
}

type fakeOp struct {
	verb  string
	table string
	cells []conn.Cell
	where []conn.Cell
}

func newFakeQueryer() *fakeQueryer {
	return &fakeQueryer{selects: make(map[string][][]conn.Row)}
}

func (f *fakeQueryer) stub(table string, rows []conn.Row) {
	f.selects[table] = append(f.selects[table], rows)
}

func (f *fakeQueryer) Execute(_ context.Context, sql string, _ ...any) error {
	f.ops = append(f.ops, fakeOp{verb: "execute", table: sql})
	return nil
}

func (f *fakeQueryer) Query(_ context.Context, sql string, _ ...any) ([]conn.Row, error) {
	f.ops = append(f.ops, fakeOp{verb: "query", table: sql})
	return nil, nil
}

func (f *fakeQueryer) Select(_ context.Context, table string, _ []string, where []conn.Cell, _ []string) ([]conn.Row, error) {
	f.ops = append(f.ops, fakeOp{verb: "select", table: table, where: where})
	queued := f.selects[table]
	if len(queued) == 0 {
		return nil, nil
	}
	rows := queued[0]
	f.selects[table] = queued[1:]
	return rows, nil
}

func (f *fakeQueryer) Insert(_ context.Context, table string, cells []conn.Cell) (int64, error) {
	f.nextID++
	f.ops = append(f.ops, fakeOp{verb: "insert", table: table, cells: cells})
	return f.nextID, nil
}

func (f *fakeQueryer) InsertNoKey(_ context.Context, table string, cells []conn.Cell) error {
	f.ops = append(f.ops, fakeOp{verb: "insertRow", table: table, cells: cells})
	return nil
}

func (f *fakeQueryer) Update(_ context.Context, table string, set, where []conn.Cell) error {
	f.ops = append(f.ops, fakeOp{verb: "update", table: table, cells: set, where: where})
	return nil
}

func (f *fakeQueryer) Delete(_ context.Context, table string, where []conn.Cell) error {
	f.ops = append(f.ops, fakeOp{verb: "delete", table: table, where: where})
	return nil
}

func (f *fakeQueryer) Now(context.Context) (time.Time, error) {
	return time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), nil
}

func (f *fakeQueryer) opsFor(verb string) []fakeOp {
	var out []fakeOp
	for _, o := range f.ops {
		if o.verb == verb {
			out = append(out, o)
		}
	}
	return out
}

func cellValue(cells []conn.Cell, column string) (any, bool) {
	for _, c := range cells {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}
