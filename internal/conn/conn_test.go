package conn

import (
	"testing"

	"github.com/tordrt/relstore/internal/ddl"
)

func TestInsertSQL(t *testing.T) {
	cells := []Cell{{Column: "title", Value: "A"}, {Column: "draft", Value: 1}}

	stmt, args := insertSQL(ddl.SQLite{}, "article", cells)
	want := `INSERT INTO "article" ("title", "draft") VALUES (?, ?)`
	if stmt != want {
		t.Errorf("Expected %q, got %q", want, stmt)
	}
	if len(args) != 2 || args[0] != "A" || args[1] != 1 {
		t.Errorf("Unexpected args: %v", args)
	}

	stmt, _ = insertSQL(ddl.Postgres{}, "article", cells)
	want = `INSERT INTO "article" ("title", "draft") VALUES ($1, $2)`
	if stmt != want {
		t.Errorf("Expected %q, got %q", want, stmt)
	}
}

func TestInsertSQLEmpty(t *testing.T) {
	stmt, args := insertSQL(ddl.SQLite{}, "marker", nil)
	if stmt != `INSERT INTO "marker" DEFAULT VALUES` {
		t.Errorf("Unexpected statement: %q", stmt)
	}
	if len(args) != 0 {
		t.Errorf("Expected no args, got %v", args)
	}

	stmt, _ = insertSQL(ddl.MySQL{}, "marker", nil)
	if stmt != "INSERT INTO `marker` () VALUES ()" {
		t.Errorf("Unexpected statement: %q", stmt)
	}
}

func TestUpdateSQL(t *testing.T) {
	set := []Cell{{Column: "title", Value: "B"}}
	where := []Cell{{Column: "id", Value: int64(3)}}

	stmt, args := updateSQL(ddl.Postgres{}, "article", set, where)
	want := `UPDATE "article" SET "title" = $1 WHERE "id" = $2`
	if stmt != want {
		t.Errorf("Expected %q, got %q", want, stmt)
	}
	if len(args) != 2 || args[0] != "B" || args[1] != int64(3) {
		t.Errorf("Unexpected args: %v", args)
	}
}

func TestDeleteSQL(t *testing.T) {
	stmt, args := deleteSQL(ddl.SQLite{}, "article$tags", []Cell{{Column: "article$id", Value: int64(1)}})
	want := `DELETE FROM "article$tags" WHERE "article$id" = ?`
	if stmt != want {
		t.Errorf("Expected %q, got %q", want, stmt)
	}
	if len(args) != 1 {
		t.Errorf("Expected 1 arg, got %v", args)
	}
}

func TestSelectSQL(t *testing.T) {
	stmt, args := selectSQL(ddl.SQLite{}, "article$tags",
		[]string{"index", "value"},
		[]Cell{{Column: "article$id", Value: int64(1)}},
		[]string{"index"})
	want := `SELECT "index", "value" FROM "article$tags" WHERE "article$id" = ? ORDER BY "index"`
	if stmt != want {
		t.Errorf("Expected %q, got %q", want, stmt)
	}
	if len(args) != 1 || args[0] != int64(1) {
		t.Errorf("Unexpected args: %v", args)
	}
}

func TestWhereWithNull(t *testing.T) {
	stmt, args := selectSQL(ddl.Postgres{}, "article",
		[]string{"id"},
		[]Cell{{Column: "subtitle", Value: nil}, {Column: "title", Value: "A"}},
		nil)
	want := `SELECT "id" FROM "article" WHERE "subtitle" IS NULL AND "title" = $1`
	if stmt != want {
		t.Errorf("Expected %q, got %q", want, stmt)
	}
	if len(args) != 1 || args[0] != "A" {
		t.Errorf("Unexpected args: %v", args)
	}
}

func TestParseServerTime(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "2024-05-01 10:30:00"},
		{in: "2024-05-01T10:30:00Z"},
		{in: "not a time", wantErr: true},
	}
	for _, tt := range tests {
		_, err := parseServerTime(tt.in)
		if tt.wantErr && err == nil {
			t.Errorf("Expected error for %q", tt.in)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("Unexpected error for %q: %v", tt.in, err)
		}
	}
}
