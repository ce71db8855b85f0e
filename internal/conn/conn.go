// Package conn is the connection/transaction collaborator consumed by the
// mapping layer. It owns every piece of non-DDL statement text: simple
// per-row select/insert/update/delete builders parameterized by the dialect's
// quoting and placeholder style. Two implementations exist: database/sql
// (SQLite, MySQL) and pgx (PostgreSQL).
package conn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tordrt/relstore/internal/ddl"
)

// ErrGeneratedKey is an integrity failure: the store returned zero or an
// unusable generated key for a single-row insert.
var ErrGeneratedKey = errors.New("store returned no usable generated key")

// Cell is one named column value, used for row writes and WHERE matching.
type Cell struct {
	Column string
	Value  any
}

// Row is a result row keyed by column name.
type Row map[string]any

// Queryer is the statement surface available both on a pooled connection and
// inside a transaction.
type Queryer interface {
	// Execute runs a statement that returns no rows.
	Execute(ctx context.Context, sql string, args ...any) error

	// Query runs raw statement text and returns all rows. Only the
	// persistence orchestrator's explicit raw-fetch entry point passes
	// caller-supplied text here.
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)

	// Select reads the named columns of all rows matching the where cells,
	// optionally ordered.
	Select(ctx context.Context, table string, columns []string, where []Cell, orderBy []string) ([]Row, error)

	// Insert writes one row and returns the store-generated key.
	Insert(ctx context.Context, table string, cells []Cell) (int64, error)

	// InsertNoKey writes one row into a table without a generated key
	// (dependent tables).
	InsertNoKey(ctx context.Context, table string, cells []Cell) error

	// Update rewrites the set cells of all rows matching the where cells.
	Update(ctx context.Context, table string, set, where []Cell) error

	// Delete removes all rows matching the where cells.
	Delete(ctx context.Context, table string, where []Cell) error

	// Now returns the store's current timestamp.
	Now(ctx context.Context) (time.Time, error)
}

// Conn adds transaction demarcation and lifecycle to Queryer. All statements
// issued by one logical operation run either on the connection directly
// (implicit single-statement scope) or on the Queryer passed to the
// Transaction body; a failure inside the body rolls back every statement
// issued earlier in the same scope.
type Conn interface {
	Queryer
	Transaction(ctx context.Context, fn func(q Queryer) error) error
	Close() error
}

// PoolConfig bounds the connection pool shared by concurrent callers. A
// request that cannot obtain a connection blocks until one frees up or
// AcquireTimeout elapses.
type PoolConfig struct {
	MaxOpen        int
	MaxIdle        int
	AcquireTimeout time.Duration
}

// DefaultPoolConfig is used when no pool configuration is supplied.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxOpen: 8, MaxIdle: 4, AcquireTimeout: 30 * time.Second}
}

func selectSQL(d ddl.Dialect, table string, columns []string, where []Cell, orderBy []string) (string, []any) {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.QuoteIdent(c)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), d.QuoteIdent(table))
	args := appendWhere(&b, d, where, 0)
	if len(orderBy) > 0 {
		ordered := make([]string, len(orderBy))
		for i, c := range orderBy {
			ordered[i] = d.QuoteIdent(c)
		}
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(ordered, ", "))
	}
	return b.String(), args
}

func insertSQL(d ddl.Dialect, table string, cells []Cell) (string, []any) {
	if len(cells) == 0 {
		return emptyInsertSQL(d, table), nil
	}
	cols := make([]string, len(cells))
	marks := make([]string, len(cells))
	args := make([]any, len(cells))
	for i, c := range cells {
		cols[i] = d.QuoteIdent(c.Column)
		marks[i] = d.Placeholder(i + 1)
		args[i] = c.Value
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	return stmt, args
}

// emptyInsertSQL covers entities whose properties contribute no inline
// columns; the row then consists of the generated key alone.
func emptyInsertSQL(d ddl.Dialect, table string) string {
	if d.Name() == "mysql" {
		return fmt.Sprintf("INSERT INTO %s () VALUES ()", d.QuoteIdent(table))
	}
	return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", d.QuoteIdent(table))
}

func updateSQL(d ddl.Dialect, table string, set, where []Cell) (string, []any) {
	assignments := make([]string, len(set))
	args := make([]any, 0, len(set)+len(where))
	for i, c := range set {
		assignments[i] = fmt.Sprintf("%s = %s", d.QuoteIdent(c.Column), d.Placeholder(i+1))
		args = append(args, c.Value)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", d.QuoteIdent(table), strings.Join(assignments, ", "))
	args = append(args, appendWhere(&b, d, where, len(set))...)
	return b.String(), args
}

func deleteSQL(d ddl.Dialect, table string, where []Cell) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", d.QuoteIdent(table))
	args := appendWhere(&b, d, where, 0)
	return b.String(), args
}

func appendWhere(b *strings.Builder, d ddl.Dialect, where []Cell, offset int) []any {
	if len(where) == 0 {
		return nil
	}
	conds := make([]string, 0, len(where))
	args := make([]any, 0, len(where))
	n := offset
	for _, c := range where {
		if c.Value == nil {
			conds = append(conds, fmt.Sprintf("%s IS NULL", d.QuoteIdent(c.Column)))
			continue
		}
		n++
		conds = append(conds, fmt.Sprintf("%s = %s", d.QuoteIdent(c.Column), d.Placeholder(n)))
		args = append(args, c.Value)
	}
	fmt.Fprintf(b, " WHERE %s", strings.Join(conds, " AND "))
	return args
}
