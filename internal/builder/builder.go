// Package builder walks the schema fragments of all registered entities,
// validates them globally and produces the CREATE TABLE script for a target
// dialect. Schema creation is an explicit mode: Create issues DDL and lets
// the store fail on pre-existing tables; Assume trusts an existing
// compatible schema and issues nothing. There is no diff/migrate mode.
package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/tordrt/relstore/internal/conn"
	"github.com/tordrt/relstore/internal/ddl"
	"github.com/tordrt/relstore/internal/schema"
)

// ErrTableCollision reports two structurally different table definitions
// claiming the same name.
var ErrTableCollision = errors.New("schema fragments collide on table name")

// Mode selects the schema-creation policy.
type Mode int

const (
	// Create issues CREATE TABLE statements; existing tables surface as
	// store errors.
	Create Mode = iota
	// Assume performs no DDL and trusts the existing schema.
	Assume
)

// Collect validates each fragment, deduplicates structurally identical
// tables and rejects name collisions: two distinct definitions claiming the
// same table name is a fatal configuration error, reported before any DDL
// executes.
func Collect(tables []schema.Table) ([]schema.Table, error) {
	seen := make(map[string]*schema.Table, len(tables))
	var out []schema.Table
	for i := range tables {
		t := tables[i]
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if prev, ok := seen[t.Name]; ok {
			if !prev.Equal(&t) {
				return nil, fmt.Errorf("%w %s", ErrTableCollision, t.Name)
			}
			continue
		}
		out = append(out, t)
		seen[t.Name] = &out[len(out)-1]
	}
	return out, nil
}

// Statements renders the full creation script for the dialect: CREATE TABLE
// statements (dependency-ordered when foreign keys are inline), separate
// CREATE INDEX statements where the dialect needs them, and deferred
// ALTER TABLE foreign keys for two-phase dialects.
func Statements(d ddl.Dialect, tables []schema.Table, mode Mode) ([]string, error) {
	if mode == Assume {
		return nil, nil
	}

	collected, err := Collect(tables)
	if err != nil {
		return nil, err
	}

	ordered := collected
	if !d.DeferForeignKeys() {
		sorted, acyclic := sortByDependency(collected)
		if acyclic {
			ordered = sorted
		}
		// On a cycle keep registration order; inline-FK dialects that do
		// not check references at DDL time accept forward references.
	}

	var stmts []string
	for i := range ordered {
		stmts = append(stmts, ddl.CreateTable(d, &ordered[i]))
	}
	for i := range ordered {
		stmts = append(stmts, ddl.CreateIndexes(d, &ordered[i])...)
	}
	for i := range ordered {
		stmts = append(stmts, ddl.AddForeignKeys(d, &ordered[i])...)
	}
	return stmts, nil
}

// Execute renders the creation script and runs it inside one transaction on
// the given connection.
func Execute(ctx context.Context, c conn.Conn, d ddl.Dialect, tables []schema.Table, mode Mode) error {
	stmts, err := Statements(d, tables, mode)
	if err != nil {
		return err
	}
	if len(stmts) == 0 {
		return nil
	}
	return c.Transaction(ctx, func(q conn.Queryer) error {
		for _, stmt := range stmts {
			if err := q.Execute(ctx, stmt); err != nil {
				return fmt.Errorf("schema creation failed: %w", err)
			}
		}
		return nil
	})
}
