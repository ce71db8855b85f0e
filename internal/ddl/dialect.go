// Package ddl renders schema model tables as dialect-specific SQL DDL.
// Rendering is deterministic and total over structurally valid tables;
// structural validation is the schema builder's job, not the renderer's.
package ddl

import (
	"fmt"

	"github.com/tordrt/relstore/internal/schema"
)

// Dialect is the pluggable surface of the renderer. Implementations supply a
// total mapping from column types to type tokens plus the few syntactic
// details that differ between stores. Everything else in this package is
// dialect-neutral.
type Dialect interface {
	// Name identifies the dialect ("sqlite", "mysql", "postgres").
	Name() string

	// QuoteIdent quotes a table or column identifier.
	QuoteIdent(name string) string

	// Placeholder returns the parameter placeholder for 1-based position i.
	Placeholder(i int) string

	// ColumnType renders the type token for a column. The column name is
	// supplied because some dialects render enums as CHECK constraints that
	// reference the column.
	ColumnType(name string, t schema.ColumnType) string

	// AutoIncrementColumn renders the full definition of an auto-increment
	// identity column. inlinePK reports whether the definition already
	// declares the primary key, in which case the table-level PRIMARY KEY
	// clause is omitted.
	AutoIncrementColumn(name string) (def string, inlinePK bool)

	// InlineIndexes reports whether plain indexes may appear as clauses
	// inside CREATE TABLE. Dialects without inline indexes get separate
	// CREATE INDEX statements.
	InlineIndexes() bool

	// DeferForeignKeys reports whether foreign keys are added in a second
	// phase (ALTER TABLE) after all tables exist, instead of inline.
	DeferForeignKeys() bool
}

// ByName returns the dialect registered under the given name.
func ByName(name string) (Dialect, error) {
	switch name {
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "mysql":
		return MySQL{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	}
	return nil, fmt.Errorf("unknown dialect: %s", name)
}
