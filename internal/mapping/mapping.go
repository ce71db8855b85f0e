// Package mapping implements the mapping tree: the recursive composition of
// per-property translator nodes bridging object-level values and relational
// rows. Every property of a registered entity is represented by one node.
// Each node derives the schema fragments it needs, converts values to and
// from row cells, and orchestrates dependent-table writes scoped to a parent
// key. Nodes are built once at registration time and are immutable.
package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/tordrt/relstore/internal/conn"
	"github.com/tordrt/relstore/internal/schema"
	"github.com/tordrt/relstore/internal/shape"
)

var (
	// ErrNotPersisted is the identity error: delete or reference through a
	// value that was never saved.
	ErrNotPersisted = errors.New("entity value has no identity (never saved)")

	// ErrNotRegistered is raised when an operation names an entity type the
	// registry does not know.
	ErrNotRegistered = errors.New("entity type is not registered")

	// ErrNoUniqueKeys is raised when SaveByUniqueKeys is invoked for a type
	// whose settings declare no unique keys.
	ErrNoUniqueKeys = errors.New("entity type declares no unique keys")

	// ErrBadIDColumn is an integrity error: a result row carried a missing or
	// unusable id value.
	ErrBadIDColumn = errors.New("result row has no usable id value")
)

// Key identifies the owning row a dependent-table operation is scoped to: a
// sequence of column values, multi-column for nested containers.
type Key []conn.Cell

// Mapping is the capability every tree node exposes.
type Mapping interface {
	// Tables returns the dependent tables this node and everything beneath
	// it require. Value nodes contribute none.
	Tables() []schema.Table

	// Columns returns the columns this node adds inline to whatever table
	// is assembling its row. Container nodes contribute none.
	Columns() []schema.Column

	// Encode decomposes an object-level value into named cells for the
	// containing table's row. Inverse of the row half of Decode.
	Encode(value any) ([]conn.Cell, error)

	// Decode reconstructs the object-level value from a row view holding
	// this node's columns, fetching dependent-table rows for the given
	// parent key where the shape requires it.
	Decode(ctx context.Context, q conn.Queryer, row conn.Row, parent Key) (any, error)

	// Insert writes dependent-table rows for a freshly inserted owner.
	Insert(ctx context.Context, q conn.Queryer, value any, parent Key) error

	// Update rewrites dependent-table rows for an existing owner. Container
	// nodes delete all child rows and reinsert; no diffing.
	Update(ctx context.Context, q conn.Queryer, value any, parent Key) error

	// Delete removes dependent-table rows for the parent key.
	Delete(ctx context.Context, q conn.Queryer, parent Key) error
}

// buildContext carries the naming and key state threaded through recursive
// mapping construction.
type buildContext struct {
	registry   *Registry
	rootTable  string          // entity main table; target of every cascade FK
	ownerTable string          // table the node's columns or child tables hang off
	keyColumns []schema.Column // key columns a dependent table at this level must carry
}

// build dispatches on the shape kind, mirroring the tree structure of the
// declared type. path is the node's column-name prefix inside ownerTable.
func build(bc buildContext, path string, s shape.Shape) (Mapping, error) {
	switch s.Kind {
	case shape.Struct:
		return newStructMapping(bc, path, s)
	case shape.Seq:
		return newSliceMapping(bc, path, s)
	case shape.Map:
		return newMapMapping(bc, path, s)
	case shape.Option:
		return newOptionalMapping(bc, path, s)
	case shape.Ref:
		return newRefMapping(bc, path, s)
	default:
		return newValueMapping(path, s)
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "$" + name
}

func columnNames(cols []schema.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func invalidValue(path string, want string, got any) error {
	return fmt.Errorf("property %s: expected %s value, got %T", path, want, got)
}
