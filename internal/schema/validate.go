package schema

import (
	"fmt"
	"slices"
)

// Validate checks the structural invariants of a single table:
// every column referenced by the primary key, unique keys, indexes and
// foreign keys exists; auto-increment columns form a single-column primary
// key; foreign key bindings have matching arity of at least one.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table has no name")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.Name)
	}

	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("table %s has an unnamed column", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("table %s declares column %s twice", t.Name, c.Name)
		}
		seen[c.Name] = true
	}

	for _, name := range t.PrimaryKey {
		if !seen[name] {
			return fmt.Errorf("table %s: primary key references unknown column %s", t.Name, name)
		}
	}
	for _, uk := range t.UniqueKeys {
		for _, name := range uk.Columns {
			if !seen[name] {
				return fmt.Errorf("table %s: unique key references unknown column %s", t.Name, name)
			}
		}
	}
	for _, idx := range t.Indexes {
		for _, name := range idx.Columns {
			if !seen[name] {
				return fmt.Errorf("table %s: index references unknown column %s", t.Name, name)
			}
		}
	}
	for _, fk := range t.ForeignKeys {
		if len(fk.LocalColumns) == 0 {
			return fmt.Errorf("table %s: foreign key to %s has no bindings", t.Name, fk.TargetTable)
		}
		if len(fk.LocalColumns) != len(fk.TargetColumns) {
			return fmt.Errorf("table %s: foreign key to %s has mismatched binding arity", t.Name, fk.TargetTable)
		}
		for _, name := range fk.LocalColumns {
			if !seen[name] {
				return fmt.Errorf("table %s: foreign key references unknown local column %s", t.Name, name)
			}
		}
	}

	for _, c := range t.Columns {
		if !c.AutoIncrement {
			continue
		}
		if len(t.PrimaryKey) != 1 || t.PrimaryKey[0] != c.Name {
			return fmt.Errorf("table %s: auto-increment column %s must be the single primary key column", t.Name, c.Name)
		}
	}

	return nil
}

// Equal reports structural equality of two tables. Used by the schema builder
// to distinguish a harmless duplicate fragment from a name collision.
func (t *Table) Equal(other *Table) bool {
	if t.Name != other.Name ||
		!slices.Equal(t.PrimaryKey, other.PrimaryKey) ||
		len(t.Columns) != len(other.Columns) ||
		len(t.UniqueKeys) != len(other.UniqueKeys) ||
		len(t.Indexes) != len(other.Indexes) ||
		len(t.ForeignKeys) != len(other.ForeignKeys) {
		return false
	}
	for i, c := range t.Columns {
		o := other.Columns[i]
		if c.Name != o.Name || c.Nullable != o.Nullable || c.AutoIncrement != o.AutoIncrement {
			return false
		}
		if c.Type.Kind != o.Type.Kind || c.Type.Length != o.Type.Length ||
			c.Type.Precision != o.Type.Precision || c.Type.Scale != o.Type.Scale ||
			!slices.Equal(c.Type.Values, o.Type.Values) {
			return false
		}
	}
	for i := range t.UniqueKeys {
		if !slices.Equal(t.UniqueKeys[i].Columns, other.UniqueKeys[i].Columns) {
			return false
		}
	}
	for i := range t.Indexes {
		if !slices.Equal(t.Indexes[i].Columns, other.Indexes[i].Columns) {
			return false
		}
	}
	for i, fk := range t.ForeignKeys {
		o := other.ForeignKeys[i]
		if fk.TargetTable != o.TargetTable ||
			!slices.Equal(fk.LocalColumns, o.LocalColumns) ||
			!slices.Equal(fk.TargetColumns, o.TargetColumns) ||
			fk.OnDelete != o.OnDelete || fk.OnUpdate != o.OnUpdate {
			return false
		}
	}
	return true
}
