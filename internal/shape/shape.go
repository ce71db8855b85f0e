// Package shape describes entity type shapes declaratively. Every entity type
// registers an EntityDef at startup: an ordered field list with nested shapes
// for value objects, collections, maps, optionals and entity references. The
// mapping layer derives the relational schema from these descriptions, so no
// runtime reflection is involved.
package shape

import (
	"fmt"
	"strings"
)

// Kind enumerates the shapes a property can have.
type Kind int

const (
	Text Kind = iota // unbounded string
	Varchar          // bounded string
	Int
	BigInt
	SmallInt
	TinyInt
	Float
	Double
	Decimal
	Bool
	Date
	Time
	Timestamp
	Enum
	Struct // nested value object, flattened into the owner's table
	Seq    // ordered collection, stored in a dependent table
	Map    // scalar-keyed map, stored in a dependent table
	Option // optional value, stored as nullable columns
	Ref    // to-one reference to another entity
)

var kindNames = map[Kind]string{
	Text:      "text",
	Varchar:   "varchar",
	Int:       "int",
	BigInt:    "bigint",
	SmallInt:  "smallint",
	TinyInt:   "tinyint",
	Float:     "float",
	Double:    "double",
	Decimal:   "decimal",
	Bool:      "bool",
	Date:      "date",
	Time:      "time",
	Timestamp: "timestamp",
	Enum:      "enum",
	Struct:    "struct",
	Seq:       "seq",
	Map:       "map",
	Option:    "option",
	Ref:       "ref",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Scalar reports whether the kind maps to exactly one column.
func (k Kind) Scalar() bool {
	switch k {
	case Struct, Seq, Map, Option, Ref:
		return false
	}
	return true
}

// Shape is the recursive type description of one property.
type Shape struct {
	Kind      Kind
	Length    int      // Varchar; 0 means default
	Precision int      // Decimal
	Scale     int      // Decimal
	Values    []string // Enum, in declaration order
	Fields    []Field  // Struct
	Elem      *Shape   // Seq, Option element; Map value
	Key       *Shape   // Map key, must be scalar
	Entity    string   // Ref target entity name
}

// Field is one named property of a struct shape or entity.
type Field struct {
	Name  string
	Shape Shape
}

// Settings declares which property-name sets form unique keys and which form
// indexes for one entity type. Immutable after registration.
type Settings struct {
	UniqueKeys [][]string
	Indexes    [][]string
}

// EntityDef is the complete registration-time description of an entity type:
// its name (also the main table name), ordered fields and key settings.
type EntityDef struct {
	Name     string
	Fields   []Field
	Settings Settings
}

// Validate checks an entity definition: non-empty names, no duplicate or
// reserved field names, well-formed nested shapes, and settings that
// reference declared fields only.
func (d *EntityDef) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("entity has no name")
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("entity %s has an unnamed field", d.Name)
		}
		if f.Name == "id" {
			return fmt.Errorf("entity %s: field name id is reserved for the identity column", d.Name)
		}
		if strings.Contains(f.Name, "$") {
			// $ joins derived column paths; a field carrying it could collide
			// with a nested field's column.
			return fmt.Errorf("entity %s: field name %s contains the reserved character $", d.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("entity %s declares field %s twice", d.Name, f.Name)
		}
		seen[f.Name] = true
		if err := f.Shape.validate(); err != nil {
			return fmt.Errorf("entity %s, field %s: %w", d.Name, f.Name, err)
		}
	}
	for _, key := range d.Settings.UniqueKeys {
		if err := checkKeyFields(seen, key); err != nil {
			return fmt.Errorf("entity %s unique key: %w", d.Name, err)
		}
	}
	for _, key := range d.Settings.Indexes {
		if err := checkKeyFields(seen, key); err != nil {
			return fmt.Errorf("entity %s index: %w", d.Name, err)
		}
	}
	return nil
}

func checkKeyFields(declared map[string]bool, key []string) error {
	if len(key) == 0 {
		return fmt.Errorf("empty property set")
	}
	for _, name := range key {
		if !declared[name] {
			return fmt.Errorf("references undeclared property %s", name)
		}
	}
	return nil
}

func (s *Shape) validate() error {
	switch s.Kind {
	case Enum:
		if len(s.Values) == 0 {
			return fmt.Errorf("enum shape has no values")
		}
	case Struct:
		if len(s.Fields) == 0 {
			return fmt.Errorf("struct shape has no fields")
		}
		seen := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			if f.Name == "" {
				return fmt.Errorf("struct shape has an unnamed field")
			}
			if strings.Contains(f.Name, "$") {
				return fmt.Errorf("struct field name %s contains the reserved character $", f.Name)
			}
			if seen[f.Name] {
				return fmt.Errorf("struct shape declares field %s twice", f.Name)
			}
			seen[f.Name] = true
			if err := f.Shape.validate(); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
	case Seq, Option:
		if s.Elem == nil {
			return fmt.Errorf("%s shape has no element shape", s.Kind)
		}
		return s.Elem.validate()
	case Map:
		if s.Key == nil || s.Elem == nil {
			return fmt.Errorf("map shape needs key and element shapes")
		}
		if !s.Key.Kind.Scalar() {
			return fmt.Errorf("map key shape must be scalar, got %s", s.Key.Kind)
		}
		if err := s.Key.validate(); err != nil {
			return err
		}
		return s.Elem.validate()
	case Ref:
		if s.Entity == "" {
			return fmt.Errorf("ref shape names no target entity")
		}
	}
	return nil
}
