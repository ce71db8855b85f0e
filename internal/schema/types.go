// Package schema holds the relational schema model: immutable descriptions of
// tables, columns, keys, indexes and foreign keys. Values here carry no
// behavior beyond structural equality; validation lives in validate.go and
// rendering in internal/ddl.
package schema

// ColumnKind enumerates the storage types a column can have.
type ColumnKind int

const (
	Integer ColumnKind = iota
	BigInt
	SmallInt
	TinyInt
	Float
	Double
	Decimal
	Boolean
	VarChar
	Text
	Date
	Time
	TimeStamp
	Enum
)

var columnKindNames = map[ColumnKind]string{
	Integer:   "integer",
	BigInt:    "bigint",
	SmallInt:  "smallint",
	TinyInt:   "tinyint",
	Float:     "float",
	Double:    "double",
	Decimal:   "decimal",
	Boolean:   "boolean",
	VarChar:   "varchar",
	Text:      "text",
	Date:      "date",
	Time:      "time",
	TimeStamp: "timestamp",
	Enum:      "enum",
}

func (k ColumnKind) String() string {
	if s, ok := columnKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ColumnType is a kind plus the kind-specific parameters some dialects need
// to render it (VarChar length, Decimal precision/scale, Enum values).
type ColumnType struct {
	Kind      ColumnKind
	Length    int      // VarChar; 0 means the dialect default
	Precision int      // Decimal
	Scale     int      // Decimal
	Values    []string // Enum, in declaration order
}

// Column describes one table column.
type Column struct {
	Name          string
	Type          ColumnType
	Nullable      bool
	AutoIncrement bool
}

// ReferenceOption is the referential action applied when a referenced row is
// deleted or updated.
type ReferenceOption int

const (
	Restrict ReferenceOption = iota
	Cascade
	NoAction
	SetNull
	SetDefault
)

func (o ReferenceOption) String() string {
	switch o {
	case Cascade:
		return "CASCADE"
	case NoAction:
		return "NO ACTION"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	default:
		return "RESTRICT"
	}
}

// ForeignKey links local columns to the referenced columns of a target table.
// Bindings are ordered: LocalColumns[i] references TargetColumns[i].
type ForeignKey struct {
	TargetTable   string
	LocalColumns  []string
	TargetColumns []string
	OnDelete      ReferenceOption
	OnUpdate      ReferenceOption
}

// UniqueKey is an ordered set of column names forming a uniqueness constraint.
type UniqueKey struct {
	Columns []string
}

// Index is an ordered set of column names to index.
type Index struct {
	Columns []string
}

// Table is a complete table definition. PrimaryKey may be empty for dependent
// tables that have no identity of their own.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string
	UniqueKeys  []UniqueKey
	Indexes     []Index
	ForeignKeys []ForeignKey
}

// Column returns the named column and whether it exists.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the names of all columns in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
