package ddl

import (
	"fmt"

	"github.com/tordrt/relstore/internal/schema"
)

// SQLite renders DDL for SQLite. Foreign keys are inline (SQLite has no
// ALTER TABLE ADD CONSTRAINT) and enums become CHECK-constrained text.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteIdent(name string) string { return `"` + name + `"` }

func (SQLite) Placeholder(int) string { return "?" }

func (d SQLite) ColumnType(name string, t schema.ColumnType) string {
	switch t.Kind {
	case schema.Integer:
		return "INTEGER"
	case schema.BigInt:
		return "BIGINT"
	case schema.SmallInt:
		return "SMALLINT"
	case schema.TinyInt, schema.Boolean:
		return "TINYINT"
	case schema.Float:
		return "FLOAT"
	case schema.Double:
		return "DOUBLE"
	case schema.Decimal:
		return fmt.Sprintf("DECIMAL(%d, %d)", t.Precision, t.Scale)
	case schema.VarChar:
		length := t.Length
		if length == 0 {
			length = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", length)
	case schema.Text:
		return "TEXT"
	case schema.Date:
		return "DATE"
	case schema.Time:
		return "TIME"
	case schema.TimeStamp:
		return "TIMESTAMP"
	case schema.Enum:
		return fmt.Sprintf("TEXT CHECK (%s IN (%s))", d.QuoteIdent(name), quoteStrings(t.Values))
	}
	return "TEXT"
}

// AutoIncrementColumn declares the rowid alias. SQLite requires the exact
// form INTEGER PRIMARY KEY AUTOINCREMENT, which also declares the key.
func (d SQLite) AutoIncrementColumn(name string) (string, bool) {
	return d.QuoteIdent(name) + " INTEGER PRIMARY KEY AUTOINCREMENT", true
}

func (SQLite) InlineIndexes() bool { return false }

func (SQLite) DeferForeignKeys() bool { return false }
