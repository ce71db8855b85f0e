package ddl

import (
	"fmt"

	"github.com/tordrt/relstore/internal/schema"
)

// Postgres renders DDL for PostgreSQL. Identity columns use BIGSERIAL,
// booleans map to the smallest integer type and enums become
// CHECK-constrained text.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdent(name string) string { return `"` + name + `"` }

func (Postgres) Placeholder(i int) string { return fmt.Sprintf("$%d", i) }

func (d Postgres) ColumnType(name string, t schema.ColumnType) string {
	switch t.Kind {
	case schema.Integer:
		return "INTEGER"
	case schema.BigInt:
		return "BIGINT"
	case schema.SmallInt, schema.TinyInt, schema.Boolean:
		return "SMALLINT"
	case schema.Float:
		return "REAL"
	case schema.Double:
		return "DOUBLE PRECISION"
	case schema.Decimal:
		return fmt.Sprintf("NUMERIC(%d, %d)", t.Precision, t.Scale)
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

func (d Postgres) AutoIncrementColumn(name string) (string, bool) {
	return d.QuoteIdent(name) + " BIGSERIAL", false
}

func (Postgres) InlineIndexes() bool { return false }

func (Postgres) DeferForeignKeys() bool { return true }
