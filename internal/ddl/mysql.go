package ddl

import (
	"fmt"

	"github.com/tordrt/relstore/internal/schema"
)

// MySQL renders DDL for MySQL. Enums use the native ENUM type, indexes are
// inline clauses and foreign keys are added in a second phase so table
// creation order never matters.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdent(name string) string { return "`" + name + "`" }

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) ColumnType(_ string, t schema.ColumnType) string {
	switch t.Kind {
	case schema.Integer:
		return "INT"
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
		return fmt.Sprintf("ENUM(%s)", quoteStrings(t.Values))
	}
	return "TEXT"
}

func (d MySQL) AutoIncrementColumn(name string) (string, bool) {
	return d.QuoteIdent(name) + " BIGINT NOT NULL AUTO_INCREMENT", false
}

func (MySQL) InlineIndexes() bool { return true }

func (MySQL) DeferForeignKeys() bool { return true }
