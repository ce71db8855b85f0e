package ddl

import (
	"fmt"
	"strings"

	"github.com/tordrt/relstore/internal/schema"
)

// CreateTable renders one CREATE TABLE statement. Fragment order inside the
// body is fixed: column definitions, primary key, indexes (dialects that
// support them inline), unique keys, foreign keys (unless the dialect defers
// them to AddForeignKeys).
func CreateTable(d Dialect, t *schema.Table) string {
	var clauses []string
	inlinePK := false

	for _, c := range t.Columns {
		if c.AutoIncrement {
			def, inline := d.AutoIncrementColumn(c.Name)
			inlinePK = inlinePK || inline
			clauses = append(clauses, def)
			continue
		}
		clauses = append(clauses, columnDef(d, c))
	}

	if len(t.PrimaryKey) > 0 && !inlinePK {
		clauses = append(clauses, fmt.Sprintf("PRIMARY KEY (%s)", identList(d, t.PrimaryKey)))
	}

	if d.InlineIndexes() {
		for _, idx := range t.Indexes {
			clauses = append(clauses, fmt.Sprintf("INDEX (%s)", identList(d, idx.Columns)))
		}
	}

	for _, uk := range t.UniqueKeys {
		clauses = append(clauses, fmt.Sprintf("UNIQUE (%s)", identList(d, uk.Columns)))
	}

	if !d.DeferForeignKeys() {
		for _, fk := range t.ForeignKeys {
			clauses = append(clauses, foreignKeyClause(d, fk))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", d.QuoteIdent(t.Name))
	for i, clause := range clauses {
		b.WriteString("  ")
		b.WriteString(clause)
		if i < len(clauses)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// CreateIndexes renders the separate CREATE INDEX statements for dialects
// that do not support inline index clauses. Index names are derived from the
// table name and column list so rendering stays deterministic.
func CreateIndexes(d Dialect, t *schema.Table) []string {
	if d.InlineIndexes() {
		return nil
	}
	var stmts []string
	for _, idx := range t.Indexes {
		name := indexName(t.Name, idx.Columns)
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
			d.QuoteIdent(name), d.QuoteIdent(t.Name), identList(d, idx.Columns)))
	}
	return stmts
}

// AddForeignKeys renders ALTER TABLE statements for two-phase foreign key
// creation. Empty for dialects that render foreign keys inline.
func AddForeignKeys(d Dialect, t *schema.Table) []string {
	if !d.DeferForeignKeys() {
		return nil
	}
	var stmts []string
	for _, fk := range t.ForeignKeys {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD %s",
			d.QuoteIdent(t.Name), foreignKeyClause(d, fk)))
	}
	return stmts
}

func columnDef(d Dialect, c schema.Column) string {
	def := d.QuoteIdent(c.Name) + " " + d.ColumnType(c.Name, c.Type)
	if !c.Nullable {
		def += " NOT NULL"
	}
	return def
}

func foreignKeyClause(d Dialect, fk schema.ForeignKey) string {
	return fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		identList(d, fk.LocalColumns),
		d.QuoteIdent(fk.TargetTable),
		identList(d, fk.TargetColumns),
		fk.OnDelete, fk.OnUpdate)
}

func identList(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

func indexName(table string, columns []string) string {
	return "idx_" + table + "_" + strings.Join(columns, "_")
}

func quoteStrings(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}
