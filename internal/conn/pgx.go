package conn

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tordrt/relstore/internal/ddl"
)

// PgxConn implements Conn over a pgx connection pool. Generated keys come
// from RETURNING clauses since PostgreSQL has no LastInsertId.
type PgxConn struct {
	pool    *pgxpool.Pool
	dialect ddl.Dialect
	cfg     PoolConfig
}

// OpenPostgres connects a pooled PostgreSQL client from a postgres:// URL.
func OpenPostgres(ctx context.Context, url string, pool PoolConfig) (*PgxConn, error) {
	if pool.MaxOpen == 0 {
		pool = DefaultPoolConfig()
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	cfg.MaxConns = int32(pool.MaxOpen)

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PgxConn{pool: p, dialect: ddl.Postgres{}, cfg: pool}, nil
}

// Dialect returns the dialect this connection renders statements with.
func (c *PgxConn) Dialect() ddl.Dialect { return c.dialect }

// Close releases the pool.
func (c *PgxConn) Close() error {
	c.pool.Close()
	return nil
}

func (c *PgxConn) acquireCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.AcquireTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.AcquireTimeout)
}

func (c *PgxConn) Execute(ctx context.Context, stmt string, args ...any) error {
	ctx, cancel := c.acquireCtx(ctx)
	defer cancel()
	_, err := c.pool.Exec(ctx, stmt, args...)
	return err
}

func (c *PgxConn) Query(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	ctx, cancel := c.acquireCtx(ctx)
	defer cancel()
	rows, err := c.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return collectPgxRows(rows)
}

func (c *PgxConn) Select(ctx context.Context, table string, columns []string, where []Cell, orderBy []string) ([]Row, error) {
	stmt, args := selectSQL(c.dialect, table, columns, where, orderBy)
	return c.Query(ctx, stmt, args...)
}

func (c *PgxConn) Insert(ctx context.Context, table string, cells []Cell) (int64, error) {
	ctx, cancel := c.acquireCtx(ctx)
	defer cancel()
	return pgxInsert(ctx, c.pool, c.dialect, table, cells)
}

func (c *PgxConn) InsertNoKey(ctx context.Context, table string, cells []Cell) error {
	stmt, args := insertSQL(c.dialect, table, cells)
	return c.Execute(ctx, stmt, args...)
}

func (c *PgxConn) Update(ctx context.Context, table string, set, where []Cell) error {
	stmt, args := updateSQL(c.dialect, table, set, where)
	return c.Execute(ctx, stmt, args...)
}

func (c *PgxConn) Delete(ctx context.Context, table string, where []Cell) error {
	stmt, args := deleteSQL(c.dialect, table, where)
	return c.Execute(ctx, stmt, args...)
}

func (c *PgxConn) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := c.pool.QueryRow(ctx, "SELECT now()").Scan(&now); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

func (c *PgxConn) Transaction(ctx context.Context, fn func(q Queryer) error) error {
	ctx, cancel := c.acquireCtx(ctx)
	defer cancel()

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&pgxTx{tx: tx, dialect: c.dialect}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type pgxTx struct {
	tx      pgx.Tx
	dialect ddl.Dialect
}

func (t *pgxTx) Execute(ctx context.Context, stmt string, args ...any) error {
	_, err := t.tx.Exec(ctx, stmt, args...)
	return err
}

func (t *pgxTx) Query(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	rows, err := t.tx.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return collectPgxRows(rows)
}

func (t *pgxTx) Select(ctx context.Context, table string, columns []string, where []Cell, orderBy []string) ([]Row, error) {
	stmt, args := selectSQL(t.dialect, table, columns, where, orderBy)
	return t.Query(ctx, stmt, args...)
}

func (t *pgxTx) Insert(ctx context.Context, table string, cells []Cell) (int64, error) {
	return pgxInsert(ctx, t.tx, t.dialect, table, cells)
}

func (t *pgxTx) InsertNoKey(ctx context.Context, table string, cells []Cell) error {
	stmt, args := insertSQL(t.dialect, table, cells)
	return t.Execute(ctx, stmt, args...)
}

func (t *pgxTx) Update(ctx context.Context, table string, set, where []Cell) error {
	stmt, args := updateSQL(t.dialect, table, set, where)
	return t.Execute(ctx, stmt, args...)
}

func (t *pgxTx) Delete(ctx context.Context, table string, where []Cell) error {
	stmt, args := deleteSQL(t.dialect, table, where)
	return t.Execute(ctx, stmt, args...)
}

func (t *pgxTx) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := t.tx.QueryRow(ctx, "SELECT now()").Scan(&now); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// pgxQuerier is the shared statement surface of *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgxInsert(ctx context.Context, q pgxQuerier, d ddl.Dialect, table string, cells []Cell) (int64, error) {
	stmt, args := insertSQL(d, table, cells)
	stmt += " RETURNING " + d.QuoteIdent("id")

	var id int64
	if err := q.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return 0, fmt.Errorf("%w: insert returned no row", ErrGeneratedKey)
		}
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrGeneratedKey, id)
	}
	return id, nil
}

func collectPgxRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			row[f.Name] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
