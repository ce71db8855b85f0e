package conn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/relstore/internal/ddl"
)

// SQLConn implements Conn over database/sql. Used for SQLite and MySQL.
type SQLConn struct {
	db      *sql.DB
	dialect ddl.Dialect
	pool    PoolConfig
}

// OpenSQLite opens a SQLite database file (or :memory:) with foreign key
// enforcement on, which the cascade-delete contract relies on.
func OpenSQLite(ctx context.Context, path string, pool PoolConfig) (*SQLConn, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newSQLConn(ctx, db, ddl.SQLite{}, pool)
}

// OpenMySQL opens a MySQL connection from a DSN in the Go driver's format.
func OpenMySQL(ctx context.Context, dsn string, pool PoolConfig) (*SQLConn, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newSQLConn(ctx, db, ddl.MySQL{}, pool)
}

func newSQLConn(ctx context.Context, db *sql.DB, d ddl.Dialect, pool PoolConfig) (*SQLConn, error) {
	if pool.MaxOpen == 0 {
		pool = DefaultPoolConfig()
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLConn{db: db, dialect: d, pool: pool}, nil
}

// Dialect returns the dialect this connection renders statements with.
func (c *SQLConn) Dialect() ddl.Dialect { return c.dialect }

// Close closes the database connection.
func (c *SQLConn) Close() error { return c.db.Close() }

// acquireCtx bounds how long a caller may block waiting for a pooled
// connection.
func (c *SQLConn) acquireCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.pool.AcquireTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.pool.AcquireTimeout)
}

func (c *SQLConn) Execute(ctx context.Context, stmt string, args ...any) error {
	ctx, cancel := c.acquireCtx(ctx)
	defer cancel()
	_, err := c.db.ExecContext(ctx, stmt, args...)
	return err
}

func (c *SQLConn) Query(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	ctx, cancel := c.acquireCtx(ctx)
	defer cancel()
	return queryRows(ctx, c.db, stmt, args...)
}

func (c *SQLConn) Select(ctx context.Context, table string, columns []string, where []Cell, orderBy []string) ([]Row, error) {
	stmt, args := selectSQL(c.dialect, table, columns, where, orderBy)
	return c.Query(ctx, stmt, args...)
}

func (c *SQLConn) Insert(ctx context.Context, table string, cells []Cell) (int64, error) {
	ctx, cancel := c.acquireCtx(ctx)
	defer cancel()
	return sqlInsert(ctx, c.db, c.dialect, table, cells)
}

func (c *SQLConn) InsertNoKey(ctx context.Context, table string, cells []Cell) error {
	stmt, args := insertSQL(c.dialect, table, cells)
	return c.Execute(ctx, stmt, args...)
}

func (c *SQLConn) Update(ctx context.Context, table string, set, where []Cell) error {
	stmt, args := updateSQL(c.dialect, table, set, where)
	return c.Execute(ctx, stmt, args...)
}

func (c *SQLConn) Delete(ctx context.Context, table string, where []Cell) error {
	stmt, args := deleteSQL(c.dialect, table, where)
	return c.Execute(ctx, stmt, args...)
}

func (c *SQLConn) Now(ctx context.Context) (time.Time, error) {
	rows, err := c.Query(ctx, "SELECT CURRENT_TIMESTAMP")
	if err != nil {
		return time.Time{}, err
	}
	return serverTime(rows)
}

// Transaction runs fn inside one transaction. Any error from fn (or from a
// statement fn issued) rolls back everything issued in the same scope.
func (c *SQLConn) Transaction(ctx context.Context, fn func(q Queryer) error) error {
	ctx, cancel := c.acquireCtx(ctx)
	defer cancel()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&sqlTx{tx: tx, dialect: c.dialect}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// sqlTx is the Queryer bound to one open transaction.
type sqlTx struct {
	tx      *sql.Tx
	dialect ddl.Dialect
}

func (t *sqlTx) Execute(ctx context.Context, stmt string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, stmt, args...)
	return err
}

func (t *sqlTx) Query(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	return queryRows(ctx, t.tx, stmt, args...)
}

func (t *sqlTx) Select(ctx context.Context, table string, columns []string, where []Cell, orderBy []string) ([]Row, error) {
	stmt, args := selectSQL(t.dialect, table, columns, where, orderBy)
	return t.Query(ctx, stmt, args...)
}

func (t *sqlTx) Insert(ctx context.Context, table string, cells []Cell) (int64, error) {
	return sqlInsert(ctx, t.tx, t.dialect, table, cells)
}

func (t *sqlTx) InsertNoKey(ctx context.Context, table string, cells []Cell) error {
	stmt, args := insertSQL(t.dialect, table, cells)
	return t.Execute(ctx, stmt, args...)
}

func (t *sqlTx) Update(ctx context.Context, table string, set, where []Cell) error {
	stmt, args := updateSQL(t.dialect, table, set, where)
	return t.Execute(ctx, stmt, args...)
}

func (t *sqlTx) Delete(ctx context.Context, table string, where []Cell) error {
	stmt, args := deleteSQL(t.dialect, table, where)
	return t.Execute(ctx, stmt, args...)
}

func (t *sqlTx) Now(ctx context.Context) (time.Time, error) {
	rows, err := t.Query(ctx, "SELECT CURRENT_TIMESTAMP")
	if err != nil {
		return time.Time{}, err
	}
	return serverTime(rows)
}

// executor is the shared statement surface of *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func sqlInsert(ctx context.Context, ex executor, d ddl.Dialect, table string, cells []Cell) (int64, error) {
	stmt, args := insertSQL(d, table, cells)
	res, err := ex.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGeneratedKey, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrGeneratedKey, id)
	}
	return id, nil
}

func queryRows(ctx context.Context, ex executor, stmt string, args ...any) ([]Row, error) {
	rows, err := ex.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, name := range columns {
			row[name] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func serverTime(rows []Row) (time.Time, error) {
	if len(rows) != 1 {
		return time.Time{}, fmt.Errorf("expected one timestamp row, got %d", len(rows))
	}
	for _, v := range rows[0] {
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			return parseServerTime(t)
		case []byte:
			return parseServerTime(string(t))
		}
	}
	return time.Time{}, fmt.Errorf("timestamp row has no usable value")
}

func parseServerTime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse server timestamp %q", s)
}
