package sqlite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fwojciec/repochat/pool"
	"github.com/ncruces/go-sqlite3"
)

// Compile-time interface verification.
var _ pool.Conn = (*Conn)(nil)

// Conn wraps a raw SQLite connection checked out of the pool. A SQLite
// handle is not safe for concurrent use, and the pool may probe a
// checked-out connection, so every operation holds the mutex.
type Conn struct {
	mu   sync.Mutex
	conn *sqlite3.Conn
}

// Ping verifies the connection by running a trivial query.
func (c *Conn) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.conn.SetInterrupt(ctx)
	defer c.conn.SetInterrupt(old)
	return c.conn.Exec("SELECT 1")
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// execScript runs a multi-statement SQL script with no parameters.
func (c *Conn) execScript(script string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Exec(script)
}

// exec runs a single statement and returns the number of rows changed.
func (c *Conn) exec(ctx context.Context, query string, args ...any) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.conn.SetInterrupt(ctx)
	defer c.conn.SetInterrupt(old)

	stmt, _, err := c.conn.Prepare(query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	if err := bindArgs(stmt, args); err != nil {
		return 0, err
	}
	if stmt.Step() {
		return 0, fmt.Errorf("statement unexpectedly returned rows")
	}
	if err := stmt.Err(); err != nil {
		return 0, err
	}
	return c.conn.Changes(), nil
}

// query runs a statement and invokes scan once per result row.
func (c *Conn) query(ctx context.Context, query string, args []any, scan func(stmt *sqlite3.Stmt) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.conn.SetInterrupt(ctx)
	defer c.conn.SetInterrupt(old)

	stmt, _, err := c.conn.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if err := bindArgs(stmt, args); err != nil {
		return err
	}
	for stmt.Step() {
		if err := scan(stmt); err != nil {
			return err
		}
	}
	return stmt.Err()
}

// bindArgs binds positional query parameters. SQLite parameters are
// 1-based.
func bindArgs(stmt *sqlite3.Stmt, args []any) error {
	for i, arg := range args {
		param := i + 1
		var err error
		switch v := arg.(type) {
		case nil:
			err = stmt.BindNull(param)
		case string:
			err = stmt.BindText(param, v)
		case int:
			err = stmt.BindInt64(param, int64(v))
		case int64:
			err = stmt.BindInt64(param, v)
		case bool:
			err = stmt.BindBool(param, v)
		case float64:
			err = stmt.BindFloat(param, v)
		case time.Time:
			err = stmt.BindText(param, v.Format(time.RFC3339))
		default:
			err = fmt.Errorf("unsupported parameter type %T", arg)
		}
		if err != nil {
			return fmt.Errorf("failed to bind parameter %d: %w", param, err)
		}
	}
	return nil
}
