// Package sqlite provides SQLite-based storage implementations for repochat services.
//
// Connections are raw SQLite handles managed by a pool.Pool rather than
// database/sql, so checkout, validation and lifecycle are owned by this
// module instead of the driver.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/repochat/metrics"
	"github.com/fwojciec/repochat/pool"
	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a pooled SQLite database.
type DB struct {
	path string
	pool *pool.Pool

	// MaxConns is the connection pool capacity. An in-memory database is
	// always capped at one connection, since each ":memory:" handle opens
	// a separate database.
	MaxConns int

	// AcquireTimeout bounds how long a caller waits for a connection.
	// Zero means pool.DefaultAcquireTimeout.
	AcquireTimeout time.Duration

	// Metrics receives pool and query metrics. Optional.
	Metrics *metrics.Registry
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path, MaxConns: 5}
}

// Open opens the connection pool and creates the schema if needed.
func (db *DB) Open() error {
	if db.path == "" {
		return fmt.Errorf("database path required")
	}

	maxConns := db.MaxConns
	if maxConns <= 0 {
		maxConns = 5
	}
	if db.path == ":memory:" {
		maxConns = 1
	}

	var opts []pool.Option
	if db.Metrics != nil {
		opts = append(opts, pool.WithMetrics(db.Metrics))
	}

	p, err := pool.New(db.dial, pool.Config{
		MaxConns:       maxConns,
		AcquireTimeout: db.AcquireTimeout,
	}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	db.pool = p

	// Open one connection eagerly to verify the path and create the
	// schema before any service call runs.
	if err := db.WithConn(context.Background(), func(c *Conn) error {
		return c.execScript(schema)
	}); err != nil {
		db.pool.CloseAll()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// dial opens a single SQLite connection and applies the session pragmas.
func (db *DB) dial(ctx context.Context) (pool.Conn, error) {
	raw, err := sqlite3.Open(db.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Wait up to 5 seconds on lock contention instead of failing with
	// "database is locked" immediately.
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	// WAL allows concurrent readers during writes. Not supported for
	// in-memory databases.
	if db.path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if err := raw.Exec(pragma); err != nil {
			raw.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &Conn{conn: raw}, nil
}

// Close closes all pooled connections.
func (db *DB) Close() error {
	if db.pool != nil {
		return db.pool.CloseAll()
	}
	return nil
}

// WithConn acquires a connection, runs fn, and returns the connection to
// the pool.
func (db *DB) WithConn(ctx context.Context, fn func(*Conn) error) error {
	c, err := db.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer db.pool.Release(c)
	return fn(c.(*Conn))
}

// Validate probes every pooled connection and replaces the broken ones.
func (db *DB) Validate(ctx context.Context) {
	db.pool.ValidateAll(ctx)
}

// Stats returns connection pool statistics.
func (db *DB) Stats() pool.Stats {
	return db.pool.Stats()
}

const schema = `
	CREATE TABLE IF NOT EXISTS repositories (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		branch TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'inactive',
		is_active INTEGER NOT NULL DEFAULT 1,
		error_message TEXT NOT NULL DEFAULT '',
		last_sync_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_repositories_status ON repositories(status);
	CREATE INDEX IF NOT EXISTS idx_repositories_url ON repositories(url);

	CREATE TABLE IF NOT EXISTS chat_history (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		role TEXT NOT NULL,
		search_type TEXT NOT NULL,
		repository_ids TEXT NOT NULL DEFAULT '[]',
		parent_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_history_created_at ON chat_history(created_at);
	CREATE INDEX IF NOT EXISTS idx_chat_history_parent_id ON chat_history(parent_id);

	CREATE TABLE IF NOT EXISTS user_preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
`
