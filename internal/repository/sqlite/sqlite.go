// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: one file next to the binary, no server to run.
// The giveaway only ever needs single-row upserts and full-table selects, which
// is exactly the workload SQLite is built for.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C compiler is
// needed and cross-compilation just works.
//
// CONCURRENCY:
// The pool is capped at ONE open connection. Every statement therefore runs
// on the same connection, one at a time, which gives us the single-writer
// model the store relies on:
//   - an upsert can never interleave with another write to the same row
//   - two INSERT ... ON CONFLICT DO NOTHING for the same key cannot both win
//
// It also keeps ":memory:" databases coherent: each new connection to
// ":memory:" would otherwise see its own empty database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/solwinner/internal/model"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

func formatTime(t time.Time) string {
	return model.FormatTime(t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(model.TimeLayout, s)
	if err != nil {
		// Tolerate rows written with another RFC 3339 precision.
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t, err
}

// DB wraps a sql.DB connection pool and implements
// repository.UserRepository and repository.EntryRepository.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and creates the schema if absent.
//
// dbPath examples:
//   - "data.db"   → file-based database (persistent)
//   - ":memory:"  → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight. On ":memory:" the
	// pragma is a no-op that reports "memory".
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: creating schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the tables if they do not exist yet.
//
// There is deliberately no migration history: a schema change needs manual
// intervention or a fresh database file. users and entries keep the
// two-table layout older deployments already have on disk, so an existing
// data.db opens unchanged. Tickets live in their own table; entries
// recorded before it existed simply have none.
//
// The entries table has no FOREIGN KEY on users. An entry only ever follows
// a successful login, and the relationship is not enforced.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			discord_id TEXT PRIMARY KEY,
			username   TEXT,
			avatar     TEXT,
			last_login TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			discord_id TEXT PRIMARY KEY,
			entered_at TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("creating entries table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS entry_tickets (
			discord_id TEXT PRIMARY KEY,
			ticket     TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating entry_tickets table: %w", err)
	}

	return nil
}
