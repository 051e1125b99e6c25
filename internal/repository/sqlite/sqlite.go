// Package sqlite implements the repository interfaces on top of SQLite.
//
// modernc.org/sqlite is a pure Go build of SQLite, so the binary needs no C
// toolchain. The schema lives in migrations/ and is applied with goose; the
// SQL files are embedded so a deployed binary can migrate itself.
//
// CONNECTIONS:
// The pool is capped at one open connection. SQLite serialises writers
// anyway, and a ":memory:" database only exists on the connection that
// created it. The consequence is that code running inside a transaction must
// issue every statement through the *sql.Tx; asking the pool for a second
// connection would block forever.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DB wraps a sql.DB and implements repository.Store.
type DB struct {
	conn *sql.DB

	// now stamps created_at/updated_at. Tests swap it for a fixed clock so
	// ordering by timestamp is deterministic.
	now func() time.Time
}

// Open connects to the database at dbPath without touching the schema.
//
// dbPath examples:
//   - "data/linkshelf.db" → file-based database
//   - ":memory:"          → in-memory database, gone on Close
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	return &DB{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// New opens the database and applies any pending migrations.
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// dsn turns a path into a modernc URI. Pragmas given as _pragma parameters
// run on every new connection, which matters for foreign_keys: SQLite
// defaults it to off per connection.
func dsn(dbPath string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_time_format=sqlite",
	}
	if dbPath == ":memory:" {
		return "file::memory:?" + strings.Join(pragmas, "&")
	}
	pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	return "file:" + dbPath + "?" + strings.Join(pragmas, "&")
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrator() (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading migrations: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db.conn, fsys)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating migration provider: %w", err)
	}
	return p, nil
}

// Migrate applies pending migrations and returns how many ran.
func (db *DB) Migrate(ctx context.Context) (int, error) {
	p, err := db.migrator()
	if err != nil {
		return 0, err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return len(results), nil
}

// SchemaVersion returns the version of the newest applied migration.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	p, err := db.migrator()
	if err != nil {
		return 0, err
	}
	v, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	return v, nil
}
