// Package sqlite implements the persistence layer on top of SQLite.
//
// The store is generic: it saves and reads any model.Entity by combining the
// entity's static Mapping with what SQLite reports about the table itself
// (primary key, timestamp columns). See entity.go for the save semantics and
// schema.go for the introspection.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// without a C toolchain. It registers itself with database/sql under the
// driver name "sqlite".
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB is the single store handle of the process. It is opened once at
// startup, shared by every component, and closed on shutdown.
//
// CONCURRENCY:
// All entity reads and writes go through mu, so the store has exactly one
// writer at a time even if several goroutines share the handle.
type DB struct {
	conn  *sql.DB
	clock clockwork.Clock

	mu     sync.Mutex
	tables map[string]*tableInfo // introspection cache, guarded by mu
}

// Option customises a DB.
type Option func(*DB)

// WithClock sets the clock used to stamp created/updated columns.
func WithClock(clock clockwork.Clock) Option {
	return func(db *DB) { db.clock = clock }
}

// New opens the SQLite database at dbPath and creates any missing tables.
//
// dbPath examples:
//   - "data/steamlinuxchecker.db" → file-based database (persistent)
//   - ":memory:"                  → in-memory database, used by the tests
//
// The pool is pinned to a single connection. An in-memory database lives
// inside one connection, and the store is a single shared handle anyway.
func New(dbPath string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	// sql.Open only creates the pool; Ping forces the first real connection
	// so a bad path or missing write permission surfaces here.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database %s: %w", dbPath, err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. With them on, a Playtime row
	// cannot reference a scan or game that does not exist yet.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{
		conn:   conn,
		clock:  clockwork.NewRealClock(),
		tables: make(map[string]*tableInfo),
	}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. Every statement is idempotent, so it runs on
// each startup; there is no migration history.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id               INTEGER NOT NULL PRIMARY KEY,
			persona          TEXT,
			name             TEXT,
			profile_url      TEXT,
			image_url        TEXT,
			visibility_state INTEGER,
			created          TIMESTAMP,
			updated          TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id              INTEGER NOT NULL PRIMARY KEY,
			name            TEXT,
			image_url       TEXT,
			linux_support   BOOLEAN,
			mac_support     BOOLEAN,
			windows_support BOOLEAN,
			created         TIMESTAMP,
			updated         TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating games table: %w", err)
	}

	// Databases created before release dates were tracked lack the column.
	if err := db.addColumnIfNotExists("games", "release_date", "TEXT"); err != nil {
		return fmt.Errorf("adding release_date to games: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS scans (
			id      INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			linux   INTEGER NOT NULL DEFAULT 0,
			mac     INTEGER NOT NULL DEFAULT 0,
			windows INTEGER NOT NULL DEFAULT 0,
			total   INTEGER NOT NULL DEFAULT 0,
			created TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_scans_user_id ON scans(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating scans table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS playtimes (
			id      INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
			scan_id INTEGER NOT NULL REFERENCES scans(id),
			game_id INTEGER NOT NULL REFERENCES games(id),
			linux   INTEGER NOT NULL DEFAULT 0,
			mac     INTEGER NOT NULL DEFAULT 0,
			windows INTEGER NOT NULL DEFAULT 0,
			total   INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_playtimes_scan_id ON playtimes(scan_id);
	`)
	if err != nil {
		return fmt.Errorf("creating playtimes table: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// ALTER TABLE errors on an existing column, so pragma_table_info is checked first.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
