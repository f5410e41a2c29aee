// Package store handles SQL persistence for local state and the self-hosted backend.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // Postgres driver.
	_ "modernc.org/sqlite" // SQLite driver.
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps SQL access for identity and result data.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Open opens or creates the database with the key/value table and the
// results backend schema. For SQLite the dsn is a file path; for Postgres a
// connection string.
func Open(driver, dsn string) (*Store, error) {
	return open(driver, dsn, append(kvSchema, backendSchema...))
}

// OpenLocal opens a SQLite file holding only the key/value table.
func OpenLocal(path string) (*Store, error) {
	return open(DriverSQLite, path, kvSchema)
}

func open(driver, dsn string, schema []string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One writer keeps SQLite from returning SQLITE_BUSY inside transactions.
		db.SetMaxOpenConns(1)
	}
	store := &Store{db: db, driver: driver, now: time.Now}
	if err := store.migrate(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// OpenSQLite opens a SQLite database at path.
func OpenSQLite(path string) (*Store, error) {
	return Open(DriverSQLite, path)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var kvSchema = []string{
	`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
}

var backendSchema = []string{
	`CREATE TABLE IF NOT EXISTS typing_results (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		wpm INTEGER NOT NULL,
		accuracy REAL NOT NULL,
		test_duration INTEGER,
		characters_typed INTEGER NOT NULL,
		correct_characters INTEGER NOT NULL,
		words_typed INTEGER NOT NULL,
		test_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		display_name TEXT,
		total_tests INTEGER NOT NULL DEFAULT 0,
		best_wpm REAL NOT NULL DEFAULT 0,
		average_wpm REAL NOT NULL DEFAULT 0,
		total_time_typed INTEGER NOT NULL DEFAULT 0,
		total_tests_30s INTEGER NOT NULL DEFAULT 0,
		best_wpm_30s REAL NOT NULL DEFAULT 0,
		average_wpm_30s REAL NOT NULL DEFAULT 0,
		total_time_30s INTEGER NOT NULL DEFAULT 0,
		total_tests_60s INTEGER NOT NULL DEFAULT 0,
		best_wpm_60s REAL NOT NULL DEFAULT 0,
		average_wpm_60s REAL NOT NULL DEFAULT 0,
		total_time_60s INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_typing_results_user ON typing_results(user_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_typing_results_rank ON typing_results(test_type, wpm);`,
}

func (s *Store) migrate(schema []string) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ",")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(timeLayout, value)
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM kv WHERE key = ?`), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`), key, value)
	return err
}
