// Package store provides SQL storage for the shelfscan inventory, scan
// history and settings. SQLite is the default; Postgres is reachable through
// the pgx driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Options selects the database.
type Options struct {
	Driver string
	DSN    string
}

// Store is an open database with migrations applied.
type Store struct {
	db     *sql.DB
	driver string
}

// New opens the database, runs migrations and returns the store.
func New(ctx context.Context, opts Options) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPgx {
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, errors.New("database dsn is required")
	}

	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// One writer at a time; avoids SQLITE_BUSY under concurrent handlers.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// OpenSQLite opens a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	return New(ctx, Options{Driver: DriverSQLite, DSN: path})
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the database driver name.
func (s *Store) Driver() string {
	return s.driver
}

// rebind rewrites '?' placeholders for drivers that use numbered ones.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPgx {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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
