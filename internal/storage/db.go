// ABOUTME: Database connection and lifecycle management for the biometric store.
// ABOUTME: SQLite by default (modernc.org/sqlite, no CGO); Postgres via pgx for larger installs.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by point lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Timestamps and dates are stored as naive local TEXT so that lexicographic
// order equals chronological order on every driver.
const (
	tsLayout   = "2006-01-02T15:04:05"
	dateLayout = "2006-01-02"
)

// DB wraps the SQL database connection.
type DB struct {
	db     *sql.DB
	driver string
}

// Open opens the store. driver is "sqlite" or "postgres"; dsn is a file
// path for sqlite and a connection string for postgres.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case "", "sqlite":
		return openSQLite(dsn)
	case "postgres":
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		d := &DB{db: db, driver: "postgres"}
		if err := d.initSchema(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown database driver: %q", driver)
	}
}

func openSQLite(dbPath string) (*DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &DB{db: db, driver: "sqlite"}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure pragmas: %w", err)
		}
	}

	if err := d.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return d, nil
}

// DataDir returns the default data directory following XDG spec.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "pulse")
}

// DefaultDBPath returns the default SQLite path following XDG spec.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "pulse.db")
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// rebind rewrites ? placeholders into the $N form the pgx driver expects.
// SQLite queries pass through untouched.
func (d *DB) rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) exec(query string, args ...any) (sql.Result, error) {
	return d.db.Exec(d.rebind(query), args...)
}

func (d *DB) query(query string, args ...any) (*sql.Rows, error) {
	return d.db.Query(d.rebind(query), args...)
}

func (d *DB) queryRow(query string, args ...any) *sql.Row {
	return d.db.QueryRow(d.rebind(query), args...)
}

func formatTS(t time.Time) string   { return t.Format(tsLayout) }
func formatDate(t time.Time) string { return t.Format(dateLayout) }

func parseTS(s string) time.Time {
	t, _ := time.Parse(tsLayout, s)
	return t
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

// nullable argument helpers: a nil pointer maps to SQL NULL.

func intArg(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatArg(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func strArg(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func tsArg(p *time.Time) any {
	if p == nil {
		return nil
	}
	return formatTS(*p)
}

// nullable scan helpers: SQL NULL maps back to a nil pointer.

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func strPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func tsPtr(n sql.NullString) *time.Time {
	if !n.Valid {
		return nil
	}
	t := parseTS(n.String)
	return &t
}
