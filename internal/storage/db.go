// ABOUTME: Relational connection lifecycle for SQLite and PostgreSQL.
// ABOUTME: Uses modernc.org/sqlite (pure Go) or lib/pq behind sqlx.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/wellness/internal/clock"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL backend in use.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver(string(DialectSQLite), sqlx.QUESTION)
}

// DB wraps the relational connection.
type DB struct {
	db      *sqlx.DB
	dialect Dialect
	dbPath  string
	clock   clock.Clock
	loc     *time.Location
}

// Option customises a DB.
type Option func(*DB)

// WithClock sets the clock used for created_at and the query window.
func WithClock(c clock.Clock) Option {
	return func(d *DB) { d.clock = c }
}

// WithLocation sets the zone in which "today" is computed.
func WithLocation(loc *time.Location) Option {
	return func(d *DB) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// Open opens or creates a SQLite database at the given path and migrates it.
func Open(dbPath string, opts ...Option) (*DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := newDB(sqlx.NewDb(sqlDB, string(DialectSQLite)), DialectSQLite, opts...)
	d.dbPath = dbPath

	if err := MigrateUp(sqlDB, DialectSQLite); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	// The file exists once the schema is written.
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}

	return d, nil
}

// OpenPostgres connects to PostgreSQL and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := MigrateUp(sqlDB, DialectPostgres); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return newDB(sqlx.NewDb(sqlDB, string(DialectPostgres)), DialectPostgres, opts...), nil
}

// NewWithConn wraps an existing connection without migrating it.
// The caller owns the schema.
func NewWithConn(db *sqlx.DB, dialect Dialect, opts ...Option) *DB {
	return newDB(db, dialect, opts...)
}

func newDB(db *sqlx.DB, dialect Dialect, opts ...Option) *DB {
	d := &DB{
		db:      db,
		dialect: dialect,
		clock:   clock.Real{},
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DataDir returns the default data directory following XDG spec.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "wellness")
}

// DefaultDBPath returns the default database path following XDG spec.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "wellness.db")
}

// Dialect reports the backend in use.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Path returns the SQLite file path, empty for PostgreSQL.
func (d *DB) Path() string {
	return d.dbPath
}

// Ping checks the connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *DB) now() time.Time {
	return d.clock.Now().UTC()
}

// inTx runs fn in a transaction, rolling back on any error.
func (d *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// sqlitePragmas apply to every pooled connection, not just the first.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

// sqliteDSN sets up SQLite for concurrent readers and a single writer.
func sqliteDSN(dbPath string) string {
	params := make([]string, len(sqlitePragmas))
	for i, p := range sqlitePragmas {
		params[i] = "_pragma=" + p
	}
	return "file:" + dbPath + "?" + strings.Join(params, "&")
}

// storedTimeLayout has a fixed-width fraction so text columns sort chronologically.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestamp formats instants for storage in UTC.
func timestamp(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// parseTimestamp reads a stored instant. PostgreSQL columns arrive as RFC3339Nano
// with an offset, SQLite columns as written by timestamp.
func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
