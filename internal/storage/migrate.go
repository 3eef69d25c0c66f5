// ABOUTME: Embedded schema migrations for both SQL dialects.
// ABOUTME: Runs golang-migrate over iofs sources, one directory per dialect.
package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// MigrationStatus describes the schema version of a database.
type MigrationStatus struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// Current reports whether the schema is at the latest version.
func (s MigrationStatus) Current() bool {
	return !s.Dirty && s.Version == s.Latest
}

// MigrateUp runs all pending migrations. An up-to-date schema is not an error.
func MigrateUp(db *sql.DB, dialect Dialect) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// m is not closed: that would close db, which the caller owns.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// CheckMigrationStatus reads the applied and latest available versions.
func CheckMigrationStatus(db *sql.DB, dialect Dialect) (*MigrationStatus, error) {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	status := &MigrationStatus{}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("get database version: %w", err)
	}
	status.Version = version
	status.Dirty = dirty

	src, err := iofs.New(migrationFiles, migrationDir(dialect))
	if err != nil {
		return nil, fmt.Errorf("read migration files: %w", err)
	}
	defer src.Close()

	status.Latest, err = latestVersion(src)
	if err != nil {
		return nil, fmt.Errorf("determine latest version: %w", err)
	}
	return status, nil
}

// MigrationStatus reports the schema version of this database.
func (d *DB) MigrationStatus() (*MigrationStatus, error) {
	return CheckMigrationStatus(d.db.DB, d.dialect)
}

func migrationDir(dialect Dialect) string {
	return "migrations/" + string(dialect)
}

func newMigrate(db *sql.DB, dialect Dialect) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, migrationDir(dialect))
	if err != nil {
		return nil, fmt.Errorf("create source driver: %w", err)
	}

	var driver database.Driver
	switch dialect {
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case DialectPostgres:
		driver, err = migratepg.WithInstance(db, &migratepg.Config{})
	default:
		err = fmt.Errorf("unknown dialect %q", dialect)
	}
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return m, nil
}

// latestVersion walks the source to its last migration.
func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			break
		}
		version = next
	}
	return version, nil
}
