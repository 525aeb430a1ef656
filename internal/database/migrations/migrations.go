package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Status describes the schema version of a database relative to the
// migrations compiled into the binary.
type Status struct {
	CurrentVersion uint
	LatestVersion  uint
	Dirty          bool
	Pending        bool
}

// GetStatus reports the database's schema version. A database that has never
// been migrated has CurrentVersion 0.
func GetStatus(db *sql.DB) (*Status, error) {
	m, err := newMigrate(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: closing it would close db, which the caller owns.

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("failed to get database version: %w", err)
	}

	latest, err := latestVersion()
	if err != nil {
		return nil, fmt.Errorf("failed to determine latest version: %w", err)
	}

	return &Status{
		CurrentVersion: version,
		LatestVersion:  latest,
		Dirty:          dirty,
		Pending:        version < latest,
	}, nil
}

// CheckDBMigrationStatus returns nil if the database is at the latest schema
// version, and an error describing the mismatch otherwise.
func CheckDBMigrationStatus(db *sql.DB) error {
	status, err := GetStatus(db)
	if err != nil {
		return err
	}

	switch {
	case status.CurrentVersion == 0:
		return fmt.Errorf("database has no schema version (needs migration)")
	case status.Dirty:
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", status.CurrentVersion)
	case status.Pending:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			status.CurrentVersion, status.LatestVersion, status.LatestVersion-status.CurrentVersion)
	case status.CurrentVersion > status.LatestVersion:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			status.CurrentVersion, status.LatestVersion)
	}
	return nil
}

// MigrateUp runs all pending migrations. An up-to-date database is not an error.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func latestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()
	return lastVersion(src)
}

// lastVersion walks the source from its first migration to its last.
func lastVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			return version, nil
		}
		version = next
	}
}
