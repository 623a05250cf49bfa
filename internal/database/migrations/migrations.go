// Package migrations applies the embedded operation history schema.
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

// Status reports the schema version of db and the newest embedded version.
// current is zero for a database that was never migrated.
func Status(db *sql.DB) (current, latest uint, dirty bool, err error) {
	m, err := newMigrate(db)
	if err != nil {
		return 0, 0, false, err
	}
	// m is not closed: that would close db, which the caller owns.

	current, dirty, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, 0, false, fmt.Errorf("reading schema version: %w", err)
	}

	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, 0, false, fmt.Errorf("reading migration files: %w", err)
	}
	defer src.Close()

	latest, err = latestVersion(src)
	if err != nil {
		return 0, 0, false, fmt.Errorf("finding latest migration: %w", err)
	}
	return current, latest, dirty, nil
}

// CheckDBMigrationStatus returns nil when db is at the latest version and a
// descriptive error otherwise.
func CheckDBMigrationStatus(db *sql.DB) error {
	current, latest, dirty, err := Status(db)
	if err != nil {
		return err
	}

	switch {
	case current == 0:
		return fmt.Errorf("history database has no schema version (needs migration)")
	case dirty:
		return fmt.Errorf("history database is dirty at version %d (a migration failed)", current)
	case current < latest:
		return fmt.Errorf("history database is at version %d but latest is %d", current, latest)
	case current > latest:
		return fmt.Errorf("history database version %d is newer than this binary (%d)", current, latest)
	}
	return nil
}

// MigrateUp applies every pending migration. It is a no-op on an up to date
// database.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating history database: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("creating migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// latestVersion walks the source to its last migration.
func latestVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}
