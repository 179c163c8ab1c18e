package db

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

func migrationDir(d Dialect) (string, error) {
	switch d {
	case DialectSQLite:
		return "migrations/sqlite", nil
	case DialectPostgres:
		return "migrations/postgres", nil
	default:
		return "", fmt.Errorf("no migrations for dialect %q", d)
	}
}

func withGoose(d Dialect, fn func(dir string) error) error {
	dir, err := migrationDir(d)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(EmbedMigrations)
	if err := goose.SetDialect(string(d)); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	return fn(dir)
}

// RunMigrations executes all pending goose migrations against the catalog store.
func RunMigrations(db *sql.DB, d Dialect) error {
	return withGoose(d, func(dir string) error {
		if err := goose.Up(db, dir); err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		return nil
	})
}

// RollbackMigration reverts the most recently applied migration.
func RollbackMigration(db *sql.DB, d Dialect) error {
	return withGoose(d, func(dir string) error {
		if err := goose.Down(db, dir); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		return nil
	})
}

// MigrationVersion returns the current schema version of the catalog store.
func MigrationVersion(db *sql.DB, d Dialect) (int64, error) {
	var version int64
	err := withGoose(d, func(string) error {
		v, err := goose.GetDBVersion(db)
		if err != nil {
			return fmt.Errorf("goose version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

// Migrate brings the store's schema up to date.
func (s *Store) Migrate() error {
	return RunMigrations(s.db, s.dialect)
}
