package db

import (
	"path/filepath"
	"testing"
)

// OpenTestSQLite opens a SQLite catalog store in t.TempDir(), runs all
// pending migrations, and registers cleanup.
func OpenTestSQLite(t *testing.T) *Store {
	t.Helper()
	return OpenTestSQLiteAt(t, filepath.Join(t.TempDir(), "catalog.db"))
}

// OpenTestSQLiteAt opens a migrated SQLite catalog store at path. Opening the
// same path twice gives two independent pools, which tests use to stand in
// for separate processes.
func OpenTestSQLiteAt(t *testing.T, path string) *Store {
	t.Helper()

	store, err := OpenFileStore(path, 4)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return store
}
