package db

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN_Write(t *testing.T) {
	dsn := buildDSN("/tmp/catalog.db", "write")

	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_synchronous=NORMAL")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.True(t, strings.HasPrefix(dsn, "/tmp/catalog.db?"))
}

func TestBuildDSN_Shared(t *testing.T) {
	dsn := buildDSN("/tmp/catalog.db", "shared")

	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.NotContains(t, dsn, "_txlock")
}

func TestOpenSQLite_InvalidMode(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), "read", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid SQLite mode")
}

func TestOpenSQLite_Write(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), "write", 0)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", strings.ToLower(journalMode))

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestOpenSQLite_SharedDefaultMaxOpen(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), "shared", 0)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	assert.Equal(t, 4, db.Stats().MaxOpenConnections)
}

func TestOpenSQLite_ForeignKeysEnabled(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), "shared", 2)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite("/nonexistent/dir/test.db", "shared", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping sqlite")
}

func TestOpenFileStore_ConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	a, err := OpenFileStore(path, 2)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	b, err := OpenFileStore(path, 2)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	_, err = a.DB().Exec("CREATE TABLE counter (id INTEGER PRIMARY KEY, n INTEGER)")
	require.NoError(t, err)
	_, err = a.DB().Exec("INSERT INTO counter (id, n) VALUES (1, 0)")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			store := a
			if idx%2 == 1 {
				store = b
			}
			_, errs[idx] = store.DB().Exec("UPDATE counter SET n = n + 1 WHERE id = 1")
		}(i)
	}
	wg.Wait()

	for i, e := range errs {
		assert.NoError(t, e, "writer %d failed", i)
	}
	var n int
	require.NoError(t, a.DB().QueryRow("SELECT n FROM counter WHERE id = 1").Scan(&n))
	assert.Equal(t, 20, n)
}
