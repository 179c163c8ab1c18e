package cli

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/service/scan"
)

type harness struct {
	appDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{appDir: t.TempDir()}
}

// exec runs dbcat with args against the harness app dir.
func (h *harness) exec(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &app{stdout: &out, stderr: &errOut}
	code = run(context.Background(), a, append([]string{"--app-dir", h.appDir}, args...))
	return code, out.String(), errOut.String()
}

// sourceDB creates a SQLite database with two tables to scan.
func sourceDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck
	_, err = conn.Exec(`
		CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT, name VARCHAR(50));
		CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER, total REAL);`)
	require.NoError(t, err)
	return path
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	code, out, _ := h.exec(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "dbcat version dev")

	code, out, _ = h.exec(t, "-o", "json", "version")
	require.Equal(t, 0, code)
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "dev", v["version"])
}

func TestInvalidOutputFormat(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.exec(t, "-o", "xml", "sources")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unsupported output format")
}

func TestMigrateStatus(t *testing.T) {
	h := newHarness(t)
	code, out, _ := h.exec(t, "-o", "json", "migrate", "up")
	require.Equal(t, 0, code)
	var status struct {
		Dialect string `json:"dialect"`
		Version int64  `json:"version"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "sqlite3", status.Dialect)
	assert.Positive(t, status.Version)
	assert.FileExists(t, filepath.Join(h.appDir, "catalog.db"))
}

func TestAddScanSearchExport(t *testing.T) {
	h := newHarness(t)
	src := sourceDB(t)

	code, out, stderr := h.exec(t, "add", "sqlite", "--name", "app", "--path", src)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "app")

	code, _, stderr = h.exec(t, "add", "sqlite", "--name", "app", "--path", src)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")

	code, out, stderr = h.exec(t, "-o", "json", "scan", "--source-name", "app")
	require.Equal(t, 0, code, stderr)
	var results []struct {
		Source string `json:"source"`
		Status string `json:"status"`
		Counts struct {
			Schemas int `json:"schemas"`
			Tables  int `json:"tables"`
			Columns int `json:"columns"`
		} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "success", results[0].Status)
	assert.Equal(t, 1, results[0].Counts.Schemas)
	assert.Equal(t, 2, results[0].Counts.Tables)
	assert.Equal(t, 6, results[0].Counts.Columns)

	code, out, _ = h.exec(t, "-o", "json", "search", "columns", "--column", "%id")
	require.Equal(t, 0, code)
	var cols []columnView
	require.NoError(t, json.Unmarshal([]byte(out), &cols))
	assert.Len(t, cols, 3)

	code, out, _ = h.exec(t, "get", "table", "users")
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "COLUMN")
	assert.Contains(t, lines[1], "id")
	assert.Contains(t, lines[2], "email")

	code, out, _ = h.exec(t, "export", "--include-table", "users")
	require.Equal(t, 0, code)
	var exported []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &row))
		exported = append(exported, row)
	}
	require.Len(t, exported, 1)
	assert.Equal(t, "users", exported[0]["table"])

	dest := filepath.Join(t.TempDir(), "out", "catalog.jsonl")
	code, _, _ = h.exec(t, "export", "--dest", dest)
	require.Equal(t, 0, code)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestScanReportsMissingSource(t *testing.T) {
	h := newHarness(t)
	code, out, stderr := h.exec(t, "scan", "--source-name", "ghost")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "not_found")
	assert.Contains(t, stderr, "1 of 1 sources failed")
}

func TestScanNoMatchesExitsNonZero(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.exec(t, "add", "sqlite", "--name", "app", "--path", sourceDB(t))
	require.Equal(t, 0, code, stderr)

	code, out, stderr := h.exec(t, "scan", "--include-table", "nothing")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "no_matches")
	assert.Contains(t, stderr, "1 of 1 sources failed to scan")
	assert.Contains(t, stderr, "excluded by include/exclude patterns")

	code, out, _ = h.exec(t, "-o", "json", "scan", "--include-table", "nothing")
	assert.Equal(t, 1, code)
	dec := json.NewDecoder(strings.NewReader(out))
	var results []map[string]any
	require.NoError(t, dec.Decode(&results))
	require.Len(t, results, 1)
	assert.Equal(t, "no_matches", results[0]["status"])
	var errObj map[string]any
	require.NoError(t, dec.Decode(&errObj))
	assert.Equal(t, "no_matches", errObj["kind"])
}

func TestAddScanJSONFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "warehouse.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "wh", "schemata": [
		{"name": "sales", "tables": [{"name": "orders", "columns": [
			{"name": "id", "type": "bigint"}, {"name": "total", "type": "numeric"}]}]}]}`), 0o600))

	code, _, stderr := h.exec(t, "add", "file", "--name", "wh", "--path", path)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = h.exec(t, "scan", "--source-name", "wh")
	require.Equal(t, 0, code, stderr)

	code, out, _ := h.exec(t, "-o", "json", "search", "columns", "--source", "wh")
	require.Equal(t, 0, code)
	var cols []columnView
	require.NoError(t, json.Unmarshal([]byte(out), &cols))
	require.Len(t, cols, 2)
	assert.Equal(t, "orders", cols[0].Table)
	assert.Equal(t, "numeric", cols[1].DataType)
}

func TestScanError(t *testing.T) {
	noMatch := &domain.NoMatchesError{Source: "empty"}
	broken := errors.New("connection refused")

	assert.NoError(t, scanError([]scan.SourceResult{{Source: "a", Status: scan.StatusSuccess}}))

	err := scanError([]scan.SourceResult{
		{Source: "a", Status: scan.StatusSuccess},
		{Source: "empty", Status: scan.StatusEmptySource, Err: noMatch},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 sources failed")
	var nm *domain.NoMatchesError
	assert.ErrorAs(t, err, &nm)

	err = scanError([]scan.SourceResult{
		{Source: "empty", Status: scan.StatusEmptySource, Err: noMatch},
		{Source: "down", Status: scan.StatusFailed, Err: broken},
	})
	assert.ErrorIs(t, err, broken)
	assert.Contains(t, err.Error(), "2 of 2 sources failed")
}

func TestJSONErrors(t *testing.T) {
	h := newHarness(t)
	code, out, _ := h.exec(t, "-o", "json", "add", "postgresql", "--name", "pg", "--uri", "db.local")
	assert.Equal(t, 1, code)
	var errObj map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &errObj))
	assert.Equal(t, "validation", errObj["kind"])
	assert.Contains(t, errObj["error"], "password")

	code, out, _ = h.exec(t, "-o", "json", "get", "table", "nothing")
	assert.Equal(t, 1, code)
	require.NoError(t, json.Unmarshal([]byte(out), &errObj))
	assert.Equal(t, "not_found", errObj["kind"])
}

func TestSourcesRemove(t *testing.T) {
	h := newHarness(t)
	code, _, _ := h.exec(t, "add", "duckdb", "--name", "lake", "--path", "/data/lake.duckdb")
	require.Equal(t, 0, code)

	code, out, _ := h.exec(t, "-o", "yaml", "sources")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "name: lake")

	code, _, _ = h.exec(t, "sources", "remove", "lake")
	require.Equal(t, 0, code)

	code, out, _ = h.exec(t, "-o", "json", "sources")
	require.Equal(t, 0, code)
	assert.JSONEq(t, "[]", out)
}

func TestCatalogFromConfigFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "elsewhere.db")
	require.NoError(t, os.WriteFile(filepath.Join(h.appDir, "catalog.yml"),
		[]byte("catalog:\n  path: "+path+"\n"), 0o600))

	code, _, stderr := h.exec(t, "migrate", "status")
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, path)
	assert.NoFileExists(t, filepath.Join(h.appDir, "catalog.db"))
}
