package scan

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/db/repository"
	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/extract"
	"github.com/tokern/dbcat/internal/filter"
)

type fixture struct {
	repos    *repository.Repositories
	registry *extract.Registry
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := db.OpenTestSQLite(t)
	repos := repository.NewRepositories(store)
	registry := extract.DefaultRegistry()
	return &fixture{
		repos:    repos,
		registry: registry,
		svc:      NewService(store, repos, registry, slog.New(slog.DiscardHandler)),
	}
}

func (f *fixture) addSource(t *testing.T, name, uri string) *domain.Source {
	t.Helper()
	src, err := f.repos.Sources.Add(context.Background(), &domain.Source{
		Name: name, SourceType: domain.SourceSQLite, URI: uri,
	})
	require.NoError(t, err)
	return src
}

// fakeSource serves the current value of records to every scan of a
// registered duckdb source.
func (f *fixture) fakeSource(t *testing.T, name string, records *[]domain.TableRecord) *domain.Source {
	t.Helper()
	f.registry.Register(domain.SourceDuckDB, extract.StrategyFunc(func(context.Context, *domain.Source) (extract.Stream, error) {
		return extract.NewSliceStream(*records...), nil
	}))
	src, err := f.repos.Sources.Add(context.Background(), &domain.Source{
		Name: name, SourceType: domain.SourceDuckDB, URI: "/unused.duckdb",
	})
	require.NoError(t, err)
	return src
}

func piiDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pii.db")
	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = conn.Exec(`
		CREATE TABLE no_pii (a INTEGER, b INTEGER);
		CREATE TABLE partial_pii (a INTEGER, b TEXT);
		CREATE TABLE full_pii (name TEXT, location TEXT);`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	return path
}

func compile(t *testing.T, p filter.Patterns) filter.Set {
	t.Helper()
	set, err := p.Compile()
	require.NoError(t, err)
	return set
}

func record(schema, table string, cols ...string) domain.TableRecord {
	rec := domain.TableRecord{Schema: schema, Table: table}
	for i := 0; i+1 < len(cols); i += 2 {
		rec.Columns = append(rec.Columns, domain.ColumnRecord{Name: cols[i], DataType: cols[i+1]})
	}
	return rec
}

func TestScan_SQLiteSource(t *testing.T) {
	f := newFixture(t)
	src := f.addSource(t, "pii_db", piiDatabase(t))
	ctx := context.Background()

	counts, err := f.svc.Scan(ctx, src, filter.Set{})
	require.NoError(t, err)
	assert.Equal(t, domain.ScanCounts{Schemas: 1, Tables: 3, Columns: 6}, counts)

	tbl, err := f.repos.Tables.Get(ctx, "pii_db", "main", "full_pii")
	require.NoError(t, err)
	cols, err := f.repos.Columns.ListForTable(ctx, tbl, nil, nil)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "name", cols[0].Name)
	assert.Equal(t, 0, cols[0].SortOrder)
	assert.Equal(t, "location", cols[1].Name)
	assert.Equal(t, 1, cols[1].SortOrder)
	assert.Equal(t, "TEXT", cols[1].DataType)
}

func TestScan_IncludeTable(t *testing.T) {
	f := newFixture(t)
	src := f.addSource(t, "pii_db", piiDatabase(t))

	counts, err := f.svc.Scan(context.Background(), src, compile(t, filter.Patterns{IncludeTable: []string{"full.*"}}))
	require.NoError(t, err)
	assert.Equal(t, domain.ScanCounts{Schemas: 1, Tables: 1, Columns: 2}, counts)

	tables, err := f.repos.Tables.List(context.Background(), "pii_db", "main")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "full_pii", tables[0].Name)
}

func TestScan_RescanIsIdempotent(t *testing.T) {
	f := newFixture(t)
	src := f.addSource(t, "pii_db", piiDatabase(t))
	ctx := context.Background()

	first, err := f.svc.Scan(ctx, src, filter.Set{})
	require.NoError(t, err)
	second, err := f.svc.Scan(ctx, src, filter.Set{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cols, err := f.repos.Columns.Search(ctx, domain.SearchQuery{Source: "pii_db"})
	require.NoError(t, err)
	assert.Len(t, cols, 6)
}

func TestScan_UpdatesChangedColumnsOnly(t *testing.T) {
	f := newFixture(t)
	records := []domain.TableRecord{record("public", "users", "id", "int", "email", "varchar", "name", "text")}
	src := f.fakeSource(t, "fake", &records)
	ctx := context.Background()

	_, err := f.svc.Scan(ctx, src, filter.Set{})
	require.NoError(t, err)
	before, err := f.repos.Columns.Get(ctx, "fake", "public", "users", "id")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	records = []domain.TableRecord{record("public", "users", "id", "int", "name", "text", "email", "citext")}
	_, err = f.svc.Scan(ctx, src, filter.Set{})
	require.NoError(t, err)

	email, err := f.repos.Columns.Get(ctx, "fake", "public", "users", "email")
	require.NoError(t, err)
	assert.Equal(t, "citext", email.DataType)
	assert.Equal(t, 2, email.SortOrder)

	name, err := f.repos.Columns.Get(ctx, "fake", "public", "users", "name")
	require.NoError(t, err)
	assert.Equal(t, 1, name.SortOrder)

	after, err := f.repos.Columns.Get(ctx, "fake", "public", "users", "id")
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt, "unchanged column is not rewritten")
}

func TestScan_AdditiveAcrossScans(t *testing.T) {
	f := newFixture(t)
	records := []domain.TableRecord{record("public", "a", "x", "int"), record("public", "b", "y", "int")}
	src := f.fakeSource(t, "fake", &records)
	ctx := context.Background()

	_, err := f.svc.Scan(ctx, src, filter.Set{})
	require.NoError(t, err)

	records = records[:1]
	counts, err := f.svc.Scan(ctx, src, filter.Set{})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Tables)

	_, err = f.repos.Tables.Get(ctx, "fake", "public", "b")
	assert.NoError(t, err, "tables missing from a scan are kept")
}

func TestScan_RevisitsSchema(t *testing.T) {
	f := newFixture(t)
	records := []domain.TableRecord{
		record("s1", "t1", "c", "int"),
		record("s2", "t1", "c", "int"),
		record("s1", "t2", "c", "int"),
	}
	src := f.fakeSource(t, "fake", &records)

	counts, err := f.svc.Scan(context.Background(), src, filter.Set{})
	require.NoError(t, err)
	assert.Equal(t, domain.ScanCounts{Schemas: 2, Tables: 3, Columns: 3}, counts)

	schemas, err := f.repos.Schemas.List(context.Background(), "fake")
	require.NoError(t, err)
	assert.Len(t, schemas, 2)
}

func TestScan_SchemaFilterBeforeTableFilter(t *testing.T) {
	f := newFixture(t)
	records := []domain.TableRecord{
		record("public", "users", "id", "int"),
		record("staging", "users", "id", "int"),
		record("public", "tmp_users", "id", "int"),
	}
	src := f.fakeSource(t, "fake", &records)

	counts, err := f.svc.Scan(context.Background(), src, compile(t, filter.Patterns{
		ExcludeSchema: []string{"^staging$"},
		ExcludeTable:  []string{"^tmp_"},
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.ScanCounts{Schemas: 1, Tables: 1, Columns: 1}, counts)

	_, err = f.repos.Schemas.Get(context.Background(), "fake", "staging")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestScan_NoMatches(t *testing.T) {
	f := newFixture(t)
	src := f.addSource(t, "pii_db", piiDatabase(t))

	_, err := f.svc.Scan(context.Background(), src, compile(t, filter.Patterns{IncludeTable: []string{"nothing"}}))
	var nm *domain.NoMatchesError
	require.ErrorAs(t, err, &nm)
	assert.Equal(t, 3, nm.RecordsSeen)
	assert.False(t, nm.EmptySource())
}

func TestScan_EmptySource(t *testing.T) {
	f := newFixture(t)
	var records []domain.TableRecord
	src := f.fakeSource(t, "fake", &records)

	_, err := f.svc.Scan(context.Background(), src, filter.Set{})
	var nm *domain.NoMatchesError
	require.ErrorAs(t, err, &nm)
	assert.True(t, nm.EmptySource())
}

type failingStream struct {
	after  int
	err    error
	closed bool
}

func (s *failingStream) Next(context.Context) (*domain.TableRecord, error) {
	if s.after == 0 {
		return nil, s.err
	}
	s.after--
	rec := record("public", "ok", "id", "int")
	return &rec, nil
}

func (s *failingStream) Close() error {
	s.closed = true
	return nil
}

func TestScan_ExtractionErrorPropagatesAndCloses(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")
	stream := &failingStream{after: 1, err: boom}
	f.registry.Register(domain.SourceDuckDB, extract.StrategyFunc(func(context.Context, *domain.Source) (extract.Stream, error) {
		return stream, nil
	}))
	src, err := f.repos.Sources.Add(context.Background(), &domain.Source{Name: "flaky", SourceType: domain.SourceDuckDB, URI: "/x"})
	require.NoError(t, err)

	_, err = f.svc.Scan(context.Background(), src, filter.Set{})
	assert.ErrorIs(t, err, boom)
	assert.True(t, stream.closed)

	_, err = f.repos.Tables.Get(context.Background(), "flaky", "public", "ok")
	assert.NoError(t, err, "records before the failure are kept")
}

func TestScan_StreamClosedOnSuccess(t *testing.T) {
	f := newFixture(t)
	stream := &failingStream{after: 2, err: io.EOF}
	f.registry.Register(domain.SourceDuckDB, extract.StrategyFunc(func(context.Context, *domain.Source) (extract.Stream, error) {
		return stream, nil
	}))
	src, err := f.repos.Sources.Add(context.Background(), &domain.Source{Name: "ok", SourceType: domain.SourceDuckDB, URI: "/x"})
	require.NoError(t, err)

	_, err = f.svc.Scan(context.Background(), src, filter.Set{})
	require.NoError(t, err)
	assert.True(t, stream.closed)
}

func TestScan_UnsupportedSourceType(t *testing.T) {
	f := newFixture(t)
	src, err := f.repos.Sources.Add(context.Background(), &domain.Source{
		Name: "ora", SourceType: domain.SourceOracle, URI: "h", Username: "u", Password: "p", ServiceName: "svc",
	})
	require.NoError(t, err)

	_, err = f.svc.Scan(context.Background(), src, filter.Set{})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "oracle is not supported")
}
