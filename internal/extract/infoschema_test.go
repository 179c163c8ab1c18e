package extract

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokern/dbcat/internal/domain"
)

func col(name, dataType string) domain.ColumnRecord {
	return domain.ColumnRecord{Name: name, DataType: dataType}
}

func withMock(t *testing.T, c *SQLCatalog) (sqlmock.Sqlmock, *[]string) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	var opened []string
	c.open = func(driver, dsn string) (*sql.DB, error) {
		opened = append(opened, driver, dsn)
		return db, nil
	}
	return mock, &opened
}

func TestSQLCatalog_GroupsRowsByTable(t *testing.T) {
	c := Postgres()
	mock, opened := withMock(t, c)
	mock.ExpectQuery(`FROM information_schema.columns c`).WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "data_type"}).
			AddRow("public", "orders", "id", "integer").
			AddRow("public", "orders", "total", "numeric").
			AddRow("public", "users", "email", nil).
			AddRow("sales", "orders", "id", "bigint"))
	mock.ExpectClose()

	src := &domain.Source{Name: "pg", SourceType: domain.SourcePostgres, URI: "db.local",
		Username: "u", Password: "p", Database: "d"}
	s, err := c.Open(context.Background(), src)
	require.NoError(t, err)

	got := collectAll(t, s)
	require.NoError(t, s.Close())
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"pgx", "postgres://u:p@db.local:5432/d"}, *opened)
	assert.Equal(t, []domain.TableRecord{
		{Schema: "public", Table: "orders", Columns: []domain.ColumnRecord{col("id", "integer"), col("total", "numeric")}},
		{Schema: "public", Table: "users", Columns: []domain.ColumnRecord{col("email", "")}},
		{Schema: "sales", Table: "orders", Columns: []domain.ColumnRecord{col("id", "bigint")}},
	}, got)
}

func TestSQLCatalog_Empty(t *testing.T) {
	c := Redshift()
	mock, _ := withMock(t, c)
	mock.ExpectQuery(`pg_internal`).WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "data_type"}))
	mock.ExpectClose()

	s, err := c.Open(context.Background(), &domain.Source{Name: "rs", SourceType: domain.SourceRedshift})
	require.NoError(t, err)
	assert.Empty(t, collectAll(t, s))
	require.NoError(t, s.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCatalog_QueryErrorClosesDB(t *testing.T) {
	c := MySQL()
	mock, opened := withMock(t, c)
	mock.ExpectQuery(`performance_schema`).WillReturnError(errors.New("access denied"))
	mock.ExpectClose()

	src := &domain.Source{Name: "my", SourceType: domain.SourceMySQL, URI: "db.local",
		Username: "u", Password: "p", Database: "d"}
	_, err := c.Open(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "mysql", (*opened)[0])
	assert.Contains(t, (*opened)[1], "u:p@tcp(db.local:3306)/d")
}

func TestSQLCatalog_RowErrorPropagates(t *testing.T) {
	c := Snowflake()
	mock, _ := withMock(t, c)
	mock.ExpectQuery(`INFORMATION_SCHEMA`).WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "data_type"}).
			AddRow("PUBLIC", "T", "A", "NUMBER").
			RowError(0, errors.New("warehouse suspended")))
	mock.ExpectClose()

	src := &domain.Source{Name: "sf", SourceType: domain.SourceSnowflake, Account: "acct",
		Username: "u", Password: "p", Database: "d", Warehouse: "w", Role: "r"}
	s, err := c.Open(context.Background(), src)
	require.NoError(t, err)
	_, err = s.Next(context.Background())
	assert.ErrorContains(t, err, "warehouse suspended")
	require.NoError(t, s.Close())
}

func TestSQLite_ExtractsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE b_items (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE a_users (id INTEGER, email VARCHAR(100));`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := SQLite().Open(context.Background(), &domain.Source{Name: "lite", SourceType: domain.SourceSQLite, URI: path})
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	assert.Equal(t, []domain.TableRecord{
		{Schema: "main", Table: "a_users", Columns: []domain.ColumnRecord{col("id", "INTEGER"), col("email", "VARCHAR(100)")}},
		{Schema: "main", Table: "b_items", Columns: []domain.ColumnRecord{col("id", "INTEGER"), col("name", "TEXT")}},
	}, collectAll(t, s))
}

func TestSQLite_MissingFile(t *testing.T) {
	_, err := SQLite().Open(context.Background(), &domain.Source{
		Name: "gone", SourceType: domain.SourceSQLite, URI: filepath.Join(t.TempDir(), "missing.db"),
	})
	assert.Error(t, err)
}

func TestDuckDB_ExtractsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warehouse.duckdb")
	db, err := sql.Open("duckdb", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE SCHEMA sales`,
		`CREATE TABLE sales.orders (id INTEGER, total DOUBLE)`,
		`CREATE TABLE main.regions (name VARCHAR)`,
	} {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	s, err := DuckDB().Open(context.Background(), &domain.Source{Name: "duck", SourceType: domain.SourceDuckDB, URI: path})
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	got := collectAll(t, s)
	require.Len(t, got, 2)
	assert.Equal(t, "main", got[0].Schema)
	assert.Equal(t, "regions", got[0].Table)
	assert.Equal(t, "sales", got[1].Schema)
	assert.Equal(t, "orders", got[1].Table)
	assert.Equal(t, []domain.ColumnRecord{col("id", "INTEGER"), col("total", "DOUBLE")}, got[1].Columns)
}
