package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	internaldb "github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/domain"
)

func setupRepos(t *testing.T) *Repositories {
	t.Helper()
	return NewRepositories(internaldb.OpenTestSQLite(t))
}

func seedSource(t *testing.T, repos *Repositories, name string) *domain.Source {
	t.Helper()
	s, err := repos.Sources.Add(context.Background(), &domain.Source{
		Name: name, SourceType: domain.SourceSQLite, URI: "/tmp/" + name + ".db",
	})
	require.NoError(t, err)
	return s
}

// seedTable creates source.schema.table and returns the table.
func seedTable(t *testing.T, repos *Repositories, source *domain.Source, schema, table string) *domain.Table {
	t.Helper()
	ctx := context.Background()
	sc, err := repos.Schemas.Add(ctx, source, schema)
	require.NoError(t, err)
	tb, err := repos.Tables.Add(ctx, sc.Value, table)
	require.NoError(t, err)
	return tb.Value
}

func seedColumn(t *testing.T, repos *Repositories, table *domain.Table, name string, sortOrder int) *domain.Column {
	t.Helper()
	c, err := repos.Columns.Add(context.Background(), table, name, "TEXT", sortOrder)
	require.NoError(t, err)
	return c.Value
}
