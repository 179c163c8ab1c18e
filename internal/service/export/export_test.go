package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/db/repository"
	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/filter"
)

func setup(t *testing.T) (*Service, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()
	repos := repository.NewRepositories(db.OpenTestSQLite(t))

	src, err := repos.Sources.Add(ctx, &domain.Source{Name: "pg", SourceType: domain.SourcePostgres,
		URI: "h", Username: "u", Password: "p", Database: "shop"})
	require.NoError(t, err)
	for _, schemaName := range []string{"public", "staging"} {
		sc, err := repos.Schemas.Add(ctx, src, schemaName)
		require.NoError(t, err)
		for _, tableName := range []string{"users", "tmp_users"} {
			tbl, err := repos.Tables.Add(ctx, sc.Value, tableName)
			require.NoError(t, err)
			_, err = repos.Columns.Add(ctx, tbl.Value, "id", "integer", 0)
			require.NoError(t, err)
			email, err := repos.Columns.Add(ctx, tbl.Value, "email", "text", 1)
			require.NoError(t, err)
			_, err = repos.Columns.SetPIIType(ctx, email.Value.ID, domain.PIIEmail, "regex")
			require.NoError(t, err)
		}
	}

	var out bytes.Buffer
	return NewService(repos, SinkConfig{}, &out, slog.New(slog.DiscardHandler)), &out
}

func TestTables_FiltersAndBadges(t *testing.T) {
	svc, _ := setup(t)
	filters, err := filter.Patterns{IncludeSchema: []string{"^public$"}, ExcludeTable: []string{"^tmp_"}}.Compile()
	require.NoError(t, err)

	tables, err := svc.Tables(context.Background(), Request{Filters: filters})
	require.NoError(t, err)
	require.Len(t, tables, 1)

	got := tables[0]
	assert.Equal(t, "pg", got.Source)
	assert.Equal(t, "postgresql", got.SourceType)
	assert.Equal(t, "shop", got.Database)
	assert.Equal(t, "public", got.Schema)
	assert.Equal(t, "users", got.Table)
	assert.Equal(t, []ColumnExport{
		{Name: "id", DataType: "integer", SortOrder: 0},
		{Name: "email", DataType: "text", SortOrder: 1, Badges: []string{"pii", "EMAIL"}},
	}, got.Columns)
}

func TestTables_UnknownSource(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Tables(context.Background(), Request{Sources: []string{"nope"}})
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestWrite_JSONLinesToStdout(t *testing.T) {
	svc, out := setup(t)
	n, err := svc.Write(context.Background(), Request{Sources: []string{"pg"}}, "-")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	var lines int
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var te TableExport
		require.NoError(t, json.Unmarshal(sc.Bytes(), &te))
		assert.Len(t, te.Columns, 2)
		lines++
	}
	assert.Equal(t, 4, lines)
}
