package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokern/dbcat/internal/domain"
)

func writeCatalogFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestJSONFile(t *testing.T) {
	path := writeCatalogFile(t, `{
		"name": "shop",
		"schemata": [
			{"name": "public", "tables": [
				{"name": "users", "columns": [{"name": "id", "type": "integer"}, {"name": "email", "type": "text"}]},
				{"name": "orders", "columns": [{"name": "id", "type": "integer"}]}
			]},
			{"name": "audit", "tables": [{"name": "log", "columns": []}]}
		]
	}`)

	s, err := DefaultRegistry().Open(context.Background(), &domain.Source{Name: "f", SourceType: domain.SourceFile, URI: path})
	require.NoError(t, err)
	assert.Equal(t, []domain.TableRecord{
		{Schema: "public", Table: "users", Columns: []domain.ColumnRecord{col("id", "integer"), col("email", "text")}},
		{Schema: "public", Table: "orders", Columns: []domain.ColumnRecord{col("id", "integer")}},
		{Schema: "audit", Table: "log"},
	}, collectAll(t, s))
}

func TestJSONFile_Errors(t *testing.T) {
	open := func(path string) error {
		_, err := JSONFile().Open(context.Background(), &domain.Source{Name: "f", SourceType: domain.SourceFile, URI: path})
		return err
	}

	var ve *domain.ValidationError
	assert.ErrorAs(t, open(""), &ve)
	assert.ErrorAs(t, open(writeCatalogFile(t, `{"schemata": [`)), &ve)
	assert.ErrorAs(t, open(writeCatalogFile(t, `{"schemata": [{"tables": []}]}`)), &ve)
	assert.ErrorAs(t, open(writeCatalogFile(t, `{"schemata": [{"name": "s", "tables": [{"name": "t", "columns": [{"type": "int"}]}]}]}`)), &ve)

	err := open(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
