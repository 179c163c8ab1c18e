package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/tokern/dbcat/internal/domain"
)

func TestBigQuery_Extract(t *testing.T) {
	responses := map[string]any{
		"/projects/proj/datasets": map[string]any{
			"datasets": []any{
				map[string]any{"datasetReference": map[string]any{"projectId": "proj", "datasetId": "analytics"}},
			},
		},
		"/projects/proj/datasets/analytics/tables": map[string]any{
			"tables": []any{
				map[string]any{"tableReference": map[string]any{"projectId": "proj", "datasetId": "analytics", "tableId": "events"}},
				map[string]any{"tableReference": map[string]any{"projectId": "proj", "datasetId": "analytics", "tableId": "tmp_scratch"}},
			},
		},
		"/projects/proj/datasets/analytics/tables/events": map[string]any{
			"schema": map[string]any{"fields": []any{
				map[string]any{"name": "id", "type": "INTEGER"},
				map[string]any{"name": "address", "type": "RECORD", "fields": []any{
					map[string]any{"name": "city", "type": "STRING"},
				}},
			}},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	b := &BigQuery{ClientOptions: []option.ClientOption{
		option.WithEndpoint(srv.URL + "/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	}}
	src := &domain.Source{Name: "bq", SourceType: domain.SourceBigQuery, ProjectID: "proj", IncludedTablesRegex: "^events$"}
	s, err := b.Open(context.Background(), src)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	assert.Equal(t, []domain.TableRecord{{
		Schema: "analytics",
		Table:  "events",
		Columns: []domain.ColumnRecord{
			col("id", "INTEGER"), col("address", "RECORD"), col("address.city", "STRING"),
		},
	}}, collectAll(t, s))
}

func TestBigQuery_InvalidRegex(t *testing.T) {
	src := &domain.Source{Name: "bq", SourceType: domain.SourceBigQuery, ProjectID: "p", KeyPath: "/k.json",
		IncludedTablesRegex: "("}
	_, err := (&BigQuery{}).Open(context.Background(), src)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}
