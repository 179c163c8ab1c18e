package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/filter"
)

func TestScanSources_RecordsTasks(t *testing.T) {
	f := newFixture(t)
	f.addSource(t, "pii_db", piiDatabase(t))
	var empty []domain.TableRecord
	f.fakeSource(t, "empty", &empty)
	ctx := context.Background()

	results, err := f.svc.ScanSources(ctx, []string{"pii_db", "missing", "empty"}, filter.Set{})
	require.NoError(t, err)

	byName := map[string]SourceResult{}
	for _, r := range results {
		byName[r.Source] = r
	}
	require.Len(t, byName, 3)
	assert.Equal(t, StatusSuccess, byName["pii_db"].Status)
	assert.Equal(t, domain.ScanCounts{Schemas: 1, Tables: 3, Columns: 6}, byName["pii_db"].Counts)
	assert.Equal(t, StatusNotFound, byName["missing"].Status)
	assert.Equal(t, StatusEmptySource, byName["empty"].Status)

	tasks, err := f.repos.Tasks.ListByAppName(ctx, AppName)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	var ok, failed int
	for _, task := range tasks {
		switch task.Status {
		case domain.TaskSuccess:
			ok++
		case domain.TaskFailure:
			failed++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 2, failed)
}

func TestScanSources_AllWhenNoNames(t *testing.T) {
	f := newFixture(t)
	f.addSource(t, "one", piiDatabase(t))
	f.addSource(t, "two", piiDatabase(t))

	results, err := f.svc.ScanSources(context.Background(), nil,
		compile(t, filter.Patterns{IncludeTable: []string{"^no_pii$"}}))
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, StatusSuccess, r.Status, r.Source)
		assert.Equal(t, 1, r.Counts.Tables)
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, StatusNoMatches, classify("s", domain.ScanCounts{}, &domain.NoMatchesError{Source: "s", RecordsSeen: 2}).Status)
	assert.Equal(t, StatusEmptySource, classify("s", domain.ScanCounts{}, &domain.NoMatchesError{Source: "s"}).Status)
	assert.Equal(t, StatusFailed, classify("s", domain.ScanCounts{}, assert.AnError).Status)
}
