package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokern/dbcat/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func addExecution(t *testing.T, repos *Repositories, job *domain.Job, hour int) *domain.JobExecution {
	t.Helper()
	start := t0.Add(time.Duration(hour) * time.Hour)
	je, err := repos.JobExecutions.Add(context.Background(), job, start, start.Add(time.Minute), domain.JobExecutionSuccess)
	require.NoError(t, err)
	return je
}

func TestJobRepo_Add(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	src := seedSource(t, repos, "s")

	a, err := repos.Jobs.Add(ctx, src, "load", map[string]any{"sql": "insert into t select * from s"})
	require.NoError(t, err)
	assert.True(t, a.Created())

	b, err := repos.Jobs.Add(ctx, src, "load", map[string]any{"sql": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, a.Value.ID, b.Value.ID)
	assert.Equal(t, "insert into t select * from s", b.Value.Context["sql"])
	assert.Equal(t, "s", b.Value.Source.Name)

	free1, err := repos.Jobs.Add(ctx, nil, "load", nil)
	require.NoError(t, err)
	free2, err := repos.Jobs.Add(ctx, nil, "load", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Value.ID, free1.Value.ID, "source-less job is a different key")
	assert.Equal(t, free1.Value.ID, free2.Value.ID, "source-less jobs are unique by name")

	got, err := repos.Jobs.GetByName(ctx, "", "load")
	require.NoError(t, err)
	assert.Nil(t, got.SourceID)
	got, err = repos.Jobs.GetByName(ctx, "s", "load")
	require.NoError(t, err)
	assert.Equal(t, a.Value.ID, got.ID)
}

func TestJobExecutionRepo_Latest(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	job, err := repos.Jobs.Add(ctx, nil, "insert_page_lookup_redirect", nil)
	require.NoError(t, err)
	other, err := repos.Jobs.Add(ctx, nil, "other", nil)
	require.NoError(t, err)

	// Inserted out of start order.
	addExecution(t, repos, job.Value, 2)
	t3 := addExecution(t, repos, job.Value, 3)
	addExecution(t, repos, job.Value, 1)
	o1 := addExecution(t, repos, other.Value, 5)

	latest, err := repos.JobExecutions.Latest(ctx, []int64{job.Value.ID})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, t3.ID, latest[0].ID)
	assert.True(t, latest[0].StartedAt.Equal(t3.StartedAt))
	assert.Equal(t, "insert_page_lookup_redirect", latest[0].Job.Name)

	latest, err = repos.JobExecutions.Latest(ctx, []int64{job.Value.ID, other.Value.ID})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, t3.ID, latest[0].ID)
	assert.Equal(t, o1.ID, latest[1].ID)

	all, err := repos.JobExecutions.ListForJob(ctx, job.Value.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartedAt.Before(all[2].StartedAt))

	none, err := repos.JobExecutions.Latest(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJobExecutionRepo_Validation(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	job, err := repos.Jobs.Add(ctx, nil, "j", nil)
	require.NoError(t, err)

	var ve *domain.ValidationError
	_, err = repos.JobExecutions.Add(ctx, job.Value, t0, t0, "RUNNING")
	assert.ErrorAs(t, err, &ve)
	_, err = repos.JobExecutions.Add(ctx, job.Value, t0, t0.Add(-time.Second), domain.JobExecutionFailure)
	assert.ErrorAs(t, err, &ve)
}

func TestLineageRepo_JobScoping(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()
	src := seedSource(t, repos, "wiki")
	page := seedTable(t, repos, src, "default", "page")
	redirect := seedTable(t, repos, src, "default", "page_lookup_redirect")
	pageID := seedColumn(t, repos, page, "page_id", 0)
	pageTitle := seedColumn(t, repos, page, "page_title", 1)
	redirectID := seedColumn(t, repos, redirect, "redirect_id", 0)
	redirectTitle := seedColumn(t, repos, redirect, "true_title", 1)

	job, err := repos.Jobs.Add(ctx, src, "insert_page_lookup_redirect", nil)
	require.NoError(t, err)
	first := addExecution(t, repos, job.Value, 1)
	second := addExecution(t, repos, job.Value, 2)

	e1, err := repos.Lineage.Add(ctx, pageID, redirectID, first, map[string]any{"sql": "v1"})
	require.NoError(t, err)
	e2, err := repos.Lineage.Add(ctx, pageTitle, redirectTitle, second, nil)
	require.NoError(t, err)
	e3, err := repos.Lineage.Add(ctx, pageID, redirectID, second, nil)
	require.NoError(t, err)
	assert.NotEqual(t, e1.Value.ID, e3.Value.ID, "another execution may assert the same edge")

	dup, err := repos.Lineage.Add(ctx, pageID, redirectID, first, map[string]any{"sql": "v2"})
	require.NoError(t, err)
	assert.Equal(t, domain.AlreadyExists, dup.Outcome)
	assert.Equal(t, e1.Value.ID, dup.Value.ID)

	all, err := repos.Lineage.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "v1", all[0].Context["sql"])

	scoped, err := repos.Lineage.List(ctx, []int64{job.Value.ID})
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	ids := []int64{scoped[0].ID, scoped[1].ID}
	assert.ElementsMatch(t, []int64{e2.Value.ID, e3.Value.ID}, ids)
	for _, e := range scoped {
		assert.Equal(t, second.ID, e.JobExecutionID)
		assert.Equal(t, "wiki", e.Source.Table.Schema.Source.Name)
	}
}

func TestTaskRepo(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	_, err := repos.Tasks.Add(ctx, "dbcat.scan", domain.TaskSuccess, "scanned pg")
	require.NoError(t, err)
	_, err = repos.Tasks.Add(ctx, "dbcat.scan", domain.TaskFailure, "")
	require.NoError(t, err)
	_, err = repos.Tasks.Add(ctx, "piicatcher", domain.TaskSuccess, "")
	require.NoError(t, err)

	tasks, err := repos.Tasks.ListByAppName(ctx, "dbcat.scan")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskSuccess, tasks[0].Status)
	assert.Equal(t, "scanned pg", tasks[0].Message)
	assert.Equal(t, domain.TaskFailure, tasks[1].Status)
}
