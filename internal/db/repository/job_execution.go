package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/db/mapper"
	"github.com/tokern/dbcat/internal/domain"
)

var _ domain.JobExecutionRepository = (*JobExecutionRepo)(nil)

// JobExecutionRepo implements domain.JobExecutionRepository.
type JobExecutionRepo struct {
	store *db.Store
	jobs  *JobRepo
}

// NewJobExecutionRepo creates a new JobExecutionRepo.
func NewJobExecutionRepo(store *db.Store) *JobExecutionRepo {
	return &JobExecutionRepo{store: store, jobs: NewJobRepo(store)}
}

const jobExecutionColumns = `je.id, je.job_id, je.started_at, je.ended_at, je.status, je.created_at, je.updated_at`

// latestExecutionIDs selects, per job, the execution with the greatest
// started_at. Ties go to the most recently inserted row.
func latestExecutionIDs(n int) string {
	return `SELECT id FROM (
		SELECT id, ROW_NUMBER() OVER (PARTITION BY job_id ORDER BY started_at DESC, id DESC) AS rn
		FROM job_executions
		WHERE job_id IN (` + placeholders(n) + `)
	) ranked WHERE rn = 1`
}

// Add records a run of job. Executions have no natural key; every call
// inserts a row.
func (r *JobExecutionRepo) Add(ctx context.Context, job *domain.Job, startedAt, endedAt time.Time, status domain.JobExecutionStatus) (*domain.JobExecution, error) {
	if job == nil || job.ID == 0 {
		return nil, domain.ErrValidation("job execution requires a persisted job")
	}
	if _, err := domain.ParseJobExecutionStatus(string(status)); err != nil {
		return nil, err
	}
	if endedAt.Before(startedAt) {
		return nil, domain.ErrValidation("job execution ends before it starts")
	}

	ts := now()
	started, ended := mapper.UTC(startedAt), mapper.UTC(endedAt)
	id, err := r.store.InsertReturningID(ctx,
		`INSERT INTO job_executions (job_id, started_at, ended_at, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, started, ended, string(status), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert job execution: %w", err)
	}
	return &domain.JobExecution{
		ID: id, JobID: job.ID, StartedAt: started, EndedAt: ended, Status: status, Job: job,
		CreatedAt: ts, UpdatedAt: ts,
	}, nil
}

// GetByID returns the execution with the given id.
func (r *JobExecutionRepo) GetByID(ctx context.Context, id int64) (*domain.JobExecution, error) {
	je, err := scanJobExecution(r.store.QueryRowContext(ctx,
		`SELECT `+jobExecutionColumns+` FROM job_executions je WHERE je.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("job execution %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if je.Job, err = r.jobs.GetByID(ctx, je.JobID); err != nil {
		return nil, err
	}
	return je, nil
}

// ListForJob returns the executions of a job ordered by start time.
func (r *JobExecutionRepo) ListForJob(ctx context.Context, jobID int64) ([]domain.JobExecution, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+jobExecutionColumns+` FROM job_executions je WHERE je.job_id = ? ORDER BY je.started_at, je.id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job executions: %w", err)
	}
	out, err := collect(rows, scanJobExecution)
	if err != nil {
		return nil, err
	}
	return out, r.attachJobs(ctx, out)
}

// Latest returns the most recent execution of each job in jobIDs. Jobs
// without executions are absent from the result.
func (r *JobExecutionRepo) Latest(ctx context.Context, jobIDs []int64) ([]domain.JobExecution, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+jobExecutionColumns+` FROM job_executions je
		 WHERE je.id IN (`+latestExecutionIDs(len(jobIDs))+`)
		 ORDER BY je.job_id`, int64Args(jobIDs)...)
	if err != nil {
		return nil, fmt.Errorf("latest job executions: %w", err)
	}
	out, err := collect(rows, scanJobExecution)
	if err != nil {
		return nil, err
	}
	return out, r.attachJobs(ctx, out)
}

func (r *JobExecutionRepo) attachJobs(ctx context.Context, execs []domain.JobExecution) error {
	jobs := map[int64]*domain.Job{}
	for i := range execs {
		j, ok := jobs[execs[i].JobID]
		if !ok {
			var err error
			if j, err = r.jobs.GetByID(ctx, execs[i].JobID); err != nil {
				return err
			}
			jobs[execs[i].JobID] = j
		}
		execs[i].Job = j
	}
	return nil
}

func scanJobExecution(sc rowScanner) (*domain.JobExecution, error) {
	var (
		je     domain.JobExecution
		status string
	)
	if err := sc.Scan(&je.ID, &je.JobID, &je.StartedAt, &je.EndedAt, &status, &je.CreatedAt, &je.UpdatedAt); err != nil {
		return nil, err
	}
	je.Status = domain.JobExecutionStatus(status)
	return &je, nil
}
