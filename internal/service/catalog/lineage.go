package catalog

import (
	"context"
	"time"

	"github.com/tokern/dbcat/internal/domain"
)

// AddJob returns the job (source, name), creating it if needed.
func (s *Service) AddJob(ctx context.Context, source *domain.Source, name string, jobContext map[string]any) (domain.Upserted[domain.Job], error) {
	return s.jobs.Add(ctx, source, name, jobContext)
}

// GetJob returns a job by source name and job name. Use an empty source
// name for jobs without a source.
func (s *Service) GetJob(ctx context.Context, sourceName, name string) (*domain.Job, error) {
	return s.jobs.GetByName(ctx, sourceName, name)
}

// AddJobExecution records one run of job.
func (s *Service) AddJobExecution(ctx context.Context, job *domain.Job, startedAt, endedAt time.Time, status domain.JobExecutionStatus) (*domain.JobExecution, error) {
	return s.executions.Add(ctx, job, startedAt, endedAt, status)
}

// GetJobExecutions returns every execution of a job.
func (s *Service) GetJobExecutions(ctx context.Context, jobID int64) ([]domain.JobExecution, error) {
	return s.executions.ListForJob(ctx, jobID)
}

// GetLatestJobExecutions returns the most recent execution of each job,
// ranked by start time with the higher id breaking ties.
func (s *Service) GetLatestJobExecutions(ctx context.Context, jobIDs []int64) ([]domain.JobExecution, error) {
	return s.executions.Latest(ctx, jobIDs)
}

// AddColumnLineage records the edge source → target for execution.
func (s *Service) AddColumnLineage(ctx context.Context, source, target *domain.Column, execution *domain.JobExecution, edgeContext map[string]any) (domain.Upserted[domain.ColumnLineage], error) {
	return s.lineage.Add(ctx, source, target, execution, edgeContext)
}

// GetColumnLineages returns all edges, or only those asserted by the latest
// execution of each job in jobIDs.
func (s *Service) GetColumnLineages(ctx context.Context, jobIDs []int64) ([]domain.ColumnLineage, error) {
	return s.lineage.List(ctx, jobIDs)
}
