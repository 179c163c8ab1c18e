package domain

import (
	"slices"
	"time"
)

// Job is a named unit of work that produces lineage, optionally tied to a
// Source. (source_id, name) is unique; source-less jobs are unique by name.
type Job struct {
	ID        int64
	SourceID  *int64
	Name      string
	Context   map[string]any
	Source    *Source
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FQDN returns [source, job]. Source-less jobs have an empty source name.
func (j *Job) FQDN() []string {
	return append(j.Source.FQDN(), j.Name)
}

// Equal reports whether two jobs have the same fully-qualified name.
func (j *Job) Equal(o *Job) bool {
	return o != nil && slices.Equal(j.FQDN(), o.FQDN())
}

// JobExecutionStatus is the terminal state of a job run.
type JobExecutionStatus string

// Job execution statuses.
const (
	JobExecutionSuccess JobExecutionStatus = "SUCCESS"
	JobExecutionFailure JobExecutionStatus = "FAILURE"
)

// ParseJobExecutionStatus validates a status string.
func ParseJobExecutionStatus(s string) (JobExecutionStatus, error) {
	switch JobExecutionStatus(s) {
	case JobExecutionSuccess, JobExecutionFailure:
		return JobExecutionStatus(s), nil
	}
	return "", ErrValidation("unknown job execution status %q", s)
}

// JobExecution is one run of a Job.
type JobExecution struct {
	ID        int64
	JobID     int64
	StartedAt time.Time
	EndedAt   time.Time
	Status    JobExecutionStatus
	Job       *Job
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ColumnLineage is a directed source column to target column edge asserted
// by one job execution. (source_id, target_id, job_execution_id) is unique.
type ColumnLineage struct {
	ID             int64
	SourceID       int64
	TargetID       int64
	JobExecutionID int64
	Context        map[string]any
	Source         *Column
	Target         *Column
	JobExecution   *JobExecution
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
