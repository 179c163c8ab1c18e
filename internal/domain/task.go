package domain

import "time"

// TaskStatus is the outcome of an application run.
type TaskStatus int

// Task statuses.
const (
	TaskSuccess TaskStatus = 1
	TaskFailure TaskStatus = 2
)

func (s TaskStatus) String() string {
	switch s {
	case TaskSuccess:
		return "SUCCESS"
	case TaskFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Task records one application run, e.g. the scan of a single source.
type Task struct {
	ID        int64
	AppName   string
	Status    TaskStatus
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
