package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/db/mapper"
	"github.com/tokern/dbcat/internal/domain"
)

var _ domain.TaskRepository = (*TaskRepo)(nil)

// TaskRepo implements domain.TaskRepository.
type TaskRepo struct {
	store *db.Store
}

// NewTaskRepo creates a new TaskRepo.
func NewTaskRepo(store *db.Store) *TaskRepo {
	return &TaskRepo{store: store}
}

// Add records one run of appName.
func (r *TaskRepo) Add(ctx context.Context, appName string, status domain.TaskStatus, message string) (*domain.Task, error) {
	if err := requireName("app", appName); err != nil {
		return nil, err
	}
	ts := now()
	id, err := r.store.InsertReturningID(ctx,
		`INSERT INTO tasks (app_name, status, message, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		appName, int(status), mapper.NullStrFromStr(message), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return &domain.Task{ID: id, AppName: appName, Status: status, Message: message, CreatedAt: ts, UpdatedAt: ts}, nil
}

// ListByAppName returns the runs of appName, oldest first.
func (r *TaskRepo) ListByAppName(ctx context.Context, appName string) ([]domain.Task, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT id, app_name, status, message, created_at, updated_at
		 FROM tasks WHERE app_name = ? ORDER BY created_at, id`, appName)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return collect(rows, func(sc rowScanner) (*domain.Task, error) {
		var (
			t       domain.Task
			status  int
			message sql.NullString
		)
		if err := sc.Scan(&t.ID, &t.AppName, &status, &message, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Status = domain.TaskStatus(status)
		t.Message = message.String
		return &t, nil
	})
}
