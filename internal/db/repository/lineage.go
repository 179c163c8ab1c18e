package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/db/mapper"
	"github.com/tokern/dbcat/internal/domain"
)

var _ domain.LineageRepository = (*LineageRepo)(nil)

// LineageRepo implements domain.LineageRepository for column lineage edges.
type LineageRepo struct {
	store      *db.Store
	columns    *ColumnRepo
	executions *JobExecutionRepo
}

// NewLineageRepo creates a new LineageRepo.
func NewLineageRepo(store *db.Store) *LineageRepo {
	return &LineageRepo{
		store:      store,
		columns:    NewColumnRepo(store),
		executions: NewJobExecutionRepo(store),
	}
}

const lineageColumns = `cl.id, cl.source_id, cl.target_id, cl.job_execution_id, cl.context, cl.created_at, cl.updated_at`

// Add returns the edge source → target asserted by execution, creating it
// with edgeContext if needed.
func (r *LineageRepo) Add(ctx context.Context, source, target *domain.Column, execution *domain.JobExecution, edgeContext map[string]any) (domain.Upserted[domain.ColumnLineage], error) {
	switch {
	case source == nil || source.ID == 0:
		return domain.Upserted[domain.ColumnLineage]{}, domain.ErrValidation("lineage requires a persisted source column")
	case target == nil || target.ID == 0:
		return domain.Upserted[domain.ColumnLineage]{}, domain.ErrValidation("lineage requires a persisted target column")
	case execution == nil || execution.ID == 0:
		return domain.Upserted[domain.ColumnLineage]{}, domain.ErrValidation("lineage requires a persisted job execution")
	}
	payload, err := mapper.ContextToDB(edgeContext)
	if err != nil {
		return domain.Upserted[domain.ColumnLineage]{}, domain.ErrValidation("lineage: %v", err)
	}

	attach := func(cl *domain.ColumnLineage) *domain.ColumnLineage {
		cl.Source, cl.Target, cl.JobExecution = source, target, execution
		return cl
	}
	return getOrCreate(ctx,
		func(ctx context.Context) (*domain.ColumnLineage, error) {
			cl, err := scanLineage(r.store.QueryRowContext(ctx,
				`SELECT `+lineageColumns+` FROM column_lineage cl
				 WHERE cl.source_id = ? AND cl.target_id = ? AND cl.job_execution_id = ?`,
				source.ID, target.ID, execution.ID))
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.ErrNotFound("lineage edge %d -> %d not found", source.ID, target.ID)
			}
			if err != nil {
				return nil, err
			}
			return attach(cl), nil
		},
		func(ctx context.Context) (*domain.ColumnLineage, error) {
			ts := now()
			id, err := r.store.InsertReturningID(ctx,
				`INSERT INTO column_lineage (context, source_id, target_id, job_execution_id, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				payload, source.ID, target.ID, execution.ID, ts, ts)
			if err != nil {
				return nil, err
			}
			return attach(&domain.ColumnLineage{
				ID: id, SourceID: source.ID, TargetID: target.ID, JobExecutionID: execution.ID,
				Context: edgeContext, CreatedAt: ts, UpdatedAt: ts,
			}), nil
		})
}

// List returns every edge when jobIDs is empty. Otherwise it returns only
// the edges asserted by the latest execution of each job in jobIDs.
func (r *LineageRepo) List(ctx context.Context, jobIDs []int64) ([]domain.ColumnLineage, error) {
	query := `SELECT ` + lineageColumns + ` FROM column_lineage cl`
	var args []any
	if len(jobIDs) > 0 {
		query += ` WHERE cl.job_execution_id IN (` + latestExecutionIDs(len(jobIDs)) + `)`
		args = int64Args(jobIDs)
	}
	rows, err := r.store.QueryContext(ctx, query+` ORDER BY cl.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list column lineage: %w", err)
	}
	edges, err := collect(rows, scanLineage)
	if err != nil {
		return nil, err
	}
	return edges, r.hydrate(ctx, edges)
}

func (r *LineageRepo) hydrate(ctx context.Context, edges []domain.ColumnLineage) error {
	columns := map[int64]*domain.Column{}
	executions := map[int64]*domain.JobExecution{}
	column := func(id int64) (*domain.Column, error) {
		if c, ok := columns[id]; ok {
			return c, nil
		}
		c, err := r.columns.GetByID(ctx, id)
		columns[id] = c
		return c, err
	}
	for i := range edges {
		e := &edges[i]
		var err error
		if e.Source, err = column(e.SourceID); err != nil {
			return err
		}
		if e.Target, err = column(e.TargetID); err != nil {
			return err
		}
		je, ok := executions[e.JobExecutionID]
		if !ok {
			if je, err = r.executions.GetByID(ctx, e.JobExecutionID); err != nil {
				return err
			}
			executions[e.JobExecutionID] = je
		}
		e.JobExecution = je
	}
	return nil
}

func scanLineage(sc rowScanner) (*domain.ColumnLineage, error) {
	var (
		cl      domain.ColumnLineage
		payload sql.NullString
	)
	if err := sc.Scan(&cl.ID, &cl.SourceID, &cl.TargetID, &cl.JobExecutionID, &payload, &cl.CreatedAt, &cl.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if cl.Context, err = mapper.ContextFromDB(payload); err != nil {
		return nil, err
	}
	return &cl, nil
}
