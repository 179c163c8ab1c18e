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

var _ domain.JobRepository = (*JobRepo)(nil)

// JobRepo implements domain.JobRepository.
type JobRepo struct {
	store   *db.Store
	sources *SourceRepo
}

// NewJobRepo creates a new JobRepo.
func NewJobRepo(store *db.Store) *JobRepo {
	return &JobRepo{store: store, sources: NewSourceRepo(store)}
}

const jobColumns = `j.id, j.source_id, j.name, j.context, j.created_at, j.updated_at`

// Add returns the job (source, name), creating it with jobContext if
// needed. source may be nil for jobs not tied to a source.
func (r *JobRepo) Add(ctx context.Context, source *domain.Source, name string, jobContext map[string]any) (domain.Upserted[domain.Job], error) {
	if err := requireName("job", name); err != nil {
		return domain.Upserted[domain.Job]{}, err
	}
	var sourceID *int64
	if source != nil {
		if source.ID == 0 {
			return domain.Upserted[domain.Job]{}, domain.ErrValidation("job %q references an unsaved source", name)
		}
		id := source.ID
		sourceID = &id
	}
	payload, err := mapper.ContextToDB(jobContext)
	if err != nil {
		return domain.Upserted[domain.Job]{}, domain.ErrValidation("job %q: %v", name, err)
	}

	return getOrCreate(ctx,
		func(ctx context.Context) (*domain.Job, error) {
			var key int64
			if sourceID != nil {
				key = *sourceID
			}
			return r.get(ctx, `COALESCE(j.source_id, 0) = ? AND j.name = ?`, key, name)
		},
		func(ctx context.Context) (*domain.Job, error) {
			ts := now()
			id, err := r.store.InsertReturningID(ctx,
				`INSERT INTO jobs (source_id, name, context, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				mapper.NullIntFromPtr(sourceID), name, payload, ts, ts)
			if err != nil {
				return nil, err
			}
			return &domain.Job{
				ID: id, SourceID: sourceID, Name: name, Context: jobContext, Source: source,
				CreatedAt: ts, UpdatedAt: ts,
			}, nil
		})
}

// GetByID returns the job with the given id.
func (r *JobRepo) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	return r.get(ctx, `j.id = ?`, id)
}

// GetByName returns a job by name. An empty sourceName selects jobs that
// are not tied to a source.
func (r *JobRepo) GetByName(ctx context.Context, sourceName, name string) (*domain.Job, error) {
	if sourceName == "" {
		return r.get(ctx, `j.source_id IS NULL AND j.name = ?`, name)
	}
	return r.get(ctx, `j.source_id = (SELECT id FROM sources WHERE name = ?) AND j.name = ?`, sourceName, name)
}

func (r *JobRepo) get(ctx context.Context, cond string, args ...any) (*domain.Job, error) {
	var (
		j        domain.Job
		sourceID sql.NullInt64
		payload  sql.NullString
	)
	err := r.store.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs j WHERE `+cond, args...).
		Scan(&j.ID, &sourceID, &j.Name, &payload, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if j.Context, err = mapper.ContextFromDB(payload); err != nil {
		return nil, err
	}
	j.SourceID = mapper.PtrFromNullInt(sourceID)
	if j.SourceID != nil {
		if j.Source, err = r.sources.GetByID(ctx, *j.SourceID); err != nil {
			return nil, err
		}
	}
	return &j, nil
}
