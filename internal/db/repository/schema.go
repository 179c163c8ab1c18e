package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/domain"
)

var _ domain.SchemaRepository = (*SchemaRepo)(nil)

// SchemaRepo implements domain.SchemaRepository.
type SchemaRepo struct {
	store *db.Store
}

// NewSchemaRepo creates a new SchemaRepo.
func NewSchemaRepo(store *db.Store) *SchemaRepo {
	return &SchemaRepo{store: store}
}

// Add returns the schema (source, name), creating it if needed.
func (r *SchemaRepo) Add(ctx context.Context, source *domain.Source, name string) (domain.Upserted[domain.Schema], error) {
	if source == nil || source.ID == 0 {
		return domain.Upserted[domain.Schema]{}, domain.ErrValidation("schema %q requires a persisted source", name)
	}
	if err := requireName("schema", name); err != nil {
		return domain.Upserted[domain.Schema]{}, err
	}

	return getOrCreate(ctx,
		func(ctx context.Context) (*domain.Schema, error) {
			return r.getByKey(ctx, source.ID, name)
		},
		func(ctx context.Context) (*domain.Schema, error) {
			ts := now()
			id, err := r.store.InsertReturningID(ctx,
				`INSERT INTO schemata (source_id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
				source.ID, name, ts, ts)
			if err != nil {
				return nil, err
			}
			return &domain.Schema{ID: id, SourceID: source.ID, Name: name, Source: source, CreatedAt: ts, UpdatedAt: ts}, nil
		})
}

func (r *SchemaRepo) getByKey(ctx context.Context, sourceID int64, name string) (*domain.Schema, error) {
	s, err := scanSchema(r.store.QueryRowContext(ctx,
		`SELECT `+schemaColumns+schemaFrom+` WHERE sc.source_id = ? AND sc.name = ?`, sourceID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("schema %q not found in source %d", name, sourceID)
	}
	return s, err
}

// Get returns the schema identified by its composite key.
func (r *SchemaRepo) Get(ctx context.Context, sourceName, schemaName string) (*domain.Schema, error) {
	s, err := scanSchema(r.store.QueryRowContext(ctx,
		`SELECT `+schemaColumns+schemaFrom+` WHERE s.name = ? AND sc.name = ?`, sourceName, schemaName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("schema %s.%s not found", sourceName, schemaName)
	}
	return s, mapDBError(err)
}

// GetByID returns the schema with the given id.
func (r *SchemaRepo) GetByID(ctx context.Context, id int64) (*domain.Schema, error) {
	s, err := scanSchema(r.store.QueryRowContext(ctx,
		`SELECT `+schemaColumns+schemaFrom+` WHERE sc.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("schema %d not found", id)
	}
	return s, mapDBError(err)
}

// List returns the schemas of a source ordered by name.
func (r *SchemaRepo) List(ctx context.Context, sourceName string) ([]domain.Schema, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+schemaColumns+schemaFrom+` WHERE s.name = ? ORDER BY sc.name`, sourceName)
	if err != nil {
		return nil, fmt.Errorf("list schemata: %w", err)
	}
	return collect(rows, scanSchema)
}

// Search returns schemas matching q.Schema, optionally within sources
// matching q.Source.
func (r *SchemaRepo) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Schema, error) {
	where, args := likeClause(nil, nil, "sc.name", q.Schema)
	where, args = likeClause(where, args, "s.name", q.Source)
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+schemaColumns+schemaFrom+whereSQL(where)+` ORDER BY s.name, sc.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("search schemata: %w", err)
	}
	return collect(rows, scanSchema)
}
