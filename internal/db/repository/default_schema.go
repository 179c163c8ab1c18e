package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/domain"
)

var _ domain.DefaultSchemaRepository = (*DefaultSchemaRepo)(nil)

// DefaultSchemaRepo implements domain.DefaultSchemaRepository.
type DefaultSchemaRepo struct {
	store *db.Store
}

// NewDefaultSchemaRepo creates a new DefaultSchemaRepo.
func NewDefaultSchemaRepo(store *db.Store) *DefaultSchemaRepo {
	return &DefaultSchemaRepo{store: store}
}

// Set makes schema the default schema of source, replacing any previous one.
func (r *DefaultSchemaRepo) Set(ctx context.Context, source *domain.Source, schema *domain.Schema) error {
	if source == nil || source.ID == 0 || schema == nil || schema.ID == 0 {
		return domain.ErrValidation("default schema requires a persisted source and schema")
	}
	if schema.SourceID != source.ID {
		return domain.ErrValidation("schema %q does not belong to source %q", schema.Name, source.Name)
	}
	ts := now()
	_, err := r.store.ExecContext(ctx,
		`INSERT INTO default_schema (source_id, schema_id, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (source_id) DO UPDATE SET schema_id = excluded.schema_id, updated_at = excluded.updated_at`,
		source.ID, schema.ID, ts, ts)
	if err != nil {
		return fmt.Errorf("set default schema of %q: %w", source.Name, err)
	}
	return nil
}

// Get returns the default schema of a source.
func (r *DefaultSchemaRepo) Get(ctx context.Context, sourceName string) (*domain.Schema, error) {
	s, err := scanSchema(r.store.QueryRowContext(ctx,
		`SELECT `+schemaColumns+schemaFrom+`
		 JOIN default_schema ds ON ds.schema_id = sc.id
		 WHERE s.name = ?`, sourceName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("source %q has no default schema", sourceName)
	}
	return s, mapDBError(err)
}
