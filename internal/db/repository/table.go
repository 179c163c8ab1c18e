package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/domain"
)

var _ domain.TableRepository = (*TableRepo)(nil)

// TableRepo implements domain.TableRepository.
type TableRepo struct {
	store *db.Store
}

// NewTableRepo creates a new TableRepo.
func NewTableRepo(store *db.Store) *TableRepo {
	return &TableRepo{store: store}
}

// Add returns the table (schema, name), creating it if needed.
func (r *TableRepo) Add(ctx context.Context, schema *domain.Schema, name string) (domain.Upserted[domain.Table], error) {
	if schema == nil || schema.ID == 0 {
		return domain.Upserted[domain.Table]{}, domain.ErrValidation("table %q requires a persisted schema", name)
	}
	if err := requireName("table", name); err != nil {
		return domain.Upserted[domain.Table]{}, err
	}

	return getOrCreate(ctx,
		func(ctx context.Context) (*domain.Table, error) {
			return r.getByKey(ctx, schema.ID, name)
		},
		func(ctx context.Context) (*domain.Table, error) {
			ts := now()
			id, err := r.store.InsertReturningID(ctx,
				`INSERT INTO tables (schema_id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
				schema.ID, name, ts, ts)
			if err != nil {
				return nil, err
			}
			return &domain.Table{ID: id, SchemaID: schema.ID, Name: name, Schema: schema, CreatedAt: ts, UpdatedAt: ts}, nil
		})
}

func (r *TableRepo) getByKey(ctx context.Context, schemaID int64, name string) (*domain.Table, error) {
	t, err := scanTable(r.store.QueryRowContext(ctx,
		`SELECT `+tableColumns+tableFrom+` WHERE t.schema_id = ? AND t.name = ?`, schemaID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("table %q not found in schema %d", name, schemaID)
	}
	return t, err
}

// Get returns the table identified by its composite key.
func (r *TableRepo) Get(ctx context.Context, sourceName, schemaName, tableName string) (*domain.Table, error) {
	t, err := scanTable(r.store.QueryRowContext(ctx,
		`SELECT `+tableColumns+tableFrom+` WHERE s.name = ? AND sc.name = ? AND t.name = ?`,
		sourceName, schemaName, tableName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("table %s.%s.%s not found", sourceName, schemaName, tableName)
	}
	return t, mapDBError(err)
}

// GetByID returns the table with the given id.
func (r *TableRepo) GetByID(ctx context.Context, id int64) (*domain.Table, error) {
	t, err := scanTable(r.store.QueryRowContext(ctx,
		`SELECT `+tableColumns+tableFrom+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("table %d not found", id)
	}
	return t, mapDBError(err)
}

// List returns the tables of a schema ordered by name.
func (r *TableRepo) List(ctx context.Context, sourceName, schemaName string) ([]domain.Table, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+tableColumns+tableFrom+` WHERE s.name = ? AND sc.name = ? ORDER BY t.name`,
		sourceName, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return collect(rows, scanTable)
}

// Search returns tables matching q.Table, optionally constrained by
// q.Schema and q.Source.
func (r *TableRepo) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Table, error) {
	where, args := likeClause(nil, nil, "t.name", q.Table)
	where, args = likeClause(where, args, "sc.name", q.Schema)
	where, args = likeClause(where, args, "s.name", q.Source)
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+tableColumns+tableFrom+whereSQL(where)+` ORDER BY s.name, sc.name, t.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("search tables: %w", err)
	}
	return collect(rows, scanTable)
}
