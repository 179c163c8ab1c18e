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

var _ domain.ColumnRepository = (*ColumnRepo)(nil)

// ColumnRepo implements domain.ColumnRepository.
type ColumnRepo struct {
	store *db.Store
}

// NewColumnRepo creates a new ColumnRepo.
func NewColumnRepo(store *db.Store) *ColumnRepo {
	return &ColumnRepo{store: store}
}

// Add returns the column (table, name), creating it with dataType and
// sortOrder if needed. An existing column keeps its stored type and order;
// use Update to change them.
func (r *ColumnRepo) Add(ctx context.Context, table *domain.Table, name, dataType string, sortOrder int) (domain.Upserted[domain.Column], error) {
	if table == nil || table.ID == 0 {
		return domain.Upserted[domain.Column]{}, domain.ErrValidation("column %q requires a persisted table", name)
	}
	if err := requireName("column", name); err != nil {
		return domain.Upserted[domain.Column]{}, err
	}
	if sortOrder < 0 {
		return domain.Upserted[domain.Column]{}, domain.ErrValidation("column %q has negative sort order %d", name, sortOrder)
	}

	return getOrCreate(ctx,
		func(ctx context.Context) (*domain.Column, error) {
			return r.getByKey(ctx, table.ID, name)
		},
		func(ctx context.Context) (*domain.Column, error) {
			ts := now()
			id, err := r.store.InsertReturningID(ctx,
				`INSERT INTO columns (table_id, name, data_type, sort_order, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				table.ID, name, dataType, sortOrder, ts, ts)
			if err != nil {
				return nil, err
			}
			return &domain.Column{
				ID: id, TableID: table.ID, Name: name, DataType: dataType, SortOrder: sortOrder,
				Table: table, CreatedAt: ts, UpdatedAt: ts,
			}, nil
		})
}

func (r *ColumnRepo) getByKey(ctx context.Context, tableID int64, name string) (*domain.Column, error) {
	c, err := scanColumn(r.store.QueryRowContext(ctx,
		`SELECT `+columnColumns+columnFrom+` WHERE c.table_id = ? AND c.name = ?`, tableID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("column %q not found in table %d", name, tableID)
	}
	return c, err
}

// Get returns the column identified by its composite key.
func (r *ColumnRepo) Get(ctx context.Context, sourceName, schemaName, tableName, columnName string) (*domain.Column, error) {
	c, err := scanColumn(r.store.QueryRowContext(ctx,
		`SELECT `+columnColumns+columnFrom+` WHERE s.name = ? AND sc.name = ? AND t.name = ? AND c.name = ?`,
		sourceName, schemaName, tableName, columnName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("column %s.%s.%s.%s not found", sourceName, schemaName, tableName, columnName)
	}
	return c, mapDBError(err)
}

// GetByID returns the column with the given id.
func (r *ColumnRepo) GetByID(ctx context.Context, id int64) (*domain.Column, error) {
	c, err := scanColumn(r.store.QueryRowContext(ctx,
		`SELECT `+columnColumns+columnFrom+` WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("column %d not found", id)
	}
	return c, mapDBError(err)
}

// Search returns columns matching q.Column, optionally constrained by
// q.Table, q.Schema and q.Source.
func (r *ColumnRepo) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Column, error) {
	where, args := likeClause(nil, nil, "c.name", q.Column)
	where, args = likeClause(where, args, "t.name", q.Table)
	where, args = likeClause(where, args, "sc.name", q.Schema)
	where, args = likeClause(where, args, "s.name", q.Source)
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+columnColumns+columnFrom+whereSQL(where)+` ORDER BY s.name, sc.name, t.name, c.sort_order`, args...)
	if err != nil {
		return nil, fmt.Errorf("search columns: %w", err)
	}
	return collect(rows, scanColumn)
}

// ListForTable returns the columns of a table ordered by sort order. names,
// when non-empty, restricts the result to those columns; newerThan, when
// set, to columns updated after it.
func (r *ColumnRepo) ListForTable(ctx context.Context, table *domain.Table, names []string, newerThan *time.Time) ([]domain.Column, error) {
	if table == nil || table.ID == 0 {
		return nil, domain.ErrValidation("a persisted table is required")
	}
	where := []string{"c.table_id = ?"}
	args := []any{table.ID}
	if len(names) > 0 {
		where = append(where, "c.name IN ("+placeholders(len(names))+")")
		args = append(args, stringArgs(names)...)
	}
	if newerThan != nil {
		where = append(where, "c.updated_at > ?")
		args = append(args, mapper.UTC(*newerThan))
	}
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+columnColumns+columnFrom+whereSQL(where)+` ORDER BY c.sort_order`, args...)
	if err != nil {
		return nil, fmt.Errorf("list columns for table %d: %w", table.ID, err)
	}
	return collect(rows, scanColumn)
}

// Update sets the data type and sort order of an existing column.
func (r *ColumnRepo) Update(ctx context.Context, id int64, dataType string, sortOrder int) (*domain.Column, error) {
	if sortOrder < 0 {
		return nil, domain.ErrValidation("negative sort order %d", sortOrder)
	}
	res, err := r.store.ExecContext(ctx,
		`UPDATE columns SET data_type = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		dataType, sortOrder, now(), id)
	if err != nil {
		return nil, fmt.Errorf("update column %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("column %d not found", id)
	}
	return r.GetByID(ctx, id)
}

// SetPIIType tags a column with a PII type and the plugin that detected it.
func (r *ColumnRepo) SetPIIType(ctx context.Context, id int64, piiType domain.PIIType, plugin string) (*domain.Column, error) {
	pt, err := domain.ParsePIIType(string(piiType))
	if err != nil {
		return nil, err
	}
	res, err := r.store.ExecContext(ctx,
		`UPDATE columns SET pii_type = ?, pii_plugin = ?, updated_at = ? WHERE id = ?`,
		string(pt), mapper.NullStrFromStr(plugin), now(), id)
	if err != nil {
		return nil, fmt.Errorf("set pii type on column %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("column %d not found", id)
	}
	return r.GetByID(ctx, id)
}
