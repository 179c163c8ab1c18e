package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/db/mapper"
	"github.com/tokern/dbcat/internal/domain"
)

var _ domain.SourceRepository = (*SourceRepo)(nil)

// SourceRepo implements domain.SourceRepository.
type SourceRepo struct {
	store *db.Store
}

// NewSourceRepo creates a new SourceRepo.
func NewSourceRepo(store *db.Store) *SourceRepo {
	return &SourceRepo{store: store}
}

// Add registers a source. A name already in use is a *domain.ConflictError.
func (r *SourceRepo) Add(ctx context.Context, s *domain.Source) (*domain.Source, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	ts := now()
	id, err := r.store.InsertReturningID(ctx, `
		INSERT INTO sources (name, source_type, dialect, uri, port, username, password, database,
			instance, cluster, project_id, project_credentials, page_size, filter_key,
			included_tables_regex, key_path, account, role, warehouse, aws_access_key_id,
			aws_secret_access_key, region_name, s3_staging_dir, service_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Name, string(s.SourceType),
		mapper.NullStrFromStr(s.Dialect), mapper.NullStrFromStr(s.URI), mapper.NullIntFromInt(s.Port),
		mapper.NullStrFromStr(s.Username), mapper.NullStrFromStr(s.Password), mapper.NullStrFromStr(s.Database),
		mapper.NullStrFromStr(s.Instance), mapper.NullStrFromStr(s.Cluster), mapper.NullStrFromStr(s.ProjectID),
		mapper.NullStrFromStr(s.ProjectCredentials), mapper.NullIntFromInt(s.PageSize),
		mapper.NullStrFromStr(s.FilterKey), mapper.NullStrFromStr(s.IncludedTablesRegex),
		mapper.NullStrFromStr(s.KeyPath), mapper.NullStrFromStr(s.Account), mapper.NullStrFromStr(s.Role),
		mapper.NullStrFromStr(s.Warehouse), mapper.NullStrFromStr(s.AWSAccessKeyID),
		mapper.NullStrFromStr(s.AWSSecretAccessKey), mapper.NullStrFromStr(s.RegionName),
		mapper.NullStrFromStr(s.S3StagingDir), mapper.NullStrFromStr(s.ServiceName),
		ts, ts)
	if db.IsUniqueViolation(err) {
		return nil, domain.ErrConflict("source %q already exists", s.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("insert source %q: %w", s.Name, err)
	}

	out := *s
	out.ID = id
	out.CreatedAt, out.UpdatedAt = ts, ts
	return &out, nil
}

// GetByName returns the source with the given name.
func (r *SourceRepo) GetByName(ctx context.Context, name string) (*domain.Source, error) {
	s, err := scanSource(r.store.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources s WHERE s.name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("source %q not found", name)
	}
	return s, err
}

// GetByID returns the source with the given id.
func (r *SourceRepo) GetByID(ctx context.Context, id int64) (*domain.Source, error) {
	s, err := scanSource(r.store.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources s WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("source %d not found", id)
	}
	return s, err
}

// List returns all sources ordered by name.
func (r *SourceRepo) List(ctx context.Context) ([]domain.Source, error) {
	return r.Search(ctx, "")
}

// Search returns sources whose name matches a LIKE pattern.
func (r *SourceRepo) Search(ctx context.Context, sourceLike string) ([]domain.Source, error) {
	where, args := likeClause(nil, nil, "s.name", sourceLike)
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources s`+whereSQL(where)+` ORDER BY s.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("search sources: %w", err)
	}
	return collect(rows, scanSource)
}

// UpdateSecrets changes connection fields of a source. The name and type
// cannot change.
func (r *SourceRepo) UpdateSecrets(ctx context.Context, name string, sec domain.SourceSecrets) (*domain.Source, error) {
	var sets []string
	var args []any
	str := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, mapper.NullStrFromStr(*v))
		}
	}
	str("uri", sec.URI)
	str("username", sec.Username)
	str("password", sec.Password)
	str("database", sec.Database)
	str("key_path", sec.KeyPath)
	str("project_credentials", sec.ProjectCredentials)
	str("account", sec.Account)
	str("role", sec.Role)
	str("warehouse", sec.Warehouse)
	str("aws_access_key_id", sec.AWSAccessKeyID)
	str("aws_secret_access_key", sec.AWSSecretAccessKey)
	str("region_name", sec.RegionName)
	str("s3_staging_dir", sec.S3StagingDir)
	if sec.Port != nil {
		if *sec.Port < 0 || *sec.Port > 65535 {
			return nil, domain.ErrValidation("invalid port %d", *sec.Port)
		}
		sets = append(sets, "port = ?")
		args = append(args, mapper.NullIntFromInt(*sec.Port))
	}
	if len(sets) == 0 {
		return r.GetByName(ctx, name)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, now(), name)
	res, err := r.store.ExecContext(ctx,
		`UPDATE sources SET `+strings.Join(sets, ", ")+` WHERE name = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update source %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("source %q not found", name)
	}
	return r.GetByName(ctx, name)
}

// Delete removes a source. Its schemas, tables, columns, jobs, default
// schema and any lineage touching its columns are removed with it.
func (r *SourceRepo) Delete(ctx context.Context, name string) error {
	res, err := r.store.ExecContext(ctx, `DELETE FROM sources WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete source %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("source %q not found", name)
	}
	return nil
}
