// Package catalog is the read and registration surface over the catalog
// store used by the CLI and the HTTP API.
package catalog

import (
	"context"
	"time"

	"github.com/tokern/dbcat/internal/db/repository"
	"github.com/tokern/dbcat/internal/domain"
)

// Service wraps the catalog repositories.
type Service struct {
	sources        domain.SourceRepository
	schemas        domain.SchemaRepository
	tables         domain.TableRepository
	columns        domain.ColumnRepository
	jobs           domain.JobRepository
	executions     domain.JobExecutionRepository
	lineage        domain.LineageRepository
	defaultSchemas domain.DefaultSchemaRepository
	tasks          domain.TaskRepository
}

// NewService creates a catalog Service.
func NewService(repos *repository.Repositories) *Service {
	return &Service{
		sources:        repos.Sources,
		schemas:        repos.Schemas,
		tables:         repos.Tables,
		columns:        repos.Columns,
		jobs:           repos.Jobs,
		executions:     repos.JobExecutions,
		lineage:        repos.Lineage,
		defaultSchemas: repos.DefaultSchemas,
		tasks:          repos.Tasks,
	}
}

// GetSource returns a source by name.
func (s *Service) GetSource(ctx context.Context, name string) (*domain.Source, error) {
	return s.sources.GetByName(ctx, name)
}

// GetSchema returns a schema by (source, schema).
func (s *Service) GetSchema(ctx context.Context, sourceName, schemaName string) (*domain.Schema, error) {
	return s.schemas.Get(ctx, sourceName, schemaName)
}

// GetTable returns a table by (source, schema, table).
func (s *Service) GetTable(ctx context.Context, sourceName, schemaName, tableName string) (*domain.Table, error) {
	return s.tables.Get(ctx, sourceName, schemaName, tableName)
}

// GetColumn returns a column by (source, schema, table, column).
func (s *Service) GetColumn(ctx context.Context, sourceName, schemaName, tableName, columnName string) (*domain.Column, error) {
	return s.columns.Get(ctx, sourceName, schemaName, tableName, columnName)
}

// GetSourceByID returns the source with the given id.
func (s *Service) GetSourceByID(ctx context.Context, id int64) (*domain.Source, error) {
	return s.sources.GetByID(ctx, id)
}

// GetSchemaByID returns the schema with the given id.
func (s *Service) GetSchemaByID(ctx context.Context, id int64) (*domain.Schema, error) {
	return s.schemas.GetByID(ctx, id)
}

// GetTableByID returns the table with the given id.
func (s *Service) GetTableByID(ctx context.Context, id int64) (*domain.Table, error) {
	return s.tables.GetByID(ctx, id)
}

// GetColumnByID returns the column with the given id.
func (s *Service) GetColumnByID(ctx context.Context, id int64) (*domain.Column, error) {
	return s.columns.GetByID(ctx, id)
}

// ListSources returns every source ordered by name.
func (s *Service) ListSources(ctx context.Context) ([]domain.Source, error) {
	return s.sources.List(ctx)
}

// ListSchemas returns the schemas of a source.
func (s *Service) ListSchemas(ctx context.Context, sourceName string) ([]domain.Schema, error) {
	return s.schemas.List(ctx, sourceName)
}

// ListTables returns the tables of a schema.
func (s *Service) ListTables(ctx context.Context, sourceName, schemaName string) ([]domain.Table, error) {
	return s.tables.List(ctx, sourceName, schemaName)
}

// GetColumnsForTable returns the columns of a table ordered by sort order,
// optionally restricted to names and to columns updated after newerThan.
func (s *Service) GetColumnsForTable(ctx context.Context, table *domain.Table, names []string, newerThan *time.Time) ([]domain.Column, error) {
	return s.columns.ListForTable(ctx, table, names, newerThan)
}

// GetDefaultSchema returns the default schema of a source.
func (s *Service) GetDefaultSchema(ctx context.Context, sourceName string) (*domain.Schema, error) {
	return s.defaultSchemas.Get(ctx, sourceName)
}

// SetDefaultSchema marks schemaName as the default schema of sourceName.
func (s *Service) SetDefaultSchema(ctx context.Context, sourceName, schemaName string) (*domain.Schema, error) {
	schema, err := s.schemas.Get(ctx, sourceName, schemaName)
	if err != nil {
		return nil, err
	}
	if err := s.defaultSchemas.Set(ctx, schema.Source, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// SetColumnPII tags a column with a PII type.
func (s *Service) SetColumnPII(ctx context.Context, columnID int64, piiType domain.PIIType, plugin string) (*domain.Column, error) {
	return s.columns.SetPIIType(ctx, columnID, piiType, plugin)
}

// GetTasksByAppName returns the recorded runs of an application.
func (s *Service) GetTasksByAppName(ctx context.Context, appName string) ([]domain.Task, error) {
	return s.tasks.ListByAppName(ctx, appName)
}
