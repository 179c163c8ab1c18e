package domain

import (
	"context"
	"time"
)

// SearchQuery holds SQL LIKE patterns (% and _ wildcards). Empty fields do
// not constrain the search.
type SearchQuery struct {
	Source string
	Schema string
	Table  string
	Column string
}

// SourceRepository persists registered sources.
type SourceRepository interface {
	Add(ctx context.Context, s *Source) (*Source, error)
	GetByName(ctx context.Context, name string) (*Source, error)
	GetByID(ctx context.Context, id int64) (*Source, error)
	List(ctx context.Context) ([]Source, error)
	Search(ctx context.Context, sourceLike string) ([]Source, error)
	UpdateSecrets(ctx context.Context, name string, secrets SourceSecrets) (*Source, error)
	Delete(ctx context.Context, name string) error
}

// SchemaRepository persists schemas.
type SchemaRepository interface {
	Add(ctx context.Context, source *Source, name string) (Upserted[Schema], error)
	Get(ctx context.Context, sourceName, schemaName string) (*Schema, error)
	GetByID(ctx context.Context, id int64) (*Schema, error)
	List(ctx context.Context, sourceName string) ([]Schema, error)
	Search(ctx context.Context, q SearchQuery) ([]Schema, error)
}

// TableRepository persists tables.
type TableRepository interface {
	Add(ctx context.Context, schema *Schema, name string) (Upserted[Table], error)
	Get(ctx context.Context, sourceName, schemaName, tableName string) (*Table, error)
	GetByID(ctx context.Context, id int64) (*Table, error)
	List(ctx context.Context, sourceName, schemaName string) ([]Table, error)
	Search(ctx context.Context, q SearchQuery) ([]Table, error)
}

// ColumnRepository persists columns.
type ColumnRepository interface {
	Add(ctx context.Context, table *Table, name, dataType string, sortOrder int) (Upserted[Column], error)
	Get(ctx context.Context, sourceName, schemaName, tableName, columnName string) (*Column, error)
	GetByID(ctx context.Context, id int64) (*Column, error)
	Search(ctx context.Context, q SearchQuery) ([]Column, error)
	ListForTable(ctx context.Context, table *Table, names []string, newerThan *time.Time) ([]Column, error)
	Update(ctx context.Context, id int64, dataType string, sortOrder int) (*Column, error)
	SetPIIType(ctx context.Context, id int64, piiType PIIType, plugin string) (*Column, error)
}

// JobRepository persists lineage-producing jobs.
type JobRepository interface {
	Add(ctx context.Context, source *Source, name string, jobContext map[string]any) (Upserted[Job], error)
	GetByID(ctx context.Context, id int64) (*Job, error)
	GetByName(ctx context.Context, sourceName, name string) (*Job, error)
}

// JobExecutionRepository persists job runs.
type JobExecutionRepository interface {
	Add(ctx context.Context, job *Job, startedAt, endedAt time.Time, status JobExecutionStatus) (*JobExecution, error)
	GetByID(ctx context.Context, id int64) (*JobExecution, error)
	ListForJob(ctx context.Context, jobID int64) ([]JobExecution, error)
	Latest(ctx context.Context, jobIDs []int64) ([]JobExecution, error)
}

// LineageRepository persists column lineage edges.
type LineageRepository interface {
	Add(ctx context.Context, source, target *Column, execution *JobExecution, edgeContext map[string]any) (Upserted[ColumnLineage], error)
	List(ctx context.Context, jobIDs []int64) ([]ColumnLineage, error)
}

// DefaultSchemaRepository stores the optional default schema of a source.
type DefaultSchemaRepository interface {
	Set(ctx context.Context, source *Source, schema *Schema) error
	Get(ctx context.Context, sourceName string) (*Schema, error)
}

// TaskRepository records application runs.
type TaskRepository interface {
	Add(ctx context.Context, appName string, status TaskStatus, message string) (*Task, error)
	ListByAppName(ctx context.Context, appName string) ([]Task, error)
}
