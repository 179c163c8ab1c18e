package repository

import "github.com/tokern/dbcat/internal/db"

// Repositories bundles every repository bound to one catalog store.
type Repositories struct {
	Sources        *SourceRepo
	Schemas        *SchemaRepo
	Tables         *TableRepo
	Columns        *ColumnRepo
	Jobs           *JobRepo
	JobExecutions  *JobExecutionRepo
	Lineage        *LineageRepo
	DefaultSchemas *DefaultSchemaRepo
	Tasks          *TaskRepo
}

// NewRepositories builds all repositories on store.
func NewRepositories(store *db.Store) *Repositories {
	return &Repositories{
		Sources:        NewSourceRepo(store),
		Schemas:        NewSchemaRepo(store),
		Tables:         NewTableRepo(store),
		Columns:        NewColumnRepo(store),
		Jobs:           NewJobRepo(store),
		JobExecutions:  NewJobExecutionRepo(store),
		Lineage:        NewLineageRepo(store),
		DefaultSchemas: NewDefaultSchemaRepo(store),
		Tasks:          NewTaskRepo(store),
	}
}
