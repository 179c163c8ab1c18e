package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tokern/dbcat/internal/db/mapper"
	"github.com/tokern/dbcat/internal/domain"
)

// Error is the body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := mapper.HTTPStatusFromDomainError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, Error{Code: status, Message: msg})
}

// Source omits credentials. Connection is the redacted connection string.
type Source struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	SourceType string    `json:"source_type"`
	Connection string    `json:"connection"`
	Database   string    `json:"database,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Schema struct {
	ID     int64  `json:"id"`
	Source string `json:"source"`
	Name   string `json:"name"`
}

type Table struct {
	ID     int64  `json:"id"`
	Source string `json:"source"`
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

type Column struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Schema    string    `json:"schema"`
	Table     string    `json:"table"`
	Name      string    `json:"name"`
	DataType  string    `json:"data_type"`
	SortOrder int       `json:"sort_order"`
	PIIType   string    `json:"pii_type,omitempty"`
	PIIPlugin string    `json:"pii_plugin,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type JobExecution struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"job_id"`
	Job       string    `json:"job,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Status    string    `json:"status"`
}

type Lineage struct {
	ID             int64          `json:"id"`
	Source         []string       `json:"source"`
	Target         []string       `json:"target"`
	JobExecutionID int64          `json:"job_execution_id"`
	Context        map[string]any `json:"context,omitempty"`
}

type Task struct {
	ID        int64     `json:"id"`
	AppName   string    `json:"app_name"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func sourceToAPI(s *domain.Source) Source {
	return Source{
		ID: s.ID, Name: s.Name, SourceType: string(s.SourceType), Connection: s.ConnString(true),
		Database: s.Database, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

func schemaToAPI(s *domain.Schema) Schema {
	fqdn := s.FQDN()
	return Schema{ID: s.ID, Source: fqdn[0], Name: s.Name}
}

func tableToAPI(t *domain.Table) Table {
	fqdn := t.FQDN()
	return Table{ID: t.ID, Source: fqdn[0], Schema: fqdn[1], Name: t.Name}
}

func columnToAPI(c *domain.Column) Column {
	fqdn := c.FQDN()
	out := Column{
		ID: c.ID, Source: fqdn[0], Schema: fqdn[1], Table: fqdn[2], Name: c.Name,
		DataType: c.DataType, SortOrder: c.SortOrder, PIIPlugin: c.PIIPlugin, UpdatedAt: c.UpdatedAt,
	}
	if c.PIIType != nil {
		out.PIIType = string(*c.PIIType)
	}
	return out
}

func executionToAPI(e *domain.JobExecution) JobExecution {
	out := JobExecution{ID: e.ID, JobID: e.JobID, StartedAt: e.StartedAt, EndedAt: e.EndedAt, Status: string(e.Status)}
	if e.Job != nil {
		out.Job = e.Job.Name
	}
	return out
}

func lineageToAPI(l *domain.ColumnLineage) Lineage {
	out := Lineage{ID: l.ID, JobExecutionID: l.JobExecutionID, Context: l.Context}
	if l.Source != nil {
		out.Source = l.Source.FQDN()
	}
	if l.Target != nil {
		out.Target = l.Target.FQDN()
	}
	return out
}

func taskToAPI(t *domain.Task) Task {
	return Task{ID: t.ID, AppName: t.AppName, Status: t.Status.String(), Message: t.Message, CreatedAt: t.CreatedAt}
}

func mapAll[T, U any](in []T, f func(*T) U) []U {
	out := make([]U, 0, len(in))
	for i := range in {
		out = append(out, f(&in[i]))
	}
	return out
}
