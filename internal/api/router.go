// Package api serves the catalog over a read-only JSON HTTP API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/middleware"
)

// Catalog is the read surface the API serves. Implemented by
// *catalog.Service.
type Catalog interface {
	GetSource(ctx context.Context, name string) (*domain.Source, error)
	ListSources(ctx context.Context) ([]domain.Source, error)
	SearchSources(ctx context.Context, sourceLike string) ([]domain.Source, error)
	GetDefaultSchema(ctx context.Context, sourceName string) (*domain.Schema, error)
	SearchSchema(ctx context.Context, q domain.SearchQuery) ([]domain.Schema, error)
	SearchTables(ctx context.Context, q domain.SearchQuery) ([]domain.Table, error)
	SearchTable(ctx context.Context, q domain.SearchQuery) (*domain.Table, error)
	SearchColumn(ctx context.Context, q domain.SearchQuery) ([]domain.Column, error)
	GetTable(ctx context.Context, sourceName, schemaName, tableName string) (*domain.Table, error)
	GetColumnsForTable(ctx context.Context, table *domain.Table, names []string, newerThan *time.Time) ([]domain.Column, error)
	GetJobExecutions(ctx context.Context, jobID int64) ([]domain.JobExecution, error)
	GetLatestJobExecutions(ctx context.Context, jobIDs []int64) ([]domain.JobExecution, error)
	GetColumnLineages(ctx context.Context, jobIDs []int64) ([]domain.ColumnLineage, error)
	GetTasksByAppName(ctx context.Context, appName string) ([]domain.Task, error)
}

// Config configures the router.
type Config struct {
	AllowedOrigins []string
	RateLimit      middleware.RateLimitConfig
}

// NewRouter builds the HTTP handler. Background work tied to the router
// stops when ctx is done.
func NewRouter(ctx context.Context, cat Catalog, cfg Config, logger *slog.Logger) http.Handler {
	h := &handler{catalog: cat, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.healthz)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit.RequestsPerSecond > 0 {
			r.Use(middleware.RateLimiter(ctx, cfg.RateLimit))
		}
		r.Get("/sources", h.listSources)
		r.Get("/sources/{source}", h.getSource)
		r.Get("/sources/{source}/default-schema", h.getDefaultSchema)
		r.Get("/sources/{source}/schemata/{schema}/tables/{table}/columns", h.tableColumns)
		r.Get("/schemata", h.searchSchemata)
		r.Get("/tables", h.searchTables)
		r.Get("/tables/resolve", h.resolveTable)
		r.Get("/columns", h.searchColumns)
		r.Get("/jobs/executions/latest", h.latestExecutions)
		r.Get("/jobs/{job}/executions", h.jobExecutions)
		r.Get("/lineage", h.lineage)
		r.Get("/tasks", h.tasks)
	})
	return r
}
