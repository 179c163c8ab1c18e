package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tokern/dbcat/internal/db/mapper"
	"github.com/tokern/dbcat/internal/domain"
)

type handler struct {
	catalog Catalog
	logger  *slog.Logger
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if mapper.HTTPStatusFromDomainError(err) == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, err)
}

func searchQuery(r *http.Request) domain.SearchQuery {
	q := r.URL.Query()
	return domain.SearchQuery{
		Source: q.Get("source"),
		Schema: q.Get("schema"),
		Table:  q.Get("table"),
		Column: q.Get("column"),
	}
}

func jobIDs(r *http.Request) ([]int64, error) {
	var ids []int64
	for _, raw := range r.URL.Query()["job_id"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, domain.ErrValidation("invalid job_id %q", raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *handler) listSources(w http.ResponseWriter, r *http.Request) {
	var (
		sources []domain.Source
		err     error
	)
	if like := r.URL.Query().Get("q"); like != "" {
		sources, err = h.catalog.SearchSources(r.Context(), like)
	} else {
		sources, err = h.catalog.ListSources(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(sources, sourceToAPI))
}

func (h *handler) getSource(w http.ResponseWriter, r *http.Request) {
	src, err := h.catalog.GetSource(r.Context(), chi.URLParam(r, "source"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceToAPI(src))
}

func (h *handler) getDefaultSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.catalog.GetDefaultSchema(r.Context(), chi.URLParam(r, "source"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schemaToAPI(schema))
}

func (h *handler) searchSchemata(w http.ResponseWriter, r *http.Request) {
	schemas, err := h.catalog.SearchSchema(r.Context(), searchQuery(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(schemas, schemaToAPI))
}

func (h *handler) searchTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.catalog.SearchTables(r.Context(), searchQuery(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(tables, tableToAPI))
}

func (h *handler) resolveTable(w http.ResponseWriter, r *http.Request) {
	q := searchQuery(r)
	if q.Table == "" {
		h.fail(w, r, domain.ErrValidation("table is required"))
		return
	}
	table, err := h.catalog.SearchTable(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tableToAPI(table))
}

func (h *handler) searchColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := h.catalog.SearchColumn(r.Context(), searchQuery(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(cols, columnToAPI))
}

func (h *handler) tableColumns(w http.ResponseWriter, r *http.Request) {
	table, err := h.catalog.GetTable(r.Context(),
		chi.URLParam(r, "source"), chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	var newerThan *time.Time
	if raw := q.Get("newer_than"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.fail(w, r, domain.ErrValidation("newer_than must be RFC 3339: %v", err))
			return
		}
		newerThan = &ts
	}
	cols, err := h.catalog.GetColumnsForTable(r.Context(), table, q["name"], newerThan)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(cols, columnToAPI))
}

func (h *handler) latestExecutions(w http.ResponseWriter, r *http.Request) {
	ids, err := jobIDs(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(ids) == 0 {
		h.fail(w, r, domain.ErrValidation("at least one job_id is required"))
		return
	}
	execs, err := h.catalog.GetLatestJobExecutions(r.Context(), ids)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(execs, executionToAPI))
}

func (h *handler) jobExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "job"), 10, 64)
	if err != nil {
		h.fail(w, r, domain.ErrValidation("invalid job id %q", chi.URLParam(r, "job")))
		return
	}
	execs, err := h.catalog.GetJobExecutions(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(execs, executionToAPI))
}

func (h *handler) lineage(w http.ResponseWriter, r *http.Request) {
	ids, err := jobIDs(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	edges, err := h.catalog.GetColumnLineages(r.Context(), ids)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(edges, lineageToAPI))
}

func (h *handler) tasks(w http.ResponseWriter, r *http.Request) {
	app := r.URL.Query().Get("app_name")
	if app == "" {
		h.fail(w, r, domain.ErrValidation("app_name is required"))
		return
	}
	tasks, err := h.catalog.GetTasksByAppName(r.Context(), app)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(tasks, taskToAPI))
}
