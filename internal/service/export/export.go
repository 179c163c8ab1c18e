// Package export writes catalog contents as JSON lines for downstream
// catalogs and search indexes.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tokern/dbcat/internal/db/repository"
	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/filter"
)

// Request selects what to export. Empty Sources exports every source.
type Request struct {
	Sources []string
	Filters filter.Set
}

// ColumnExport is one exported column.
type ColumnExport struct {
	Name      string   `json:"name"`
	DataType  string   `json:"data_type"`
	SortOrder int      `json:"sort_order"`
	Badges    []string `json:"badges,omitempty"`
}

// TableExport is one exported table with its columns in sort order.
type TableExport struct {
	Source     string         `json:"source"`
	SourceType string         `json:"source_type"`
	Database   string         `json:"database"`
	Schema     string         `json:"schema"`
	Table      string         `json:"table"`
	Columns    []ColumnExport `json:"columns"`
}

// Service reads the catalog and renders exports.
type Service struct {
	sources domain.SourceRepository
	schemas domain.SchemaRepository
	tables  domain.TableRepository
	columns domain.ColumnRepository
	sinks   SinkConfig
	stdout  io.Writer
	logger  *slog.Logger
}

// NewService creates an export Service. stdout receives exports sent to "-".
func NewService(repos *repository.Repositories, sinks SinkConfig, stdout io.Writer, logger *slog.Logger) *Service {
	return &Service{
		sources: repos.Sources,
		schemas: repos.Schemas,
		tables:  repos.Tables,
		columns: repos.Columns,
		sinks:   sinks,
		stdout:  stdout,
		logger:  logger,
	}
}

// Tables returns the tables selected by req, filtering schemas first and
// then tables.
func (s *Service) Tables(ctx context.Context, req Request) ([]TableExport, error) {
	sources, err := s.selectSources(ctx, req.Sources)
	if err != nil {
		return nil, err
	}

	var out []TableExport
	for i := range sources {
		src := &sources[i]
		schemas, err := s.schemas.List(ctx, src.Name)
		if err != nil {
			return nil, fmt.Errorf("list schemas of %q: %w", src.Name, err)
		}
		for _, sc := range schemas {
			if !req.Filters.Schemas.Match(sc.Name) {
				continue
			}
			tables, err := s.tables.List(ctx, src.Name, sc.Name)
			if err != nil {
				return nil, fmt.Errorf("list tables of %s.%s: %w", src.Name, sc.Name, err)
			}
			for j := range tables {
				if !req.Filters.Tables.Match(tables[j].Name) {
					continue
				}
				te, err := s.table(ctx, src, &tables[j])
				if err != nil {
					return nil, err
				}
				out = append(out, te)
			}
		}
	}
	return out, nil
}

func (s *Service) selectSources(ctx context.Context, names []string) ([]domain.Source, error) {
	if len(names) == 0 {
		return s.sources.List(ctx)
	}
	out := make([]domain.Source, 0, len(names))
	for _, name := range names {
		src, err := s.sources.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, *src)
	}
	return out, nil
}

func (s *Service) table(ctx context.Context, src *domain.Source, t *domain.Table) (TableExport, error) {
	cols, err := s.columns.ListForTable(ctx, t, nil, nil)
	if err != nil {
		return TableExport{}, fmt.Errorf("list columns of %s: %w", t.Name, err)
	}
	te := TableExport{
		Source:     src.Name,
		SourceType: string(src.SourceType),
		Database:   src.Database,
		Schema:     t.Schema.Name,
		Table:      t.Name,
		Columns:    make([]ColumnExport, 0, len(cols)),
	}
	for _, c := range cols {
		ce := ColumnExport{Name: c.Name, DataType: c.DataType, SortOrder: c.SortOrder}
		if c.PIIType != nil {
			ce.Badges = []string{"pii", string(*c.PIIType)}
		}
		te.Columns = append(te.Columns, ce)
	}
	return te, nil
}

// Write exports the tables selected by req as JSON lines to dest and
// returns the number of tables written. See OpenSink for destinations.
func (s *Service) Write(ctx context.Context, req Request, dest string) (int, error) {
	tables, err := s.Tables(ctx, req)
	if err != nil {
		return 0, err
	}

	sink, err := OpenSink(ctx, dest, s.sinks, s.stdout)
	if err != nil {
		return 0, err
	}
	if n, err := writeLines(sink, tables); err != nil {
		return n, fmt.Errorf("export to %s: %w", dest, err)
	}
	s.logger.Info("export complete", "destination", dest, "tables", len(tables))
	return len(tables), nil
}

// writeLines encodes tables to sink and finishes it. After a failed write
// the sink is aborted so no partial object is published.
func writeLines(sink io.WriteCloser, tables []TableExport) (int, error) {
	enc := json.NewEncoder(sink)
	for i := range tables {
		if err := enc.Encode(&tables[i]); err != nil {
			return i, errors.Join(fmt.Errorf("write: %w", err), Abort(sink))
		}
	}
	if err := sink.Close(); err != nil {
		return 0, fmt.Errorf("finish: %w", err)
	}
	return len(tables), nil
}
