// Package scan reconciles the catalog with the metadata extracted from
// registered sources.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tokern/dbcat/internal/db"
	"github.com/tokern/dbcat/internal/db/repository"
	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/extract"
	"github.com/tokern/dbcat/internal/filter"
)

// AppName is the task app name recorded for every scanned source.
const AppName = "dbcat.scan"

// Service scans sources into the catalog.
type Service struct {
	store      *db.Store
	sources    domain.SourceRepository
	schemas    domain.SchemaRepository
	tables     domain.TableRepository
	columns    domain.ColumnRepository
	tasks      domain.TaskRepository
	extractors *extract.Registry
	logger     *slog.Logger
}

// NewService creates a scan Service writing through repos.
func NewService(store *db.Store, repos *repository.Repositories, extractors *extract.Registry, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		sources:    repos.Sources,
		schemas:    repos.Schemas,
		tables:     repos.Tables,
		columns:    repos.Columns,
		tasks:      repos.Tasks,
		extractors: extractors,
		logger:     logger,
	}
}

// Scan extracts src and upserts every schema, table and column that passes
// the filters. Entities missing from the source are left in place.
//
// A scan that retains nothing returns a *domain.NoMatchesError.
func (s *Service) Scan(ctx context.Context, src *domain.Source, filters filter.Set) (domain.ScanCounts, error) {
	log := s.logger.With("source", src.Name, "run_id", domain.NewRunID())

	stream, err := s.extractors.Open(ctx, src)
	if err != nil {
		return domain.ScanCounts{}, fmt.Errorf("open source %q: %w", src.Name, err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			log.Warn("close extraction stream", "error", cerr)
		}
	}()

	var counts domain.ScanCounts
	err = db.WithSession(ctx, s.store, func(ctx context.Context) error {
		var err error
		counts, err = s.reconcile(ctx, log, src, stream, filters)
		return err
	})
	if err != nil {
		return domain.ScanCounts{}, err
	}
	log.Info("scan complete", "schemas", counts.Schemas, "tables", counts.Tables, "columns", counts.Columns)
	return counts, nil
}

func (s *Service) reconcile(ctx context.Context, log *slog.Logger, src *domain.Source, stream extract.Stream, filters filter.Set) (domain.ScanCounts, error) {
	var (
		seen    int
		current *domain.Schema
		schemas = make(map[int64]struct{})
		tables  = make(map[int64]struct{})
		columns = make(map[int64]struct{})
	)

	for {
		rec, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.ScanCounts{}, fmt.Errorf("extract source %q: %w", src.Name, err)
		}
		seen++

		if !filters.Schemas.Match(rec.Schema) || !filters.Tables.Match(rec.Table) {
			log.Debug("skipping table", "schema", rec.Schema, "table", rec.Table)
			continue
		}

		if current == nil || current.Name != rec.Schema {
			up, err := s.schemas.Add(ctx, src, rec.Schema)
			if err != nil {
				return domain.ScanCounts{}, fmt.Errorf("upsert schema %q: %w", rec.Schema, err)
			}
			current = up.Value
			schemas[current.ID] = struct{}{}
		}

		tbl, err := s.tables.Add(ctx, current, rec.Table)
		if err != nil {
			return domain.ScanCounts{}, fmt.Errorf("upsert table %s.%s: %w", rec.Schema, rec.Table, err)
		}
		tables[tbl.Value.ID] = struct{}{}

		for i, c := range rec.Columns {
			id, err := s.upsertColumn(ctx, tbl.Value, c, i)
			if err != nil {
				return domain.ScanCounts{}, fmt.Errorf("upsert column %s.%s.%s: %w", rec.Schema, rec.Table, c.Name, err)
			}
			columns[id] = struct{}{}
		}
		log.Debug("scanned table", "schema", rec.Schema, "table", rec.Table, "columns", len(rec.Columns))
	}

	if len(tables) == 0 {
		return domain.ScanCounts{}, &domain.NoMatchesError{Source: src.Name, RecordsSeen: seen}
	}
	return domain.ScanCounts{Schemas: len(schemas), Tables: len(tables), Columns: len(columns)}, nil
}

// upsertColumn adds the column, or updates its type and position when an
// existing row disagrees with what the source reported.
func (s *Service) upsertColumn(ctx context.Context, tbl *domain.Table, c domain.ColumnRecord, pos int) (int64, error) {
	up, err := s.columns.Add(ctx, tbl, c.Name, c.DataType, pos)
	if err != nil {
		return 0, err
	}
	col := up.Value
	if up.Created() || (col.DataType == c.DataType && col.SortOrder == pos) {
		return col.ID, nil
	}
	if _, err := s.columns.Update(ctx, col.ID, c.DataType, pos); err != nil {
		return 0, err
	}
	return col.ID, nil
}
