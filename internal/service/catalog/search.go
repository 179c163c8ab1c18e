package catalog

import (
	"context"

	"github.com/tokern/dbcat/internal/domain"
)

// SearchSources returns sources whose name matches a SQL LIKE pattern.
func (s *Service) SearchSources(ctx context.Context, sourceLike string) ([]domain.Source, error) {
	return s.sources.Search(ctx, sourceLike)
}

// SearchSchema returns schemas matching q.Schema within sources matching q.Source.
func (s *Service) SearchSchema(ctx context.Context, q domain.SearchQuery) ([]domain.Schema, error) {
	return s.schemas.Search(ctx, q)
}

// SearchTables returns every table matching q.
func (s *Service) SearchTables(ctx context.Context, q domain.SearchQuery) ([]domain.Table, error) {
	return s.tables.Search(ctx, q)
}

// SearchTable returns the single table matching q. No match is a
// *domain.NotFoundError, several are a *domain.AmbiguousMatchError.
func (s *Service) SearchTable(ctx context.Context, q domain.SearchQuery) (*domain.Table, error) {
	tables, err := s.tables.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	switch len(tables) {
	case 0:
		return nil, domain.ErrNotFound("no table matches %q", q.Table)
	case 1:
		return &tables[0], nil
	default:
		return nil, domain.ErrAmbiguous(len(tables), "%d tables match %q", len(tables), q.Table)
	}
}

// SearchColumn returns every column matching q.
func (s *Service) SearchColumn(ctx context.Context, q domain.SearchQuery) ([]domain.Column, error) {
	return s.columns.Search(ctx, q)
}
