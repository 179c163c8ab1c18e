package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/filter"
)

// Status classifies the outcome of scanning one source.
type Status string

// Scan outcomes.
const (
	StatusSuccess     Status = "success"
	StatusNoMatches   Status = "no_matches"
	StatusEmptySource Status = "empty_source"
	StatusNotFound    Status = "not_found"
	StatusFailed      Status = "failed"
)

// SourceResult is the outcome of scanning one source.
type SourceResult struct {
	Source  string            `json:"source"`
	Status  Status            `json:"status"`
	Counts  domain.ScanCounts `json:"counts"`
	Message string            `json:"message,omitempty"`
	Err     error             `json:"-"`
}

// ScanSources scans the named sources, or every registered source when
// names is empty. Each source is scanned independently and its outcome is
// recorded as a task. The returned error covers catalog failures only.
func (s *Service) ScanSources(ctx context.Context, names []string, filters filter.Set) ([]SourceResult, error) {
	var results []SourceResult
	var sources []domain.Source

	if len(names) == 0 {
		all, err := s.sources.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		sources = all
	} else {
		for _, name := range names {
			src, err := s.sources.GetByName(ctx, name)
			var nf *domain.NotFoundError
			if errors.As(err, &nf) {
				s.logger.Error("source not found", "source", name)
				results = append(results, SourceResult{Source: name, Status: StatusNotFound, Message: err.Error(), Err: err})
				continue
			}
			if err != nil {
				return nil, err
			}
			sources = append(sources, *src)
		}
	}

	s.logger.Debug("scanning sources", "count", len(sources))
	for i := range sources {
		src := &sources[i]
		s.logger.Info("scanning source", "source", src.Name, "type", src.SourceType)
		counts, err := s.Scan(ctx, src, filters)
		if err != nil {
			s.logger.Warn("scan failed", "source", src.Name, "error", err)
		}
		results = append(results, classify(src.Name, counts, err))
	}

	for _, r := range results {
		status, msg := domain.TaskSuccess, fmt.Sprintf("%s: %d schemas, %d tables, %d columns",
			r.Source, r.Counts.Schemas, r.Counts.Tables, r.Counts.Columns)
		if r.Status != StatusSuccess {
			status, msg = domain.TaskFailure, fmt.Sprintf("%s: %s", r.Source, r.Message)
		}
		if _, err := s.tasks.Add(ctx, AppName, status, msg); err != nil {
			return results, fmt.Errorf("record scan task for %q: %w", r.Source, err)
		}
	}
	return results, nil
}

func classify(name string, counts domain.ScanCounts, err error) SourceResult {
	r := SourceResult{Source: name, Counts: counts, Err: err}
	var nm *domain.NoMatchesError
	switch {
	case err == nil:
		r.Status = StatusSuccess
	case errors.As(err, &nm) && nm.EmptySource():
		r.Status = StatusEmptySource
	case errors.As(err, &nm):
		r.Status = StatusNoMatches
	default:
		r.Status = StatusFailed
	}
	if err != nil {
		r.Message = err.Error()
	}
	return r
}
