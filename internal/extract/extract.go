// Package extract reads schema, table and column metadata from the systems
// registered as sources.
package extract

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/tokern/dbcat/internal/domain"
)

// Stream yields one TableRecord per table. Next returns io.EOF once the
// source is exhausted. Records of one schema are contiguous.
type Stream interface {
	Next(ctx context.Context) (*domain.TableRecord, error)
	Close() error
}

// Strategy opens an extraction stream for a source.
type Strategy interface {
	Open(ctx context.Context, src *domain.Source) (Stream, error)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(ctx context.Context, src *domain.Source) (Stream, error)

// Open calls f(ctx, src).
func (f StrategyFunc) Open(ctx context.Context, src *domain.Source) (Stream, error) {
	return f(ctx, src)
}

// Registry maps source types to the strategy that extracts them.
type Registry struct {
	mu         sync.RWMutex
	strategies map[domain.SourceType]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[domain.SourceType]Strategy)}
}

// DefaultRegistry returns a registry with every built-in strategy.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.SourceSQLite, SQLite())
	r.Register(domain.SourceDuckDB, DuckDB())
	r.Register(domain.SourcePostgres, Postgres())
	r.Register(domain.SourceRedshift, Redshift())
	r.Register(domain.SourceMySQL, MySQL())
	r.Register(domain.SourceSnowflake, Snowflake())
	r.Register(domain.SourceBigQuery, &BigQuery{})
	r.Register(domain.SourceGlue, &Glue{})
	r.Register(domain.SourceAthena, &Glue{})
	r.Register(domain.SourceFile, JSONFile())
	return r
}

// Register installs s for source type t, replacing any previous strategy.
func (r *Registry) Register(t domain.SourceType, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[t] = s
}

// Supports reports whether a strategy is registered for t.
func (r *Registry) Supports(t domain.SourceType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.strategies[t]
	return ok
}

// Types returns the registered source types in lexical order.
func (r *Registry) Types() []domain.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SourceType, 0, len(r.strategies))
	for t := range r.strategies {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Open starts extraction for src with the strategy registered for its type.
func (r *Registry) Open(ctx context.Context, src *domain.Source) (Stream, error) {
	r.mu.RLock()
	s, ok := r.strategies[src.SourceType]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrValidation("%s is not supported", src.SourceType)
	}
	return s.Open(ctx, src)
}

type sliceStream struct {
	records []domain.TableRecord
	pos     int
}

// NewSliceStream returns a stream over fixed records.
func NewSliceStream(records ...domain.TableRecord) Stream {
	return &sliceStream{records: records}
}

func (s *sliceStream) Next(ctx context.Context) (*domain.TableRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return &rec, nil
}

func (s *sliceStream) Close() error { return nil }
