// Package scheduler runs recurring scans on cron schedules.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/tokern/dbcat/internal/domain"
	"github.com/tokern/dbcat/internal/filter"
	"github.com/tokern/dbcat/internal/service/scan"
)

// Scanner scans sources. Implemented by *scan.Service.
type Scanner interface {
	ScanSources(ctx context.Context, names []string, filters filter.Set) ([]scan.SourceResult, error)
}

// Entry describes a registered scan schedule.
type Entry struct {
	ID       string
	Schedule string
	Sources  []string
	Next     time.Time
}

type job struct {
	entryID  cron.EntryID
	schedule string
	sources  []string
	filters  filter.Set
}

// Scheduler manages cron-based scans. A run that is still going when its
// next tick arrives causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	scanner Scanner
	logger  *slog.Logger

	mu     sync.Mutex
	jobs   map[string]*job
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Nothing runs until Start.
func NewScheduler(scanner Scanner, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		scanner: scanner,
		logger:  logger,
		jobs:    make(map[string]*job),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers a recurring scan of sources (all when empty). spec uses
// the standard five-field cron syntax or descriptors such as "@hourly".
func (s *Scheduler) Add(spec string, sources []string, filters filter.Set) (string, error) {
	id := uuid.NewString()
	j := &job{schedule: spec, sources: sources, filters: filters}

	s.mu.Lock()
	defer s.mu.Unlock()
	entryID, err := s.cron.AddFunc(spec, func() { s.run(id, j) })
	if err != nil {
		return "", domain.ErrValidation("invalid cron schedule %q: %v", spec, err)
	}
	j.entryID = entryID
	s.jobs[id] = j
	s.logger.Info("scheduled scan", "id", id, "schedule", spec, "sources", sources)
	return id, nil
}

// Remove unregisters a schedule. It reports whether id existed.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return false
	}
	s.cron.Remove(j.entryID)
	delete(s.jobs, id)
	return true
}

// Entries lists the registered schedules ordered by next run.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.jobs))
	for id, j := range s.jobs {
		out = append(out, Entry{ID: id, Schedule: j.schedule, Sources: j.sources, Next: s.cron.Entry(j.entryID).Next})
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Next.Equal(out[k].Next) {
			return out[i].ID < out[k].ID
		}
		return out[i].Next.Before(out[k].Next)
	})
	return out
}

// RunNow runs the scan registered under id synchronously.
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return domain.ErrNotFound("schedule %q not found", id)
	}
	s.run(id, j)
	return nil
}

func (s *Scheduler) run(id string, j *job) {
	results, err := s.scanner.ScanSources(s.ctx, j.sources, j.filters)
	if err != nil {
		s.logger.Warn("scheduled scan failed", "id", id, "error", err)
		return
	}
	for _, r := range results {
		s.logger.Info("scheduled scan finished", "id", id, "source", r.Source, "status", r.Status)
	}
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scan scheduler started")
}

// Stop stops the cron loop, cancels running scans and waits for them.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
	s.logger.Info("scan scheduler stopped")
}
