// Package scheduler wraps robfig/cron/v3 with a dynamic per-algorithm
// registry, since the live execution engine needs to add and remove
// recurring tasks at runtime as algorithms start and stop.
package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs recurring tasks keyed by an arbitrary int64 id (the
// algorithm id), supporting dynamic add/remove — robfig/cron/v3 itself has
// no removal-by-key API beyond its opaque cron.EntryID, so this keeps the
// id -> EntryID mapping.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[int64]cron.EntryID
}

// New constructs a Scheduler and starts its underlying cron loop.
func New(logger zerolog.Logger) *Scheduler {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger:  logger,
		entries: make(map[int64]cron.EntryID),
	}
	s.cron.Start()
	return s
}

// Every registers fn to run on a fixed period for id, replacing any
// existing registration for the same id. A panic inside fn is recovered by
// the wrapper registered here and logged; the schedule continues on its
// next tick.
func (s *Scheduler) Every(id int64, period time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[id]; ok {
		s.cron.Remove(existing)
	}

	spec := "@every " + period.String()
	entryID, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Interface("panic", r).Int64("id", id).Msg("recovered panic in scheduled task")
			}
		}()
		fn()
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("id", id).Msg("failed to schedule task")
		return
	}
	s.entries[id] = entryID
}

// Cancel removes id's recurring task, if any. Idempotent.
func (s *Scheduler) Cancel(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[id]
	if !ok {
		return
	}
	s.cron.Remove(entryID)
	delete(s.entries, id)
}

// IsScheduled reports whether id currently has a recurring task registered.
func (s *Scheduler) IsScheduled(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// Running returns the set of ids with an active recurring task.
func (s *Scheduler) Running() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Stop drains the cron loop, waiting for any in-flight task to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
