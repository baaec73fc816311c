// Package scheduler owns the trigger surface: recurring cadence timers per
// source, the synchronous manual trigger and the webhook push path. All
// three converge on the same sync service, and a per-source run guard
// keeps at most one run in flight per source.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mls_syncer/internal/domain"
)

// Syncer is one source's run orchestrator.
type Syncer interface {
	Sync(ctx context.Context, trigger domain.Trigger) (*domain.SyncStats, error)
	SyncRecords(ctx context.Context, trigger domain.Trigger, records []domain.RemoteListing) (*domain.SyncStats, error)
}

type sourceEntry struct {
	syncer  Syncer
	cadence domain.Cadence
	running bool
	stop    chan struct{}
}

type Scheduler struct {
	mu      sync.Mutex
	sources map[string]*sourceEntry
	ctx     context.Context
	wg      sync.WaitGroup
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sources: make(map[string]*sourceEntry),
		logger:  logger,
	}
}

// Register adds a source. Its timer is installed when Start runs (or when
// Schedule is called afterwards).
func (s *Scheduler) Register(sourceID string, syncer Syncer, cadence domain.Cadence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[sourceID] = &sourceEntry{syncer: syncer, cadence: cadence}
}

// Start installs every registered timer and blocks until ctx is cancelled,
// then waits for the timer goroutines to drain.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	ids := make([]string, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.Schedule(id, s.cadenceOf(id)); err != nil {
			return err
		}
	}

	s.logger.Info("scheduler started", "sources", len(ids))

	<-ctx.Done()
	s.logger.Info("scheduler stopped")
	s.wg.Wait()
	return ctx.Err()
}

// Schedule replaces a source's timer with one for the given cadence. A
// realtime cadence removes the timer entirely: those sources sync only via
// webhook pushes.
func (s *Scheduler) Schedule(sourceID string, cadence domain.Cadence) error {
	s.mu.Lock()
	e, ok := s.sources[sourceID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown source %q", sourceID)
	}

	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	e.cadence = cadence

	interval, polls := cadence.Interval()
	if !polls || s.ctx == nil {
		s.mu.Unlock()
		if !polls {
			s.logger.Info("source is webhook-only", "source", sourceID, "cadence", cadence)
		}
		return nil
	}

	stop := make(chan struct{})
	e.stop = stop
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(sourceID, interval, stop)

	s.logger.Info("scheduled source", "source", sourceID, "interval", interval)
	return nil
}

// Cancel removes a source's timer without touching its registration.
func (s *Scheduler) Cancel(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sources[sourceID]; ok && e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

func (s *Scheduler) loop(sourceID string, interval time.Duration, stop chan struct{}) {
	defer s.wg.Done()

	s.runScheduled(sourceID)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.runScheduled(sourceID)
		}
	}
}

func (s *Scheduler) runScheduled(sourceID string) {
	if _, err := s.run(s.ctx, sourceID, domain.TriggerSchedule, nil); err != nil {
		if errors.Is(err, domain.ErrSyncRunning) {
			s.logger.Warn("previous run still in flight, skipping tick", "source", sourceID)
			return
		}
		s.logger.Error("scheduled sync failed", "source", sourceID, "error", err)
	}
}

// TriggerNow runs a synchronous manual sync; the caller blocks for the
// run's summary.
func (s *Scheduler) TriggerNow(ctx context.Context, sourceID string) (*domain.SyncStats, error) {
	return s.run(ctx, sourceID, domain.TriggerManual, nil)
}

// HandleWebhook feeds pushed records through the same reconciliation as
// the pull paths.
func (s *Scheduler) HandleWebhook(ctx context.Context, sourceID string, records []domain.RemoteListing) (*domain.SyncStats, error) {
	return s.run(ctx, sourceID, domain.TriggerWebhook, records)
}

func (s *Scheduler) run(ctx context.Context, sourceID string, trigger domain.Trigger, records []domain.RemoteListing) (*domain.SyncStats, error) {
	s.mu.Lock()
	e, ok := s.sources[sourceID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("unknown source %q", sourceID)
	}
	if e.running {
		s.mu.Unlock()
		return nil, domain.ErrSyncRunning
	}
	e.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		e.running = false
		s.mu.Unlock()
	}()

	if trigger == domain.TriggerWebhook {
		return e.syncer.SyncRecords(ctx, trigger, records)
	}
	return e.syncer.Sync(ctx, trigger)
}

func (s *Scheduler) cadenceOf(sourceID string) domain.Cadence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources[sourceID].cadence
}
