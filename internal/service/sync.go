package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mls_syncer/internal/config"
	"mls_syncer/internal/domain"
)

// recordTypeListings is the record type every run of this service syncs.
const recordTypeListings = "listings"

// SyncService orchestrates one source's runs: fetch since cursor, reconcile
// across a bounded worker pool, accumulate stats, and write the ledger. It
// is the single place that decides what each error class means for the run.
type SyncService struct {
	cfg        config.SourceConfig
	feed       Feed
	reconciler Reconciler
	listings   ListingStore
	ledger     LedgerStore
	logger     *slog.Logger
}

func NewSyncService(
	cfg config.SourceConfig,
	feed Feed,
	reconciler Reconciler,
	listings ListingStore,
	ledger LedgerStore,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		cfg:        cfg,
		feed:       feed,
		reconciler: reconciler,
		listings:   listings,
		ledger:     ledger,
		logger:     logger.With("source", cfg.ID),
	}
}

// Sync runs one pull cycle. Config and transport failures abort the run
// without advancing the cursor; per-record failures are counted and the
// batch continues.
func (s *SyncService) Sync(ctx context.Context, trigger domain.Trigger) (*domain.SyncStats, error) {
	stats := s.newStats(trigger)

	if !s.cfg.Enabled {
		err := &domain.ConfigError{Msg: "sync disabled for source " + s.cfg.ID}
		s.finish(ctx, stats, err)
		return stats, err
	}

	cursor, err := s.ledger.Cursor(ctx, s.cfg.ID)
	if err != nil {
		s.finish(ctx, stats, err)
		return stats, err
	}

	s.logger.Info("starting sync",
		"run_id", stats.RunID,
		"trigger", trigger,
		"cursor", cursor,
		"limit", s.cfg.FetchLimit,
	)

	fetchStart := time.Now()
	records, err := s.feed.FetchListings(ctx, cursor, s.cfg.StatusFilter, s.cfg.FetchLimit)
	if err != nil {
		s.finish(ctx, stats, err)
		return stats, err
	}
	stats.Fetched = len(records)

	maxModified, minFailed := s.process(ctx, stats, records)

	// The next window starts at the newest modification we actually saw,
	// not at wall-clock "now": slow processing or clock skew must not
	// skip records modified mid-run. An empty clean batch advances to the
	// fetch start. A failed record pins the cursor at its timestamp so
	// the next fetch window includes it again.
	newCursor := fetchStart
	if !maxModified.IsZero() {
		newCursor = maxModified
	}
	if !minFailed.IsZero() && minFailed.Before(newCursor) {
		newCursor = minFailed
	}
	if err := s.ledger.SetCursor(ctx, s.cfg.ID, newCursor); err != nil {
		s.finish(ctx, stats, err)
		return stats, err
	}

	s.finish(ctx, stats, nil)
	return stats, nil
}

// SyncRecords is the push path: webhook-delivered records bypass the feed
// pull but flow through the same reconciliation. The cursor is left alone,
// pushed records say nothing about the pull window.
func (s *SyncService) SyncRecords(ctx context.Context, trigger domain.Trigger, records []domain.RemoteListing) (*domain.SyncStats, error) {
	stats := s.newStats(trigger)

	if !s.cfg.Enabled {
		err := &domain.ConfigError{Msg: "sync disabled for source " + s.cfg.ID}
		s.finish(ctx, stats, err)
		return stats, err
	}

	stats.Fetched = len(records)
	s.process(ctx, stats, records)
	s.finish(ctx, stats, nil)
	return stats, nil
}

// process reconciles a batch across a bounded worker pool. Each record's
// writes are independent thanks to the (source, external key) uniqueness
// invariant. Returns the largest modification timestamp observed on
// successfully reconciled records and the smallest one among failed
// records.
func (s *SyncService) process(ctx context.Context, stats *domain.SyncStats, records []domain.RemoteListing) (time.Time, time.Time) {
	if len(records) == 0 {
		return time.Time{}, time.Time{}
	}

	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(records) {
		workers = len(records)
	}

	var (
		mu          sync.Mutex
		maxModified time.Time
		minFailed   time.Time
		wg          sync.WaitGroup
	)
	jobs := make(chan domain.RemoteListing)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				out, err := s.reconciler.Reconcile(ctx, rec)

				mu.Lock()
				if err != nil {
					stats.Errors++
					stats.FailedKeys = append(stats.FailedKeys, rec.ListingKey)
					if !rec.ModificationTimestamp.IsZero() &&
						(minFailed.IsZero() || rec.ModificationTimestamp.Before(minFailed)) {
						minFailed = rec.ModificationTimestamp
					}
					mu.Unlock()
					s.logger.Error("record failed",
						"external_key", rec.ListingKey,
						"error", err,
					)
					continue
				}
				switch out.Action {
				case domain.ActionCreated:
					stats.Created++
				case domain.ActionUpdated:
					stats.Updated++
				case domain.ActionSkipped:
					stats.Skipped++
				}
				stats.MediaWarnings += out.MediaWarnings
				if out.Published {
					stats.Published++
				}
				if rec.ModificationTimestamp.After(maxModified) {
					maxModified = rec.ModificationTimestamp
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, rec := range records {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- rec:
		}
	}
	close(jobs)
	wg.Wait()

	return maxModified, minFailed
}

func (s *SyncService) newStats(trigger domain.Trigger) *domain.SyncStats {
	return &domain.SyncStats{
		RunID:     uuid.NewString(),
		SourceID:  s.cfg.ID,
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
}

// finish stamps the duration, writes the ledger entry and logs the outcome.
// fatal is nil for runs that completed (even with per-record errors).
func (s *SyncService) finish(ctx context.Context, stats *domain.SyncStats, fatal error) {
	stats.Duration = time.Since(stats.StartedAt)

	run := &domain.SyncRun{
		RunID:         stats.RunID,
		SourceID:      stats.SourceID,
		Trigger:       stats.Trigger,
		RecordType:    recordTypeListings,
		Created:       stats.Created,
		Updated:       stats.Updated,
		Skipped:       stats.Skipped,
		Errors:        stats.Errors,
		MediaWarnings: stats.MediaWarnings,
		StartedAt:     stats.StartedAt,
		Duration:      stats.Duration,
	}
	if fatal != nil {
		msg := fatal.Error()
		run.FatalError = &msg
	}

	if err := s.ledger.RecordRun(ctx, run); err != nil {
		s.logger.Error("failed to record run", "run_id", stats.RunID, "error", err)
	}

	if fatal != nil {
		s.logger.Error("sync aborted",
			"run_id", stats.RunID,
			"trigger", stats.Trigger,
			"error", fatal,
		)
		return
	}

	s.logger.Info("sync completed",
		"run_id", stats.RunID,
		"trigger", stats.Trigger,
		"fetched", stats.Fetched,
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"media_warnings", stats.MediaWarnings,
		"published", stats.Published,
		"duration", stats.Duration,
	)
}

// SourceStatus is the read-only projection exposed to dashboards.
type SourceStatus struct {
	SourceID      string           `json:"source_id"`
	Enabled       bool             `json:"enabled"`
	Cadence       domain.Cadence   `json:"cadence"`
	LastSync      *time.Time       `json:"last_sync"`
	RecentRuns    []domain.SyncRun `json:"recent_runs"`
	TotalListings int64            `json:"total_listings"`
}

// Status reports the source's sync state: last successful run, recent run
// history and the count of published listings.
func (s *SyncService) Status(ctx context.Context) (*SourceStatus, error) {
	runs, err := s.ledger.RecentRuns(ctx, s.cfg.ID, 5)
	if err != nil {
		return nil, err
	}

	total, err := s.listings.CountActive(ctx, s.cfg.ID)
	if err != nil {
		return nil, err
	}

	status := &SourceStatus{
		SourceID:      s.cfg.ID,
		Enabled:       s.cfg.Enabled,
		Cadence:       domain.Cadence(s.cfg.Cadence),
		RecentRuns:    runs,
		TotalListings: total,
	}

	for _, run := range runs {
		if run.FatalError == nil {
			t := run.StartedAt
			status.LastSync = &t
			break
		}
	}

	return status, nil
}
