package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"mls_syncer/internal/domain"
)

// runHistoryCap is the per-source ring buffer size for run records.
const runHistoryCap = 30

type LedgerStore struct {
	db *sqlx.DB
}

func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// RecordRun appends a run entry and evicts anything older than the most
// recent runHistoryCap entries for that source.
func (s *LedgerStore) RecordRun(ctx context.Context, run *domain.SyncRun) error {
	insert := `
		INSERT INTO sync_runs (
			run_id, source_id, triggered_by, record_type, created, updated,
			skipped, errors, media_warnings, fatal_error, started_at, duration
		) VALUES (
			:run_id, :source_id, :triggered_by, :record_type, :created, :updated,
			:skipped, :errors, :media_warnings, :fatal_error, :started_at, :duration
		)`

	if _, err := sqlx.NamedExecContext(ctx, s.db, insert, run); err != nil {
		return err
	}

	trim := `
		DELETE FROM sync_runs
		WHERE source_id = $1 AND id NOT IN (
			SELECT id FROM sync_runs
			WHERE source_id = $1
			ORDER BY started_at DESC, id DESC
			LIMIT $2
		)`

	_, err := s.db.ExecContext(ctx, trim, run.SourceID, runHistoryCap)
	return err
}

// RecentRuns returns up to limit most recent run entries, newest first.
func (s *LedgerStore) RecentRuns(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	query := `
		SELECT id, run_id, source_id, triggered_by, record_type, created, updated,
		       skipped, errors, media_warnings, fatal_error, started_at, duration
		FROM sync_runs
		WHERE source_id = $1
		ORDER BY started_at DESC, id DESC
		LIMIT $2`

	var runs []domain.SyncRun
	err := s.db.SelectContext(ctx, &runs, query, sourceID, limit)
	return runs, err
}

// Cursor reads the modified-since watermark for a source. A source that has
// never completed a run gets the zero time.
func (s *LedgerStore) Cursor(ctx context.Context, sourceID string) (time.Time, error) {
	var cursor time.Time
	err := s.db.GetContext(ctx, &cursor,
		"SELECT cursor FROM sync_cursor WHERE source_id = $1",
		sourceID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return cursor, nil
}

// SetCursor advances the watermark. Callers only invoke this after a run
// completed without a fatal error.
func (s *LedgerStore) SetCursor(ctx context.Context, sourceID string, cursor time.Time) error {
	query := `
		INSERT INTO sync_cursor (source_id, cursor)
		VALUES ($1, $2)
		ON CONFLICT (source_id) DO UPDATE SET cursor = EXCLUDED.cursor`

	_, err := s.db.ExecContext(ctx, query, sourceID, cursor)
	return err
}
