package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mls_syncer/internal/domain"
	"mls_syncer/internal/mapper"
)

var errMissingKey = errors.New("remote record has no listing key")

// ReconcileEngine decides create vs. update per remote record, applies the
// mapped fields atomically, and runs media ingestion as a blocking sub-step
// before the record's outcome is final. The (source, external key) lookup
// is the sole join strategy.
type ReconcileEngine struct {
	sourceID  string
	listings  ListingStore
	media     MediaIngestor
	feed      Feed
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewReconcileEngine(
	sourceID string,
	listings ListingStore,
	media MediaIngestor,
	feed Feed,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
) *ReconcileEngine {
	return &ReconcileEngine{
		sourceID:  sourceID,
		listings:  listings,
		media:     media,
		feed:      feed,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("source", sourceID),
		now:       time.Now,
	}
}

// Reconcile applies one remote record. Errors returned here are per-record:
// the caller counts them and moves on to the next record.
func (e *ReconcileEngine) Reconcile(ctx context.Context, rec domain.RemoteListing) (domain.Outcome, error) {
	if rec.ListingKey == "" {
		return domain.Outcome{}, &domain.RecordError{ExternalKey: "", Err: errMissingKey}
	}

	fields := mapper.Map(rec, e.now())

	existing, err := e.listings.GetByExternalKey(ctx, e.sourceID, rec.ListingKey)
	if err != nil {
		return domain.Outcome{}, &domain.RecordError{ExternalKey: rec.ListingKey, Err: err}
	}

	var (
		out     domain.Outcome
		listing *domain.Listing
	)

	switch {
	case existing == nil:
		listing = &domain.Listing{
			SourceID:     e.sourceID,
			ExternalKey:  rec.ListingKey,
			LastSyncedAt: e.now(),
		}
		listing.ApplyMapped(fields)

		err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			id, err := e.listings.Create(txCtx, listing)
			if err != nil {
				return err
			}
			listing.ID = id
			return nil
		})
		if err != nil {
			return domain.Outcome{}, &domain.RecordError{ExternalKey: rec.ListingKey, Err: err}
		}
		out = domain.Outcome{Action: domain.ActionCreated, ListingID: listing.ID}

	case existing.SyncLocked:
		// Operator owns this listing's fields; only the sync timestamp
		// moves.
		if err := e.listings.TouchSynced(ctx, existing.ID, e.now()); err != nil {
			return domain.Outcome{}, &domain.RecordError{ExternalKey: rec.ListingKey, Err: err}
		}
		return domain.Outcome{Action: domain.ActionSkipped, ListingID: existing.ID}, nil

	default:
		listing = existing
		listing.ApplyMapped(fields)
		listing.LastSyncedAt = e.now()

		err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			return e.listings.Update(txCtx, listing)
		})
		if err != nil {
			return domain.Outcome{}, &domain.RecordError{ExternalKey: rec.ListingKey, Err: err}
		}
		out = domain.Outcome{Action: domain.ActionUpdated, ListingID: listing.ID}
	}

	out.MediaWarnings = e.ingestMedia(ctx, rec, out.ListingID)

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, listing, out.Action == domain.ActionCreated); err != nil {
			e.logger.Warn("publish failed",
				"external_key", rec.ListingKey,
				"error", err,
			)
		} else {
			out.Published = true
		}
	}

	return out, nil
}

// ingestMedia runs the media pipeline for one record. Webhook pushes embed
// descriptors in the record; the pull path fetches them from the feed.
// Every failure here is a warning, never a record error.
func (e *ReconcileEngine) ingestMedia(ctx context.Context, rec domain.RemoteListing, listingID int64) int {
	items := rec.Media
	if len(items) == 0 && e.feed != nil {
		fetched, err := e.feed.FetchMedia(ctx, rec.ListingKey)
		if err != nil {
			e.logger.Warn("media fetch failed",
				"external_key", rec.ListingKey,
				"error", err,
			)
			return 1
		}
		items = fetched
	}

	if len(items) == 0 {
		return 0
	}

	_, warnings, err := e.media.Ingest(ctx, listingID, items)
	if err != nil {
		e.logger.Warn("media ingest failed",
			"external_key", rec.ListingKey,
			"error", err,
		)
		return warnings + 1
	}
	return warnings
}
