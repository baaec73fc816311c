package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"mls_syncer/internal/domain"
)

// Feed is the remote MLS client.
type Feed interface {
	FetchListings(ctx context.Context, cursor time.Time, statuses []string, limit int) ([]domain.RemoteListing, error)
	FetchMedia(ctx context.Context, externalKey string) ([]domain.RemoteMedia, error)
}

// ListingStore is the local record store, keyed by (source, external key).
type ListingStore interface {
	GetByExternalKey(ctx context.Context, sourceID, externalKey string) (*domain.Listing, error)
	Create(ctx context.Context, l *domain.Listing) (int64, error)
	Update(ctx context.Context, l *domain.Listing) error
	TouchSynced(ctx context.Context, id int64, at time.Time) error
	CountActive(ctx context.Context, sourceID string) (int64, error)
}

// MediaStore persists attached asset references.
type MediaStore interface {
	Attach(ctx context.Context, asset *domain.MediaAsset) (int64, error)
	SetPrimary(ctx context.Context, listingID, assetID int64) error
	HasPrimary(ctx context.Context, listingID int64) (bool, error)
	ExistingURLs(ctx context.Context, listingID int64) (map[string]struct{}, error)
}

// BlobStore downloads and persists raw asset bytes.
type BlobStore interface {
	Fetch(ctx context.Context, url string) (string, error)
	Persist(tmpPath, name string) (string, error)
	Remove(tmpPath string)
}

// LedgerStore keeps run history and the per-source cursor.
type LedgerStore interface {
	RecordRun(ctx context.Context, run *domain.SyncRun) error
	RecentRuns(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error)
	Cursor(ctx context.Context, sourceID string) (time.Time, error)
	SetCursor(ctx context.Context, sourceID string, cursor time.Time) error
}

// TransactionManager scopes one record's writes to a transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Publisher emits listing change events.
type Publisher interface {
	Publish(ctx context.Context, listing *domain.Listing, isNew bool) error
	Close() error
}

// MediaIngestor downloads and attaches a listing's media descriptors.
type MediaIngestor interface {
	Ingest(ctx context.Context, listingID int64, items []domain.RemoteMedia) (attached, warnings int, err error)
}

// Reconciler applies one remote record against the local store.
type Reconciler interface {
	Reconcile(ctx context.Context, rec domain.RemoteListing) (domain.Outcome, error)
}
