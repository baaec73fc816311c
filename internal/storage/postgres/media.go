package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"mls_syncer/internal/domain"
)

type MediaStore struct {
	db *sqlx.DB
}

func NewMediaStore(db *sqlx.DB) *MediaStore {
	return &MediaStore{db: db}
}

// Attach records one ingested asset for a listing.
func (s *MediaStore) Attach(ctx context.Context, asset *domain.MediaAsset) (int64, error) {
	query := `
		INSERT INTO listing_media (listing_id, source_url, storage_path, caption, position, is_primary)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		asset.ListingID,
		asset.SourceURL,
		asset.StoragePath,
		asset.Caption,
		asset.Position,
		asset.IsPrimary,
	).Scan(&id)
	return id, err
}

// SetPrimary flags one asset as the listing's cover image and clears the
// flag everywhere else.
func (s *MediaStore) SetPrimary(ctx context.Context, listingID, assetID int64) error {
	exec := GetExecutor(ctx, s.db)

	if _, err := exec.ExecContext(ctx,
		"UPDATE listing_media SET is_primary = false WHERE listing_id = $1 AND id <> $2",
		listingID, assetID,
	); err != nil {
		return err
	}

	_, err := exec.ExecContext(ctx,
		"UPDATE listing_media SET is_primary = true WHERE listing_id = $1 AND id = $2",
		listingID, assetID,
	)
	return err
}

// HasPrimary reports whether the listing already has a cover image.
func (s *MediaStore) HasPrimary(ctx context.Context, listingID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM listing_media WHERE listing_id = $1 AND is_primary)",
		listingID,
	)
	return exists, err
}

// ExistingURLs returns the source URLs already attached to a listing so
// repeated syncs never duplicate an asset.
func (s *MediaStore) ExistingURLs(ctx context.Context, listingID int64) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT source_url FROM listing_media WHERE listing_id = $1",
		listingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		result[u] = struct{}{}
	}
	return result, rows.Err()
}
