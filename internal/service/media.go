package service

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"sort"

	"github.com/google/uuid"

	"mls_syncer/internal/domain"
)

// MediaPipeline ingests remote media for one listing: download to a temp
// location, persist, attach, and flag the first success as the cover image.
type MediaPipeline struct {
	blobs  BlobStore
	assets MediaStore
	logger *slog.Logger
}

func NewMediaPipeline(blobs BlobStore, assets MediaStore, logger *slog.Logger) *MediaPipeline {
	return &MediaPipeline{
		blobs:  blobs,
		assets: assets,
		logger: logger,
	}
}

// Ingest processes descriptors in order. Per-item failures are warnings,
// never fatal to the other items; an error return means the asset store
// itself could not be read. Items whose URL is already attached are skipped
// so repeated syncs never duplicate assets.
func (p *MediaPipeline) Ingest(ctx context.Context, listingID int64, items []domain.RemoteMedia) (int, int, error) {
	existing, err := p.assets.ExistingURLs(ctx, listingID)
	if err != nil {
		return 0, 0, err
	}

	hasPrimary, err := p.assets.HasPrimary(ctx, listingID)
	if err != nil {
		return 0, 0, err
	}

	ordered := make([]domain.RemoteMedia, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	var attached, warnings int
	for _, item := range ordered {
		if item.MediaURL == "" {
			warnings++
			continue
		}
		if _, ok := existing[item.MediaURL]; ok {
			continue
		}

		tmp, err := p.blobs.Fetch(ctx, item.MediaURL)
		if err != nil {
			warnings++
			p.logger.Warn("media download failed",
				"listing_id", listingID,
				"url", item.MediaURL,
				"error", err,
			)
			continue
		}

		storagePath, err := p.blobs.Persist(tmp, assetFileName(item.MediaURL))
		if err != nil {
			p.blobs.Remove(tmp)
			warnings++
			p.logger.Warn("media persist failed",
				"listing_id", listingID,
				"url", item.MediaURL,
				"error", err,
			)
			continue
		}

		asset := &domain.MediaAsset{
			ListingID:   listingID,
			SourceURL:   item.MediaURL,
			StoragePath: storagePath,
			Position:    item.Order,
		}
		if item.Caption != "" {
			caption := item.Caption
			asset.Caption = &caption
		}

		id, err := p.assets.Attach(ctx, asset)
		if err != nil {
			p.blobs.Remove(storagePath)
			warnings++
			p.logger.Warn("media attach failed",
				"listing_id", listingID,
				"url", item.MediaURL,
				"error", err,
			)
			continue
		}

		attached++
		existing[item.MediaURL] = struct{}{}

		// First successful ingest wins the cover slot; later successes
		// never override an existing primary.
		if !hasPrimary {
			if err := p.assets.SetPrimary(ctx, listingID, id); err != nil {
				warnings++
				p.logger.Warn("set primary failed",
					"listing_id", listingID,
					"asset_id", id,
					"error", err,
				)
			} else {
				hasPrimary = true
			}
		}
	}

	return attached, warnings, nil
}

func assetFileName(mediaURL string) string {
	ext := ""
	if u, err := url.Parse(mediaURL); err == nil {
		ext = path.Ext(u.Path)
	}
	return uuid.NewString() + ext
}
