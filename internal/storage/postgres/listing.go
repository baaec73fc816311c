package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"mls_syncer/internal/domain"
)

type ListingStore struct {
	db *sqlx.DB
}

func NewListingStore(db *sqlx.DB) *ListingStore {
	return &ListingStore{db: db}
}

const listingColumns = `
	source_id, external_key, title, status, list_price, unparsed_address,
	city, state_or_province, postal_code, county, bedrooms, bathrooms_full,
	bathrooms_half, bathrooms_total, living_area, lot_size_acres, year_built,
	property_type, property_sub_type, latitude, longitude, agent_name,
	office_name, mls_number, price_per_sqft, days_on_market, sync_locked,
	last_synced_at`

// GetByExternalKey looks a listing up by its (source, external key) join
// pair. Returns (nil, nil) when no listing exists.
func (s *ListingStore) GetByExternalKey(ctx context.Context, sourceID, externalKey string) (*domain.Listing, error) {
	query := `
		SELECT id, ` + listingColumns + `, created_at, updated_at
		FROM listings
		WHERE source_id = $1 AND external_key = $2`

	var l domain.Listing
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &l, query, sourceID, externalKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a new listing. The unique index on (source_id,
// external_key) backs the engine's uniqueness invariant at the store level.
func (s *ListingStore) Create(ctx context.Context, l *domain.Listing) (int64, error) {
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES (
			:source_id, :external_key, :title, :status, :list_price,
			:unparsed_address, :city, :state_or_province, :postal_code,
			:county, :bedrooms, :bathrooms_full, :bathrooms_half,
			:bathrooms_total, :living_area, :lot_size_acres, :year_built,
			:property_type, :property_sub_type, :latitude, :longitude,
			:agent_name, :office_name, :mls_number, :price_per_sqft,
			:days_on_market, :sync_locked, :last_synced_at
		)
		RETURNING id`

	rows, err := sqlx.NamedQueryContext(ctx, GetExecutor(ctx, s.db), query, l)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var id int64
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
	}
	return id, rows.Err()
}

// Update overwrites the sync-owned fields of an existing listing.
func (s *ListingStore) Update(ctx context.Context, l *domain.Listing) error {
	query := `
		UPDATE listings SET
			title = :title,
			status = :status,
			list_price = :list_price,
			unparsed_address = :unparsed_address,
			city = :city,
			state_or_province = :state_or_province,
			postal_code = :postal_code,
			county = :county,
			bedrooms = :bedrooms,
			bathrooms_full = :bathrooms_full,
			bathrooms_half = :bathrooms_half,
			bathrooms_total = :bathrooms_total,
			living_area = :living_area,
			lot_size_acres = :lot_size_acres,
			year_built = :year_built,
			property_type = :property_type,
			property_sub_type = :property_sub_type,
			latitude = :latitude,
			longitude = :longitude,
			agent_name = :agent_name,
			office_name = :office_name,
			mls_number = :mls_number,
			price_per_sqft = :price_per_sqft,
			days_on_market = :days_on_market,
			last_synced_at = :last_synced_at,
			updated_at = now()
		WHERE id = :id`

	_, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, l)
	return err
}

// TouchSynced refreshes last_synced_at without touching any field, used
// for sync-locked listings.
func (s *ListingStore) TouchSynced(ctx context.Context, id int64, at time.Time) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE listings SET last_synced_at = $2 WHERE id = $1",
		id, at,
	)
	return err
}

// CountActive counts published listings for one source.
func (s *ListingStore) CountActive(ctx context.Context, sourceID string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count,
		"SELECT count(*) FROM listings WHERE source_id = $1 AND status = $2",
		sourceID, domain.StatusPublished,
	)
	return count, err
}
