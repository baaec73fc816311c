package domain

import "time"

// Status is the local lifecycle state of a listing.
type Status string

const (
	StatusPublished Status = "published"
	StatusPending   Status = "pending"
	StatusSold      Status = "sold"
	StatusExpired   Status = "expired"
	StatusDraft     Status = "draft"
)

// remoteStatusTable maps MLS standard statuses to local statuses. Anything
// not in the table lands in draft so an unknown remote state is never
// published by accident.
var remoteStatusTable = map[string]Status{
	"Active":         StatusPublished,
	"Pending":        StatusPending,
	"Under Contract": StatusPending,
	"Sold":           StatusSold,
	"Expired":        StatusExpired,
	"Withdrawn":      StatusDraft,
	"Cancelled":      StatusDraft,
}

// MapRemoteStatus translates a remote standard status into a local Status.
func MapRemoteStatus(remote string) Status {
	if s, ok := remoteStatusTable[remote]; ok {
		return s
	}
	return StatusDraft
}

// MappedFields is the local field set produced by the mapper for one remote
// record. Optional inputs and derived values that could not be computed are
// nil rather than zero.
type MappedFields struct {
	Title           string
	Status          Status
	ListPrice       float64
	UnparsedAddress *string
	City            *string
	StateOrProvince *string
	PostalCode      *string
	County          *string
	Bedrooms        *int
	BathroomsFull   *int
	BathroomsHalf   *int
	BathroomsTotal  *float64
	LivingArea      *float64
	LotSizeAcres    *float64
	YearBuilt       *int
	PropertyType    *string
	PropertySubType *string
	Latitude        *float64
	Longitude       *float64
	AgentName       *string
	OfficeName      *string
	MLSNumber       *string
	PricePerSqFt    *float64
	DaysOnMarket    int
}

// Listing is the durable local record. The (SourceID, ExternalKey) pair is
// unique and immutable once set; the sync engine never deletes listings.
type Listing struct {
	ID          int64  `db:"id"`
	SourceID    string `db:"source_id"`
	ExternalKey string `db:"external_key"`

	Title           string   `db:"title"`
	Status          Status   `db:"status"`
	ListPrice       float64  `db:"list_price"`
	UnparsedAddress *string  `db:"unparsed_address"`
	City            *string  `db:"city"`
	StateOrProvince *string  `db:"state_or_province"`
	PostalCode      *string  `db:"postal_code"`
	County          *string  `db:"county"`
	Bedrooms        *int     `db:"bedrooms"`
	BathroomsFull   *int     `db:"bathrooms_full"`
	BathroomsHalf   *int     `db:"bathrooms_half"`
	BathroomsTotal  *float64 `db:"bathrooms_total"`
	LivingArea      *float64 `db:"living_area"`
	LotSizeAcres    *float64 `db:"lot_size_acres"`
	YearBuilt       *int     `db:"year_built"`
	PropertyType    *string  `db:"property_type"`
	PropertySubType *string  `db:"property_sub_type"`
	Latitude        *float64 `db:"latitude"`
	Longitude       *float64 `db:"longitude"`
	AgentName       *string  `db:"agent_name"`
	OfficeName      *string  `db:"office_name"`
	MLSNumber       *string  `db:"mls_number"`
	PricePerSqFt    *float64 `db:"price_per_sqft"`
	DaysOnMarket    int      `db:"days_on_market"`

	// SyncLocked is set by an operator to protect local edits; a locked
	// listing keeps its fields across syncs and only gets its
	// LastSyncedAt refreshed.
	SyncLocked   bool      `db:"sync_locked"`
	LastSyncedAt time.Time `db:"last_synced_at"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ApplyMapped overwrites the sync-owned fields with freshly mapped values.
func (l *Listing) ApplyMapped(f MappedFields) {
	l.Title = f.Title
	l.Status = f.Status
	l.ListPrice = f.ListPrice
	l.UnparsedAddress = f.UnparsedAddress
	l.City = f.City
	l.StateOrProvince = f.StateOrProvince
	l.PostalCode = f.PostalCode
	l.County = f.County
	l.Bedrooms = f.Bedrooms
	l.BathroomsFull = f.BathroomsFull
	l.BathroomsHalf = f.BathroomsHalf
	l.BathroomsTotal = f.BathroomsTotal
	l.LivingArea = f.LivingArea
	l.LotSizeAcres = f.LotSizeAcres
	l.YearBuilt = f.YearBuilt
	l.PropertyType = f.PropertyType
	l.PropertySubType = f.PropertySubType
	l.Latitude = f.Latitude
	l.Longitude = f.Longitude
	l.AgentName = f.AgentName
	l.OfficeName = f.OfficeName
	l.MLSNumber = f.MLSNumber
	l.PricePerSqFt = f.PricePerSqFt
	l.DaysOnMarket = f.DaysOnMarket
}

// MediaAsset is one attached media item of a listing.
type MediaAsset struct {
	ID          int64     `db:"id"`
	ListingID   int64     `db:"listing_id"`
	SourceURL   string    `db:"source_url"`
	StoragePath string    `db:"storage_path"`
	Caption     *string   `db:"caption"`
	Position    int       `db:"position"`
	IsPrimary   bool      `db:"is_primary"`
	CreatedAt   time.Time `db:"created_at"`
}
