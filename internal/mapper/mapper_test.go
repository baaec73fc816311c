package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mls_syncer/internal/domain"
)

func TestMap_DerivedFields(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	r := domain.RemoteListing{
		ListingKey:     "X1",
		StandardStatus: "Active",
		ListPrice:      500000,
		LivingArea:     2000,
		BathroomsFull:  2,
		BathroomsHalf:  1,
	}

	f := Map(r, now)

	assert.Equal(t, domain.StatusPublished, f.Status)
	require.NotNil(t, f.PricePerSqFt)
	assert.Equal(t, 250.00, *f.PricePerSqFt)
	require.NotNil(t, f.BathroomsTotal)
	assert.Equal(t, 2.5, *f.BathroomsTotal)
}

func TestMap_PricePerSqFtRounding(t *testing.T) {
	f := Map(domain.RemoteListing{ListPrice: 333333, LivingArea: 1700}, time.Now())
	require.NotNil(t, f.PricePerSqFt)
	assert.Equal(t, 196.08, *f.PricePerSqFt)
}

func TestMap_DerivedFieldsOmittedWhenInputsMissing(t *testing.T) {
	f := Map(domain.RemoteListing{ListPrice: 500000}, time.Now())

	assert.Nil(t, f.PricePerSqFt, "no living area, no price per sqft")
	assert.Nil(t, f.BathroomsTotal)
	assert.Nil(t, f.LivingArea)
	assert.Nil(t, f.Bedrooms)
}

func TestMap_UnknownStatusIsDraft(t *testing.T) {
	f := Map(domain.RemoteListing{StandardStatus: "UnknownXYZ"}, time.Now())
	assert.Equal(t, domain.StatusDraft, f.Status)
}

func TestMap_StatusTable(t *testing.T) {
	cases := map[string]domain.Status{
		"Active":         domain.StatusPublished,
		"Pending":        domain.StatusPending,
		"Under Contract": domain.StatusPending,
		"Sold":           domain.StatusSold,
		"Expired":        domain.StatusExpired,
		"Withdrawn":      domain.StatusDraft,
		"Cancelled":      domain.StatusDraft,
		"":               domain.StatusDraft,
	}
	for remote, want := range cases {
		assert.Equal(t, want, domain.MapRemoteStatus(remote), "status %q", remote)
	}
}

func TestMap_DaysOnMarket(t *testing.T) {
	now := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)

	f := Map(domain.RemoteListing{ListingContractDate: "2025-06-01"}, now)
	assert.Equal(t, 10, f.DaysOnMarket)

	f = Map(domain.RemoteListing{}, now)
	assert.Equal(t, 0, f.DaysOnMarket, "absent contract date yields zero")

	f = Map(domain.RemoteListing{ListingContractDate: "2025-07-01"}, now)
	assert.Equal(t, 0, f.DaysOnMarket, "future contract date clamps to zero")

	f = Map(domain.RemoteListing{ListingContractDate: "not-a-date"}, now)
	assert.Equal(t, 0, f.DaysOnMarket)
}

func TestMap_TitlePrefersUnparsedAddress(t *testing.T) {
	f := Map(domain.RemoteListing{UnparsedAddress: "12 Main St, Springfield"}, time.Now())
	assert.Equal(t, "12 Main St, Springfield", f.Title)
}

func TestMap_TitleSynthesized(t *testing.T) {
	r := domain.RemoteListing{
		ListPrice:       1250000,
		BedroomsTotal:   4,
		BathroomsFull:   2,
		BathroomsHalf:   1,
		City:            "Austin",
		StateOrProvince: "TX",
	}
	f := Map(r, time.Now())
	assert.Equal(t, "4BR/2.5BA Home - $1,250,000 in Austin, TX", f.Title)
}

func TestMap_GeocoordinatesPaired(t *testing.T) {
	f := Map(domain.RemoteListing{Latitude: 30.27, Longitude: -97.74}, time.Now())
	require.NotNil(t, f.Latitude)
	require.NotNil(t, f.Longitude)
	assert.Equal(t, 30.27, *f.Latitude)

	f = Map(domain.RemoteListing{}, time.Now())
	assert.Nil(t, f.Latitude)
	assert.Nil(t, f.Longitude)
}
