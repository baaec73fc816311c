// Package mapper translates raw MLS records into the local field schema.
// It is pure: no I/O, no store access, no clock reads beyond the caller
// supplied reference time.
package mapper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"mls_syncer/internal/domain"
)

const contractDateLayout = "2006-01-02"

// Map produces the local field set for one remote record. Derived fields
// are computed only when their inputs are present and non-zero; a missing
// input omits the derived field instead of writing a sentinel.
func Map(r domain.RemoteListing, now time.Time) domain.MappedFields {
	f := domain.MappedFields{
		Status:          domain.MapRemoteStatus(r.StandardStatus),
		ListPrice:       r.ListPrice,
		UnparsedAddress: optStr(r.UnparsedAddress),
		City:            optStr(r.City),
		StateOrProvince: optStr(r.StateOrProvince),
		PostalCode:      optStr(r.PostalCode),
		County:          optStr(r.CountyOrParish),
		Bedrooms:        optInt(r.BedroomsTotal),
		BathroomsFull:   optInt(r.BathroomsFull),
		BathroomsHalf:   optInt(r.BathroomsHalf),
		LivingArea:      optFloat(r.LivingArea),
		LotSizeAcres:    optFloat(r.LotSizeAcres),
		YearBuilt:       optInt(r.YearBuilt),
		PropertyType:    optStr(r.PropertyType),
		PropertySubType: optStr(r.PropertySubType),
		AgentName:       optStr(r.ListAgentFullName),
		OfficeName:      optStr(r.ListOfficeName),
		MLSNumber:       optStr(r.ListingID),
	}

	// Geocoordinates only make sense as a pair.
	if r.Latitude != 0 || r.Longitude != 0 {
		f.Latitude = optFloat(r.Latitude)
		f.Longitude = optFloat(r.Longitude)
	}

	if r.ListPrice > 0 && r.LivingArea > 0 {
		f.PricePerSqFt = ptr(round2(r.ListPrice / r.LivingArea))
	}

	if r.BathroomsFull > 0 || r.BathroomsHalf > 0 {
		f.BathroomsTotal = ptr(float64(r.BathroomsFull) + 0.5*float64(r.BathroomsHalf))
	}

	f.DaysOnMarket = daysOnMarket(r.ListingContractDate, now)
	f.Title = title(r)

	return f
}

func daysOnMarket(contractDate string, now time.Time) int {
	if contractDate == "" {
		return 0
	}
	t, err := time.Parse(contractDateLayout, contractDate)
	if err != nil {
		return 0
	}
	days := int(math.Floor(now.Sub(t).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// title prefers the feed's unparsed address; without one it synthesizes a
// headline from beds, baths, price and location.
func title(r domain.RemoteListing) string {
	if r.UnparsedAddress != "" {
		return r.UnparsedAddress
	}

	baths := float64(r.BathroomsFull) + 0.5*float64(r.BathroomsHalf)
	return fmt.Sprintf("%dBR/%sBA Home - %s in %s, %s",
		r.BedroomsTotal,
		trimZero(baths),
		formatPrice(r.ListPrice),
		r.City,
		r.StateOrProvince,
	)
}

func trimZero(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

func formatPrice(price float64) string {
	whole := strconv.FormatInt(int64(price), 10)
	var sb strings.Builder
	sb.WriteByte('$')
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func optFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func ptr[T any](v T) *T {
	return &v
}
