package domain

import "time"

// RemoteListing is a raw listing record as delivered by the MLS feed,
// either pulled through the OData endpoint or pushed in a webhook body.
// Field names follow the RESO Web API dictionary.
type RemoteListing struct {
	ListingKey            string        `json:"ListingKey"`
	ListingID             string        `json:"ListingId"`
	StandardStatus        string        `json:"StandardStatus"`
	ListPrice             float64       `json:"ListPrice"`
	UnparsedAddress       string        `json:"UnparsedAddress"`
	City                  string        `json:"City"`
	StateOrProvince       string        `json:"StateOrProvince"`
	PostalCode            string        `json:"PostalCode"`
	CountyOrParish        string        `json:"CountyOrParish"`
	BedroomsTotal         int           `json:"BedroomsTotal"`
	BathroomsFull         int           `json:"BathroomsFull"`
	BathroomsHalf         int           `json:"BathroomsHalf"`
	LivingArea            float64       `json:"LivingArea"`
	LotSizeAcres          float64       `json:"LotSizeAcres"`
	YearBuilt             int           `json:"YearBuilt"`
	PropertyType          string        `json:"PropertyType"`
	PropertySubType       string        `json:"PropertySubType"`
	Latitude              float64       `json:"Latitude"`
	Longitude             float64       `json:"Longitude"`
	ListAgentFullName     string        `json:"ListAgentFullName"`
	ListOfficeName        string        `json:"ListOfficeName"`
	ListingContractDate   string        `json:"ListingContractDate"`
	ModificationTimestamp time.Time     `json:"ModificationTimestamp"`
	Media                 []RemoteMedia `json:"Media,omitempty"`
}

// RemoteMedia describes one media item of a remote listing. Order defines
// both display order and primary-image preference.
type RemoteMedia struct {
	MediaURL string `json:"MediaURL"`
	Caption  string `json:"ShortDescription"`
	Order    int    `json:"Order"`
}
