// Package model holds the canonical data shapes shared across the ingestion
// pipeline: the normalized listing record, its photos, job lifecycle state,
// and cadastral enrichment outcomes.
package model

import "time"

// PropertyType is the canonical enum stored on every listing row. Adapters
// never emit this directly; they emit the source's raw Czech string and the
// store gateway maps it on ingest.
type PropertyType string

const (
	PropertyTypeHouse      PropertyType = "House"
	PropertyTypeApartment  PropertyType = "Apartment"
	PropertyTypeLand       PropertyType = "Land"
	PropertyTypeCottage    PropertyType = "Cottage"
	PropertyTypeCommercial PropertyType = "Commercial"
	PropertyTypeIndustrial PropertyType = "Industrial"
	PropertyTypeGarage     PropertyType = "Garage"
	PropertyTypeOther      PropertyType = "Other"
)

// OfferType is the canonical enum for sale/rent/auction.
type OfferType string

const (
	OfferTypeSale    OfferType = "Sale"
	OfferTypeRent    OfferType = "Rent"
	OfferTypeAuction OfferType = "Auction"
)

// NormalizedListing is what a source adapter produces. Fields an adapter
// cannot populate are left at their zero value (nil for pointers). The
// shared saveAll step maps the property/offer types to the canonical enums
// before filtering; the store gateway infers missing fields on ingest.
type NormalizedListing struct {
	SourceCode   string
	ExternalID   string
	URL          string
	Title        string
	Description  string
	PropertyType string // raw Czech value as emitted by the adapter (e.g. "Dům"); canonicalized to the English enum by saveAll before the policy filter and the store gateway ever see it
	OfferType    string // raw Czech value (e.g. "Prodej"); canonicalized the same way
	Price        *float64
	LocationText string
	Municipality string
	District     string
	Latitude     *float64
	Longitude    *float64
	AreaBuiltUp  *int
	AreaLand     *int
	Disposition  string
	Condition    string
	ConstructionType string
	Photos       []string
}

// Listing is the persisted row shape returned by the store gateway.
type Listing struct {
	ID               string
	SourceCode       string
	SourceName       string
	ExternalID       string
	URL              string
	Title            string
	Description      string
	PropertyType     PropertyType
	OfferType        OfferType
	Price            *float64
	LocationText     string
	Municipality     string
	District         string
	Latitude         *float64
	Longitude        *float64
	AreaBuiltUp      *int
	AreaLand         *int
	Disposition      string
	Condition        string
	ConstructionType string
	FirstSeenAt      time.Time
	LastSeenAt       time.Time
	IsActive         bool
	GeocodeSource    string
	GeocodedAt       *time.Time
}

// ListingPhoto is an ordered child row of Listing.
type ListingPhoto struct {
	ID         string
	ListingID  string
	OriginalURL string
	OrderIndex int
	CreatedAt  time.Time
}

// MaxPhotosPerListing bounds the photo set cap mandated by §3.
const MaxPhotosPerListing = 20

// JobStatus is the scrape job lifecycle state. Status progresses forward
// only: Queued -> Running -> {Succeeded, Failed}.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "Queued"
	JobStatusRunning   JobStatus = "Running"
	JobStatusSucceeded JobStatus = "Succeeded"
	JobStatusFailed    JobStatus = "Failed"
)

// ScrapeJob is the persisted lifecycle record for one scrape run.
type ScrapeJob struct {
	ID              string
	SourceCodes     []string
	FullRescan      bool
	Status          JobStatus
	Progress        int
	ListingsFound   int
	ListingsNew     int
	ListingsUpdated int
	ErrorMessage    string
	CreatedAt       time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
}

// CadastreFetchStatus enumerates the outcome of a cadastral lookup attempt.
type CadastreFetchStatus string

const (
	CadastreStatusFound    CadastreFetchStatus = "found"
	CadastreStatusNotFound CadastreFetchStatus = "not_found"
	CadastreStatusError    CadastreFetchStatus = "error"
	CadastreStatusPending  CadastreFetchStatus = "pending"
	// CadastreStatusManual marks a human override. Bulk sweeps must never
	// overwrite a row carrying this status.
	CadastreStatusManual CadastreFetchStatus = "manual"
)

// ListingCadastreData is the one-to-one enrichment side table.
type ListingCadastreData struct {
	ListingID      string
	AddressSearched string
	RuianKod       string
	CadastreURL    string
	FetchStatus    CadastreFetchStatus
	RawRuian       []byte
	FetchedAt      time.Time
}

// Source is the static, read-only source catalog row.
type Source struct {
	ID       string
	Code     string
	Name     string
	BaseURL  string
	IsActive bool
}
