package domain

import "time"

// Project is the canonical catalog entity. ID is the provider's id and never changes.
type Project struct {
	ID            int64
	Title         string
	Description   *string
	Sector        *string
	District      *string
	City          *string
	Region        *string
	Lat, Lon      *float64
	LocationLabel *string
	Geohash       *string
	Developer     *string

	Status             *string
	SaleStatus         *string
	ConstructionStatus *string

	MinPrice, MaxPrice *float64
	Currency           string

	MinBedrooms, MaxBedrooms *int
	BedroomsLabel            *string

	MinArea, MaxArea *float64
	AreaUnit         string

	CompletionDate *time.Time
	HandoverDate   *time.Time
	CoverImage     *string
	IsFeatured     bool
	SyncedAt       time.Time

	// passed through from the provider without reshaping
	Media     []string
	Amenities []string
	POIJSON   []byte

	PaymentPlans []PaymentPlan
	UnitTypes    []PropertyTypeBreakdown
	RawJSON      []byte // full provider payload
}

type PaymentPlan struct {
	Name    *string
	RawJSON []byte
}

type PropertyTypeBreakdown struct {
	Type          string // Villa|Townhouse|Apartment|...
	StartingPrice *float64
	StartingArea  *float64
	Bedrooms      *int
	RawJSON       []byte
}

// TaxonomyKind names one of the provider's slow-changing lookup lists.
type TaxonomyKind string

const (
	TaxonomyRegions    TaxonomyKind = "regions"
	TaxonomyDistricts  TaxonomyKind = "districts"
	TaxonomyDevelopers TaxonomyKind = "developers"
	TaxonomyCountries  TaxonomyKind = "countries"
)

var TaxonomyKinds = []TaxonomyKind{TaxonomyRegions, TaxonomyDistricts, TaxonomyDevelopers, TaxonomyCountries}

func ParseTaxonomyKind(s string) (TaxonomyKind, bool) {
	for _, k := range TaxonomyKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

type TaxonomyItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type SyncResult struct {
	RunID      string    `json:"run_id"`
	Fetched    int       `json:"fetched"`
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
