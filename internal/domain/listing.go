package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// CatalogQuery is what the external catalog search endpoint understands.
type CatalogQuery struct {
	Search     string
	Bedrooms   *int
	MinPrice   *float64
	MaxPrice   *float64
	MinArea    *float64
	MaxArea    *float64
	Currency   string
	RegionID   *int64
	CountryID  *int64
	DistrictID *int64
	Developer  *int64
	BBox       *BoundingBox
}

type BoundingBox struct {
	North float64 `json:"north" validate:"gte=-90,lte=90,gtefield=South"`
	South float64 `json:"south" validate:"gte=-90,lte=90"`
	East  float64 `json:"east" validate:"gte=-180,lte=180"`
	West  float64 `json:"west" validate:"gte=-180,lte=180"`
}

// CatalogPage is one page of raw provider listings.
type CatalogPage struct {
	Results []map[string]any
	// Total is the provider's reported match count; 0 when it did not report one.
	Total int
}

// HandoverCompleted is the year bucket matching anything already handed over.
const HandoverCompleted = "Completed"

// ListingFilters drives the local store query.
type ListingFilters struct {
	Search        string   `json:"q,omitempty" validate:"max=200"`
	PropertyTypes []string `json:"types,omitempty" validate:"dive,min=1,max=64"`
	Developers    []string `json:"developers,omitempty" validate:"dive,min=1,max=128"`
	Areas         []string `json:"areas,omitempty" validate:"dive,min=1,max=128"`
	Districts     []string `json:"districts,omitempty" validate:"dive,min=1,max=128"`
	HandoverYears []string `json:"years,omitempty" validate:"dive,handover_bucket"`

	MinPrice    *float64 `json:"min_price,omitempty" validate:"omitempty,gte=0"`
	MaxPrice    *float64 `json:"max_price,omitempty" validate:"omitempty,gte=0"`
	MinArea     *float64 `json:"min_area,omitempty" validate:"omitempty,gte=0"`
	MaxArea     *float64 `json:"max_area,omitempty" validate:"omitempty,gte=0"`
	MinBedrooms *int     `json:"min_beds,omitempty" validate:"omitempty,gte=0,lte=20"`
	MaxBedrooms *int     `json:"max_beds,omitempty" validate:"omitempty,gte=0,lte=20"`

	BBox *BoundingBox `json:"bbox,omitempty"`
	IDs  []int64      `json:"ids,omitempty" validate:"max=500"`

	Page     int `json:"page,omitempty" validate:"gte=0"`
	PageSize int `json:"page_size,omitempty" validate:"gte=0,lte=200"`
	// Limit > 0 switches to bulk mode: one page of up to Limit rows, Page ignored.
	Limit int `json:"limit,omitempty" validate:"gte=0,lte=5000"`
}

// ProjectView is the denormalized shape consumers render.
type ProjectView struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   *string  `json:"description,omitempty"`
	Location      *string  `json:"location,omitempty"`
	District      *string  `json:"district,omitempty"`
	City          *string  `json:"city,omitempty"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
	Geohash       *string  `json:"geohash,omitempty"`
	Developer     *string  `json:"developer,omitempty"`
	Status        *string  `json:"status,omitempty"`
	SaleStatus    *string  `json:"sale_status,omitempty"`
	Construction  *string  `json:"construction_status,omitempty"`
	MinPrice      *float64 `json:"min_price,omitempty"`
	MaxPrice      *float64 `json:"max_price,omitempty"`
	Currency      string   `json:"currency"`
	Bedrooms      *string  `json:"bedrooms,omitempty"`       // "1–3BR"
	BedroomsRange *string  `json:"bedrooms_range,omitempty"` // "1 - 3 Bedrooms"
	MinArea       *float64 `json:"min_area,omitempty"`
	MaxArea       *float64 `json:"max_area,omitempty"`
	AreaUnit      string   `json:"area_unit"`
	PropertyTypes []string `json:"property_types"`

	CompletionDate *time.Time `json:"completion_date,omitempty"`
	HandoverDate   *time.Time `json:"handover_date,omitempty"`
	CoverImage     *string    `json:"cover_image,omitempty"`
	IsFeatured     bool       `json:"is_featured"`
	SyncedAt       time.Time  `json:"synced_at"`

	// detail only
	PaymentPlans []PaymentPlanView  `json:"payment_plans,omitempty"`
	UnitTypes    []PropertyTypeView `json:"unit_types,omitempty"`
	Media        []string           `json:"media,omitempty"`
	Amenities    []string           `json:"amenities,omitempty"`

	// set by currency conversion
	DisplayCurrency  string   `json:"display_currency,omitempty"`
	OriginalCurrency string   `json:"original_currency,omitempty"`
	OriginalMinPrice *float64 `json:"original_min_price,omitempty"`
	OriginalMaxPrice *float64 `json:"original_max_price,omitempty"`
}

type PaymentPlanView struct {
	Name *string         `json:"name,omitempty"`
	Raw  json.RawMessage `json:"raw,omitempty"`
}

type PropertyTypeView struct {
	Type                  string   `json:"type"`
	StartingPrice         *float64 `json:"starting_price,omitempty"`
	OriginalStartingPrice *float64 `json:"original_starting_price,omitempty"`
	StartingArea          *float64 `json:"starting_area,omitempty"`
	Bedrooms              *int     `json:"bedrooms,omitempty"`
}

type ListingsPage struct {
	Results    []ProjectView `json:"results"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Window resolves pagination. Limit > 0 is bulk mode: a single window of Limit rows.
func (f ListingFilters) Window() (page, size, offset int) {
	if f.Limit > 0 {
		return 1, f.Limit, 0
	}
	page, size = f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size, (page - 1) * size
}

// ParseHandoverBucket reads a year bucket: a four-digit year, or HandoverCompleted.
func ParseHandoverBucket(s string) (year int, completed, ok bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, HandoverCompleted) {
		return 0, true, true
	}
	if len(s) != 4 {
		return 0, false, false
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1900 || y > 2200 {
		return 0, false, false
	}
	return y, false, true
}
