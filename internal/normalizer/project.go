// Package normalizer maps raw catalog payloads onto the canonical domain.Project.
// Every function here is pure and tolerant: absent or malformed fields produce nil
// values, never panics or errors.
package normalizer

import (
	"math"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dubaihaus/internal/domain"
)

const (
	defaultCurrency = "AED"
	defaultAreaUnit = "sqft"
	geohashChars    = 7
)

/********** alias registries **********/

var projectAliases = map[string][]string{
	"title":        {"name", "title", "project_name"},
	"description":  {"description", "overview", "short_description"},
	"sector":       {"location.sector", "sector", "location.sub_area", "sub_area", "area"},
	"district":     {"location.district", "district", "location.community", "community"},
	"city":         {"location.city", "city"},
	"region":       {"location.region", "region", "location.emirate", "emirate"},
	"developer":    {"developer", "developer.name", "developer_name"},
	"status":       {"status", "listing_status"},
	"sale":         {"sale_status", "sales_status"},
	"construction": {"construction_status", "readiness", "completion_status"},
	"currency":     {"price_currency", "currency"},
	"area_unit":    {"area_unit", "unit_area"},
	"completion":   {"completion_date", "completion_datetime", "completion"},
	"handover":     {"handover_date", "handover_datetime", "handover"},
	"cover":        {"cover_image.url", "cover_image", "image", "main_image"},
}

var unitAliases = map[string][]string{
	"type":     {"type", "unit_type", "property_type", "type_name"},
	"layout":   {"layout.name", "layout_name", "layout.title", "name"},
	"bedrooms": {"bedrooms", "bedroom", "rooms", "beds"},
	"price":    {"price_from", "min_price", "price", "starting_price"},
	"area":     {"area_from", "min_area", "area", "size"},
	"sqm":      {"area_sqm", "size_sqm", "area_m2"},
	"sqft":     {"area_sqft", "size_sqft", "area_ft2"},
}

// Project maps one raw listing payload to the canonical representation.
func Project(p map[string]any) domain.Project {
	if p == nil {
		p = map[string]any{}
	}
	out := domain.Project{
		Title:              deref(firstStr(p, projectAliases["title"]...)),
		Description:        firstStr(p, projectAliases["description"]...),
		Sector:             firstStr(p, projectAliases["sector"]...),
		District:           firstStr(p, projectAliases["district"]...),
		City:               firstStr(p, projectAliases["city"]...),
		Region:             firstStr(p, projectAliases["region"]...),
		Lat:                firstFloat(p, "location.latitude", "latitude", "lat", "location.lat"),
		Lon:                firstFloat(p, "location.longitude", "longitude", "lng", "lon", "location.lng"),
		Developer:          firstStr(p, projectAliases["developer"]...),
		Status:             firstStr(p, projectAliases["status"]...),
		SaleStatus:         firstStr(p, projectAliases["sale"]...),
		ConstructionStatus: firstStr(p, projectAliases["construction"]...),
		Currency:           strings.ToUpper(orDefault(firstStr(p, projectAliases["currency"]...), defaultCurrency)),
		AreaUnit:           strings.ToLower(orDefault(firstStr(p, projectAliases["area_unit"]...), defaultAreaUnit)),
		CompletionDate:     firstDate(p, projectAliases["completion"]...),
		HandoverDate:       firstDate(p, projectAliases["handover"]...),
		CoverImage:         firstStr(p, projectAliases["cover"]...),
		IsFeatured:         firstBool(p, "is_featured", "featured", "coming_soon", "is_coming_soon"),
		Media:              firstSliceStrings(p, "media", "images", "gallery", "photos"),
		Amenities:          firstSliceStrings(p, "amenities", "facilities"),
		POIJSON:            firstRaw(p, "points_of_interest", "pois", "map_points"),
		RawJSON:            marshal(p, "normalizer.Project"),
	}
	if id := firstInt64(p, "id", "project_id", "external_id"); id != nil {
		out.ID = *id
	}
	if out.Lat != nil && out.Lon != nil && validCoords(*out.Lat, *out.Lon) {
		gh := geohash.EncodeWithPrecision(*out.Lat, *out.Lon, geohashChars)
		out.Geohash = &gh
	}
	out.LocationLabel = LocationLabel(out.Sector, out.District, out.City, out.Region)

	out.UnitTypes = unitTypes(p, out.AreaUnit)
	out.PaymentPlans = paymentPlans(p)

	// price / area / bedroom ranges: top-level first, units as fallback
	out.MinPrice = firstFloat(p, "min_price", "price_from", "price.min")
	out.MaxPrice = firstFloat(p, "max_price", "price_to", "price.max")
	out.MinArea = firstFloat(p, "min_area", "area_from", "area.min")
	out.MaxArea = firstFloat(p, "max_area", "area_to", "area.max")

	var beds []int
	var prices, areas []float64
	for _, u := range out.UnitTypes {
		if u.Bedrooms != nil {
			beds = append(beds, *u.Bedrooms)
		}
		if u.StartingPrice != nil {
			prices = append(prices, *u.StartingPrice)
		}
		if u.StartingArea != nil {
			areas = append(areas, *u.StartingArea)
		}
	}
	out.MinPrice, out.MaxPrice = fillSpan(out.MinPrice, out.MaxPrice, prices)
	out.MinArea, out.MaxArea = fillSpan(out.MinArea, out.MaxArea, areas)
	if len(beds) == 0 {
		for _, k := range []string{"min_bedrooms", "max_bedrooms", "bedrooms"} {
			if b := toBedrooms(lookupAny(p, k)); b != nil {
				beds = append(beds, *b)
			}
		}
	}
	if lo, hi, ok := span(beds); ok {
		out.MinBedrooms, out.MaxBedrooms = &lo, &hi
	}
	out.BedroomsLabel = BedroomLabel(beds)
	return out
}

// LocationLabel joins the location parts that are present, most specific first,
// skipping repeats (a sector often shares its district's name).
func LocationLabel(parts ...*string) *string {
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == nil {
			continue
		}
		s := strings.TrimSpace(*p)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	label := strings.Join(out, ", ")
	return &label
}

// UnitType resolves a unit's category: explicit tag, then a type named in the layout,
// then the bedroom/area heuristic.
func UnitType(u map[string]any, areaUnit string) string {
	if tag := firstStr(u, unitAliases["type"]...); tag != nil {
		if t := typeFromTag(*tag); t != "" {
			return t
		}
		// Caser is not safe for concurrent use
		return clampType(cases.Title(language.English).String(strings.ToLower(*tag)))
	}
	if layout := firstStr(u, unitAliases["layout"]...); layout != nil {
		if t := typeFromTag(*layout); t != "" {
			return t
		}
	}
	sqm, sqft := suppliedAreas(u, areaUnit)
	return Classify(unitBedrooms(u), sqm, sqft)
}

// MaxTypeLen is the longest category label the store keeps.
const MaxTypeLen = 64

func clampType(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= MaxTypeLen {
		return string(r)
	}
	return strings.TrimSpace(string(r[:MaxTypeLen]))
}

func unitTypes(p map[string]any, areaUnit string) []domain.PropertyTypeBreakdown {
	units := firstObjects(p, "units", "typical_units", "unit_types", "property_types")
	if len(units) == 0 {
		return nil
	}
	out := make([]domain.PropertyTypeBreakdown, 0, len(units))
	for _, u := range units {
		out = append(out, domain.PropertyTypeBreakdown{
			Type:          UnitType(u, areaUnit),
			StartingPrice: firstFloat(u, unitAliases["price"]...),
			StartingArea:  unitArea(u, areaUnit),
			Bedrooms:      unitBedrooms(u),
			RawJSON:       marshal(u, "normalizer.unitTypes"),
		})
	}
	return out
}

// suppliedAreas returns the unit's floor area as the provider gave it: explicit
// per-unit sqm/sqft fields, or a generic area read in the project's unit.
func suppliedAreas(u map[string]any, areaUnit string) (sqm, sqft *float64) {
	sqm = firstFloat(u, unitAliases["sqm"]...)
	sqft = firstFloat(u, unitAliases["sqft"]...)
	if sqm == nil && sqft == nil {
		if a := firstFloat(u, unitAliases["area"]...); a != nil {
			if areaUnit == "sqm" {
				sqm = a
			} else {
				sqft = a
			}
		}
	}
	return sqm, sqft
}

// unitArea is the unit's floor area expressed in the project's area unit.
func unitArea(u map[string]any, areaUnit string) *float64 {
	sqm, sqft := suppliedAreas(u, areaUnit)
	if areaUnit == "sqm" {
		if sqm == nil && sqft != nil {
			v := math.Round(*sqft/SqftPerSqm*100) / 100
			return &v
		}
		return sqm
	}
	if sqft == nil && sqm != nil {
		v := math.Round(*sqm*SqftPerSqm*100) / 100
		return &v
	}
	return sqft
}

func paymentPlans(p map[string]any) []domain.PaymentPlan {
	plans := firstObjects(p, "payment_plans", "paymentPlans", "payment_plan")
	if len(plans) == 0 {
		return nil
	}
	out := make([]domain.PaymentPlan, 0, len(plans))
	for _, pl := range plans {
		out = append(out, domain.PaymentPlan{
			Name:    firstStr(pl, "name", "title", "plan_name"),
			RawJSON: marshal(pl, "normalizer.paymentPlans"),
		})
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2006-01",
}

// firstDate parses the first recognizable date among paths. Besides the usual layouts
// it accepts a bare year ("2027", read as Dec 31) and quarters ("Q3 2027", read as the
// quarter's last day).
func firstDate(m map[string]any, paths ...string) *time.Time {
	for _, k := range paths {
		s := lookupStr(m, k)
		if s == "" {
			continue
		}
		if t := parseDate(s); t != nil {
			return t
		}
	}
	return nil
}

func parseDate(s string) *time.Time {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if t, err := time.Parse("2006", s); err == nil {
		end := time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
		return &end
	}
	up := strings.ToUpper(strings.TrimSpace(s))
	if len(up) == 7 && up[0] == 'Q' && up[2] == ' ' && up[1] >= '1' && up[1] <= '4' {
		if y, err := time.Parse("2006", up[3:]); err == nil {
			q := int(up[1] - '0')
			// first day of the next quarter, minus one day
			end := time.Date(y.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
			return &end
		}
	}
	return nil
}

func floatSpan(vals []float64) (lo, hi *float64) {
	for i := range vals {
		v := vals[i]
		if lo == nil || v < *lo {
			lo = &vals[i]
		}
		if hi == nil || v > *hi {
			hi = &vals[i]
		}
	}
	return lo, hi
}

// fillSpan fills whichever end of [lo, hi] is missing from the unit values. A filled
// end that would cross the supplied one stays nil.
func fillSpan(lo, hi *float64, vals []float64) (*float64, *float64) {
	ulo, uhi := floatSpan(vals)
	switch {
	case lo == nil && hi == nil:
		return ulo, uhi
	case lo == nil:
		if ulo != nil && *ulo <= *hi {
			return ulo, hi
		}
	case hi == nil:
		if uhi != nil && *uhi >= *lo {
			return lo, uhi
		}
	}
	return lo, hi
}

func unitBedrooms(u map[string]any) *int {
	for _, k := range unitAliases["bedrooms"] {
		if b := toBedrooms(lookupAny(u, k)); b != nil {
			return b
		}
	}
	return nil
}

func validCoords(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 && !(lat == 0 && lon == 0)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func orDefault(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
