package normalizer

import "strings"

const (
	TypeVilla     = "Villa"
	TypeTownhouse = "Townhouse"
	TypeApartment = "Apartment"
	TypePenthouse = "Penthouse"
	TypeDuplex    = "Duplex"
)

// SqftPerSqm converts floor area between the two units the provider mixes.
const SqftPerSqm = 10.7639

// classRule is one row of the heuristic table. A rule matches when the bedroom
// condition holds, or when the floor area reaches either threshold; rules with
// needBoth require the bedroom condition and the area together.
type classRule struct {
	category string
	minBeds  int
	exactBed bool
	minSqm   float64
	minSqft  float64
	needBoth bool
}

// Evaluated top to bottom; first match wins, Apartment otherwise.
var classRules = []classRule{
	{category: TypeVilla, minBeds: 4, minSqm: 250, minSqft: 2700},
	{category: TypeTownhouse, minBeds: 3, exactBed: true, minSqm: 180, minSqft: 1900, needBoth: true},
}

// Classify infers a property category from a bedroom count and floor area given in
// square metres and/or square feet. When only one unit is supplied the other is
// derived from it before the thresholds are checked; nil values never match.
func Classify(bedrooms *int, areaSqm, areaSqft *float64) string {
	switch {
	case areaSqm == nil && areaSqft != nil:
		v := *areaSqft / SqftPerSqm
		areaSqm = &v
	case areaSqft == nil && areaSqm != nil:
		v := *areaSqm * SqftPerSqm
		areaSqft = &v
	}
	for _, r := range classRules {
		bedOK := false
		if bedrooms != nil {
			if r.exactBed {
				bedOK = *bedrooms == r.minBeds
			} else {
				bedOK = *bedrooms >= r.minBeds
			}
		}
		areaOK := (areaSqm != nil && *areaSqm >= r.minSqm) ||
			(areaSqft != nil && *areaSqft >= r.minSqft)

		if r.needBoth {
			if bedOK && areaOK {
				return r.category
			}
			continue
		}
		if bedOK || areaOK {
			return r.category
		}
	}
	return TypeApartment
}

// typeKeywords maps free-text tags onto canonical categories. Order matters:
// "townhouse" must be tested before anything that could match inside it.
var typeKeywords = []struct {
	needle   string
	category string
}{
	{"townhouse", TypeTownhouse},
	{"town house", TypeTownhouse},
	{"penthouse", TypePenthouse},
	{"duplex", TypeDuplex},
	{"villa", TypeVilla},
	{"apartment", TypeApartment},
	{"flat", TypeApartment},
	{"studio", TypeApartment},
}

// typeFromTag returns the canonical category a tag names, or "" if none.
func typeFromTag(tag string) string {
	s := strings.ToLower(strings.TrimSpace(tag))
	if s == "" {
		return ""
	}
	for _, k := range typeKeywords {
		if strings.Contains(s, k.needle) {
			return k.category
		}
	}
	return ""
}
