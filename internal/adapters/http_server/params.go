package httpserver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"dubaihaus/internal/domain"
)

// parseFilters reads listing filters from the query string. List params accept both
// repeated keys and comma-separated values.
func parseFilters(q url.Values) (domain.ListingFilters, error) {
	f := domain.ListingFilters{
		Search:        strings.TrimSpace(q.Get("q")),
		PropertyTypes: list(q, "types"),
		Developers:    list(q, "developers"),
		Areas:         list(q, "areas"),
		Districts:     list(q, "districts"),
		HandoverYears: list(q, "years"),
	}

	var err error
	floats := []struct {
		key string
		dst **float64
	}{
		{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice},
		{"min_area", &f.MinArea}, {"max_area", &f.MaxArea},
	}
	for _, p := range floats {
		if *p.dst, err = optFloat(q, p.key); err != nil {
			return f, err
		}
	}
	if f.MinBedrooms, err = optInt(q, "min_beds"); err != nil {
		return f, err
	}
	if f.MaxBedrooms, err = optInt(q, "max_beds"); err != nil {
		return f, err
	}
	for key, dst := range map[string]*int{"page": &f.Page, "page_size": &f.PageSize, "limit": &f.Limit} {
		v, err := optInt(q, key)
		if err != nil {
			return f, err
		}
		if v != nil {
			*dst = *v
		}
	}

	for _, s := range list(q, "ids") {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return f, fmt.Errorf("ids: %q is not an integer", s)
		}
		f.IDs = append(f.IDs, id)
	}

	if f.BBox, err = parseBBox(q); err != nil {
		return f, err
	}
	return f, nil
}

// parseBBox needs all four edges or none.
func parseBBox(q url.Values) (*domain.BoundingBox, error) {
	keys := []string{"north", "south", "east", "west"}
	vals := make([]*float64, len(keys))
	set := 0
	for i, k := range keys {
		v, err := optFloat(q, k)
		if err != nil {
			return nil, err
		}
		if v != nil {
			set++
		}
		vals[i] = v
	}
	switch set {
	case 0:
		return nil, nil
	case len(keys):
		return &domain.BoundingBox{North: *vals[0], South: *vals[1], East: *vals[2], West: *vals[3]}, nil
	default:
		return nil, fmt.Errorf("bounding box needs north, south, east and west")
	}
}

func list(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func optFloat(q url.Values, key string) (*float64, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a number", key, s)
	}
	return &v, nil
}

func optInt(q url.Values, key string) (*int, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not an integer", key, s)
	}
	return &v, nil
}
