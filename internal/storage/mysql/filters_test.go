package mysql

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"dubaihaus/internal/domain"
)

var testNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func fp(f float64) *float64 { return &f }
func ip(i int) *int         { return &i }

func TestBuildFilters_Empty(t *testing.T) {
	where, args := buildFilters(domain.ListingFilters{}, testNow)
	if where != "" || len(args) != 0 {
		t.Fatalf("expected no conditions, got %q %v", where, args)
	}
}

func TestBuildFilters_SearchIsOredAndEscaped(t *testing.T) {
	where, args := buildFilters(domain.ListingFilters{Search: " 50%_off "}, testNow)
	want := " WHERE (p.title LIKE ? OR p.developer LIKE ? OR p.location_label LIKE ? OR p.sector LIKE ? OR p.district LIKE ? OR p.city LIKE ?)"
	if where != want {
		t.Fatalf("where = %q", where)
	}
	if len(args) != 6 {
		t.Fatalf("args = %v", args)
	}
	for _, a := range args {
		if a != `%50\%\_off%` {
			t.Fatalf("pattern = %v", a)
		}
	}
}

func TestBuildFilters_DimensionsAreAnded(t *testing.T) {
	where, args := buildFilters(domain.ListingFilters{
		PropertyTypes: []string{"Villa", "Townhouse", "Villa"},
		Developers:    []string{"Emaar"},
		Areas:         []string{"Dubai Hills"},
		Districts:     []string{"Jumeirah", "Dubai Hills"},
		MinPrice:      fp(1e6),
		MaxPrice:      fp(3e6),
		MinArea:       fp(800),
		MinBedrooms:   ip(2),
		MaxBedrooms:   ip(4),
	}, testNow)

	wantConds := []string{
		"(p.sector IN (?,?) OR p.district IN (?,?))",
		"EXISTS (SELECT 1 FROM project_property_types t WHERE t.project_id = p.id AND t.type IN (?,?))",
		"p.developer IN (?)",
		"COALESCE(p.min_price, p.max_price) >= ?",
		"COALESCE(p.max_price, p.min_price) <= ?",
		"COALESCE(p.min_area, p.max_area) >= ?",
		"p.min_bedrooms >= ?",
		"p.max_bedrooms <= ?",
	}
	if where != " WHERE "+strings.Join(wantConds, " AND ") {
		t.Fatalf("where = %q", where)
	}
	wantArgs := []any{
		"Dubai Hills", "Jumeirah", "Dubai Hills", "Jumeirah",
		"Villa", "Townhouse",
		"Emaar",
		1e6, 3e6, 800.0, 2, 4,
	}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %#v", args)
	}
}

func TestBuildFilters_IDsShortCircuitLocationAndText(t *testing.T) {
	where, args := buildFilters(domain.ListingFilters{
		IDs:        []int64{7, 3, 7},
		Search:     "marina",
		Areas:      []string{"JVC"},
		BBox:       &domain.BoundingBox{North: 26, South: 25, East: 56, West: 55},
		Developers: []string{"Sobha"},
	}, testNow)
	if where != " WHERE p.id IN (?,?) AND p.developer IN (?)" {
		t.Fatalf("where = %q", where)
	}
	if !reflect.DeepEqual(args, []any{int64(7), int64(3), "Sobha"}) {
		t.Fatalf("args = %#v", args)
	}

	where, _ = buildFilters(domain.ListingFilters{IDs: []int64{0, -1}}, testNow)
	if where != " WHERE 1 = 0" {
		t.Fatalf("invalid ids should match nothing, got %q", where)
	}
}

func TestBuildFilters_BoundingBox(t *testing.T) {
	where, args := buildFilters(domain.ListingFilters{
		BBox: &domain.BoundingBox{North: 25.3, South: 25.0, East: 55.4, West: 55.1},
	}, testNow)
	if where != " WHERE p.lat BETWEEN ? AND ? AND p.lon BETWEEN ? AND ?" {
		t.Fatalf("where = %q", where)
	}
	if !reflect.DeepEqual(args, []any{25.0, 25.3, 55.1, 55.4}) {
		t.Fatalf("args = %#v", args)
	}
}

func TestBuildFilters_HandoverBuckets(t *testing.T) {
	y := func(year int) time.Time { return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC) }

	cases := []struct {
		name     string
		buckets  []string
		where    string
		wantArgs []any
	}{
		{
			name:     "single year spans the calendar year",
			buckets:  []string{"2027"},
			where:    " WHERE ((" + effectiveDate + " >= ? AND " + effectiveDate + " < ?))",
			wantArgs: []any{y(2027), y(2028)},
		},
		{
			name:    "years and completed are ored",
			buckets: []string{"2026", "completed", "2028", "2026"},
			where: " WHERE ((" + effectiveDate + " >= ? AND " + effectiveDate + " < ?) OR " +
				effectiveDate + " <= ? OR (" + effectiveDate + " >= ? AND " + effectiveDate + " < ?))",
			wantArgs: []any{y(2026), y(2027), testNow, y(2028), y(2029)},
		},
		{
			name:     "unreadable buckets are skipped",
			buckets:  []string{"soon", "2029"},
			where:    " WHERE ((" + effectiveDate + " >= ? AND " + effectiveDate + " < ?))",
			wantArgs: []any{y(2029), y(2030)},
		},
		{
			name:    "nothing readable matches nothing",
			buckets: []string{"soon", "27"},
			where:   " WHERE 1 = 0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := buildFilters(domain.ListingFilters{HandoverYears: tc.buckets}, testNow)
			if where != tc.where {
				t.Fatalf("where = %q\nwant    %q", where, tc.where)
			}
			if len(args) != len(tc.wantArgs) {
				t.Fatalf("args = %#v", args)
			}
			for i := range args {
				if !reflect.DeepEqual(args[i], tc.wantArgs[i]) {
					t.Fatalf("arg %d = %#v, want %#v", i, args[i], tc.wantArgs[i])
				}
			}
		})
	}
}

// The year-bucket condition, evaluated in Go over the generated args, keeps exactly
// the dates inside a selected bucket.
func TestBuildFilters_HandoverBucketMembership(t *testing.T) {
	buckets := []string{"2027", domain.HandoverCompleted}
	_, args := buildFilters(domain.ListingFilters{HandoverYears: buckets}, testNow)
	from, to, cutoff := args[0].(time.Time), args[1].(time.Time), args[2].(time.Time)
	match := func(d time.Time) bool {
		return (!d.Before(from) && d.Before(to)) || !d.After(cutoff)
	}

	cases := []struct {
		date time.Time
		want bool
	}{
		{time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2027, 12, 31, 23, 59, 0, 0, time.UTC), true},
		{time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{testNow, true},
		{testNow.Add(time.Second), false},
		{time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		if got := match(tc.date); got != tc.want {
			t.Fatalf("date %s: match = %v, want %v", tc.date, got, tc.want)
		}
	}
}

// A stored range with one end missing is still compared, on the end it has.
func TestBuildFilters_OneSidedStoredRange(t *testing.T) {
	where, args := buildFilters(domain.ListingFilters{MaxPrice: fp(2e6)}, testNow)
	if where != " WHERE COALESCE(p.max_price, p.min_price) <= ?" {
		t.Fatalf("where = %q", where)
	}

	type row struct{ min, max *float64 }
	match := func(r row) bool {
		v := r.max
		if v == nil {
			v = r.min
		}
		return v != nil && *v <= args[0].(float64)
	}
	cases := []struct {
		r    row
		want bool
	}{
		{row{fp(900000), nil}, true},
		{row{fp(2.5e6), nil}, false},
		{row{nil, fp(1.5e6)}, true},
		{row{fp(900000), fp(3.1e6)}, false},
		{row{nil, nil}, false},
	}
	for _, tc := range cases {
		if got := match(tc.r); got != tc.want {
			t.Fatalf("row %v/%v: match = %v, want %v", tc.r.min, tc.r.max, got, tc.want)
		}
	}
}

func TestPlaceholders(t *testing.T) {
	if placeholders(3) != "(?,?,?)" || placeholders(1) != "(?)" || placeholders(0) != "(NULL)" {
		t.Fatalf("unexpected placeholders")
	}
}
