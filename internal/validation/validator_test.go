package validation_test

import (
	"errors"
	"testing"

	"dubaihaus/internal/domain"
	"dubaihaus/internal/validation"
)

func ip(i int) *int { return &i }

func TestStruct_ListingFilters(t *testing.T) {
	cases := []struct {
		name   string
		f      domain.ListingFilters
		fields []string
	}{
		{"empty is fine", domain.ListingFilters{}, nil},
		{"year and completed buckets", domain.ListingFilters{HandoverYears: []string{"2027", "completed"}}, nil},
		{"bad bucket", domain.ListingFilters{HandoverYears: []string{"2027", "soon"}}, []string{"years[1]"}},
		{"page size too large", domain.ListingFilters{PageSize: 500}, []string{"page_size"}},
		{"negative bedrooms", domain.ListingFilters{MinBedrooms: ip(-1)}, []string{"min_beds"}},
		{"inverted bbox", domain.ListingFilters{BBox: &domain.BoundingBox{North: 24, South: 25, East: 55, West: 54}}, []string{"bbox.north"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validation.Struct(tc.f)
			if len(tc.fields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *validation.Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *validation.Error, got %v", err)
			}
			if len(verr.Fields) != len(tc.fields) {
				t.Fatalf("fields = %+v", verr.Fields)
			}
			for i, f := range tc.fields {
				if verr.Fields[i].Field != f {
					t.Fatalf("field %d = %q, want %q", i, verr.Fields[i].Field, f)
				}
			}
		})
	}
}

func TestStruct_CurrencyRule(t *testing.T) {
	type req struct {
		Currency string `json:"currency" validate:"omitempty,currency"`
	}
	for in, ok := range map[string]bool{"": true, "usd": true, "EUR": true, "EURO": false, "U$D": false} {
		err := validation.Struct(req{Currency: in})
		if (err == nil) != ok {
			t.Fatalf("%q: err = %v", in, err)
		}
	}
}
