package normalizer

import (
	"fmt"
	"sort"
)

// BedroomLabel derives the short label for a set of bedroom counts:
// one distinct value gives "2BR" (0 is "Studio"), several give "1–3BR".
func BedroomLabel(counts []int) *string {
	lo, hi, ok := span(counts)
	if !ok {
		return nil
	}
	var s string
	switch {
	case lo == hi && lo == 0:
		s = "Studio"
	case lo == hi:
		s = fmt.Sprintf("%dBR", lo)
	case lo == 0:
		s = fmt.Sprintf("Studio–%dBR", hi)
	default:
		s = fmt.Sprintf("%d–%dBR", lo, hi)
	}
	return &s
}

// BedroomRangeLabel is the long form used next to the short label: "1 - 3 Bedrooms".
func BedroomRangeLabel(lo, hi *int) *string {
	if lo == nil && hi == nil {
		return nil
	}
	if lo == nil {
		lo = hi
	}
	if hi == nil {
		hi = lo
	}
	word := func(n int) string {
		if n == 1 {
			return "Bedroom"
		}
		return "Bedrooms"
	}
	var s string
	switch {
	case *lo == *hi && *lo == 0:
		s = "Studio"
	case *lo == *hi:
		s = fmt.Sprintf("%d %s", *lo, word(*lo))
	case *lo == 0:
		s = fmt.Sprintf("Studio - %d %s", *hi, word(*hi))
	default:
		s = fmt.Sprintf("%d - %d %s", *lo, *hi, word(*hi))
	}
	return &s
}

// span returns min and max of counts, ignoring negatives.
func span(counts []int) (lo, hi int, ok bool) {
	vals := make([]int, 0, len(counts))
	for _, c := range counts {
		if c >= 0 {
			vals = append(vals, c)
		}
	}
	if len(vals) == 0 {
		return 0, 0, false
	}
	sort.Ints(vals)
	return vals[0], vals[len(vals)-1], true
}
