package mysql

import (
	"strings"
	"time"

	"dubaihaus/internal/domain"
)

// effectiveDate is the date year buckets are compared against.
const effectiveDate = "COALESCE(p.handover_date, p.completion_date)"

// filterBuilder accumulates AND-ed WHERE conditions and their positional args.
type filterBuilder struct {
	conditions []string
	args       []any
}

func (b *filterBuilder) add(cond string, args ...any) {
	b.conditions = append(b.conditions, cond)
	b.args = append(b.args, args...)
}

// addFloatRange bounds a stored [minCol, maxCol] range. A row missing one end is
// compared on the end it has.
func (b *filterBuilder) addFloatRange(minCol, maxCol string, lo, hi *float64) {
	if lo != nil {
		b.add("COALESCE("+minCol+", "+maxCol+") >= ?", *lo)
	}
	if hi != nil {
		b.add("COALESCE("+maxCol+", "+minCol+") <= ?", *hi)
	}
}

func (b *filterBuilder) addIntRange(minCol, maxCol string, lo, hi *int) {
	if lo != nil {
		b.add(minCol+" >= ?", *lo)
	}
	if hi != nil {
		b.add(maxCol+" <= ?", *hi)
	}
}

func (b *filterBuilder) where() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conditions, " AND ")
}

// buildFilters turns listing filters into a WHERE clause over projects p.
// An explicit id list replaces the text, location and bounding-box filters.
func buildFilters(f domain.ListingFilters, now time.Time) (string, []any) {
	b := &filterBuilder{}

	if len(f.IDs) > 0 {
		if ids := uniqueInt64(f.IDs); len(ids) > 0 {
			b.add("p.id IN "+placeholders(len(ids)), int64Args(ids)...)
		} else {
			b.add("1 = 0")
		}
	} else {
		if s := strings.TrimSpace(f.Search); s != "" {
			like := "%" + escapeLike(s) + "%"
			cols := []string{"p.title", "p.developer", "p.location_label", "p.sector", "p.district", "p.city"}
			parts := make([]string, len(cols))
			args := make([]any, len(cols))
			for i, c := range cols {
				parts[i] = c + " LIKE ?"
				args[i] = like
			}
			b.add("("+strings.Join(parts, " OR ")+")", args...)
		}
		if places := uniqueStrings(append(append([]string{}, f.Areas...), f.Districts...)); len(places) > 0 {
			ph := placeholders(len(places))
			args := stringArgs(places)
			b.add("(p.sector IN "+ph+" OR p.district IN "+ph+")", append(args, args...)...)
		}
		if bb := f.BBox; bb != nil {
			b.add("p.lat BETWEEN ? AND ?", bb.South, bb.North)
			b.add("p.lon BETWEEN ? AND ?", bb.West, bb.East)
		}
	}

	if types := uniqueStrings(f.PropertyTypes); len(types) > 0 {
		b.add("EXISTS (SELECT 1 FROM project_property_types t WHERE t.project_id = p.id AND t.type IN "+
			placeholders(len(types))+")", stringArgs(types)...)
	}
	if devs := uniqueStrings(f.Developers); len(devs) > 0 {
		b.add("p.developer IN "+placeholders(len(devs)), stringArgs(devs)...)
	}
	if len(f.HandoverYears) > 0 {
		addHandoverBuckets(b, f.HandoverYears, now)
	}

	b.addFloatRange("p.min_price", "p.max_price", f.MinPrice, f.MaxPrice)
	b.addFloatRange("p.min_area", "p.max_area", f.MinArea, f.MaxArea)
	b.addIntRange("p.min_bedrooms", "p.max_bedrooms", f.MinBedrooms, f.MaxBedrooms)

	return b.where(), b.args
}

// addHandoverBuckets ORs the selected buckets: a year is [Jan 1, next Jan 1), Completed is <= now.
// A selection with no readable bucket matches nothing.
func addHandoverBuckets(b *filterBuilder, buckets []string, now time.Time) {
	var parts []string
	var args []any
	seen := map[string]struct{}{}
	for _, raw := range buckets {
		year, completed, ok := domain.ParseHandoverBucket(raw)
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(raw))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if completed {
			parts = append(parts, effectiveDate+" <= ?")
			args = append(args, now.UTC())
			continue
		}
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		parts = append(parts, "("+effectiveDate+" >= ? AND "+effectiveDate+" < ?)")
		args = append(args, from, from.AddDate(1, 0, 0))
	}
	if len(parts) == 0 {
		b.add("1 = 0")
		return
	}
	b.add("("+strings.Join(parts, " OR ")+")", args...)
}

func placeholders(n int) string {
	if n <= 0 {
		return "(NULL)"
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?,", n), ",") + ")"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func uniqueInt64(in []int64) []int64 {
	seen := make(map[int64]struct{}, len(in))
	out := make([]int64, 0, len(in))
	for _, id := range in {
		if _, ok := seen[id]; ok || id <= 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func stringArgs(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func int64Args(in []int64) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
