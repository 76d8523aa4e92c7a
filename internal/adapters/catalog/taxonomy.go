package catalog

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"dubaihaus/internal/adapters/observability"
	"dubaihaus/internal/domain"
)

var taxonomyTTL = map[domain.TaxonomyKind]time.Duration{
	domain.TaxonomyRegions:    time.Hour,
	domain.TaxonomyDistricts:  time.Hour,
	domain.TaxonomyDevelopers: 12 * time.Hour,
	domain.TaxonomyCountries:  24 * time.Hour,
}

// taxonomyCache memoizes one lookup list. The lock covers the fields only, never the
// fetch: concurrent misses may each refetch and the last write wins.
type taxonomyCache struct {
	ttl time.Duration

	mu      sync.RWMutex
	items   []domain.TaxonomyItem
	expires time.Time
}

func newTaxonomyCaches() map[domain.TaxonomyKind]*taxonomyCache {
	m := make(map[domain.TaxonomyKind]*taxonomyCache, len(taxonomyTTL))
	for k, ttl := range taxonomyTTL {
		m[k] = &taxonomyCache{ttl: ttl}
	}
	return m
}

func (t *taxonomyCache) load(now time.Time) ([]domain.TaxonomyItem, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.items == nil || !now.Before(t.expires) {
		return nil, false
	}
	return t.items, true
}

func (t *taxonomyCache) store(items []domain.TaxonomyItem, now time.Time) {
	t.mu.Lock()
	t.items = items
	t.expires = now.Add(t.ttl)
	t.mu.Unlock()
}

// ListTaxonomy returns a cached lookup list, refetching it once its TTL has passed.
// Failures are not cached and yield an empty slice.
func (c *Client) ListTaxonomy(ctx context.Context, kind domain.TaxonomyKind) []domain.TaxonomyItem {
	tc, ok := c.tax[kind]
	if !ok {
		log.Warn().Str("kind", string(kind)).Msg("unknown taxonomy kind")
		return []domain.TaxonomyItem{}
	}
	if items, ok := tc.load(c.clock.Now()); ok {
		observeTaxonomy(true)
		return items
	}
	observeTaxonomy(false)

	var raw any
	if err := c.get(ctx, "/"+string(kind), c.base+"/"+string(kind), &raw); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("taxonomy fetch failed")
		return []domain.TaxonomyItem{}
	}
	items, ok := taxonomyItems(raw)
	if !ok {
		log.Warn().Str("kind", string(kind)).Msg("taxonomy response is not a list")
		return []domain.TaxonomyItem{}
	}
	tc.store(items, c.clock.Now())
	return items
}

// taxonomyItems accepts a flat array, or an object wrapping it under "results".
func taxonomyItems(raw any) ([]domain.TaxonomyItem, bool) {
	var list []any
	switch v := raw.(type) {
	case []any:
		list = v
	case map[string]any:
		l, ok := v["results"].([]any)
		if !ok {
			return nil, false
		}
		list = l
	default:
		return nil, false
	}
	out := make([]domain.TaxonomyItem, 0, len(list))
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		it := domain.TaxonomyItem{ID: idOf(m["id"])}
		for _, k := range []string{"name", "title"} {
			if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
				it.Name = strings.TrimSpace(s)
				break
			}
		}
		if it.Name == "" {
			continue
		}
		out = append(out, it)
	}
	return out, true
}

func idOf(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n
	}
	return 0
}

func observeTaxonomy(hit bool) {
	if hit {
		observability.ObserveCache("taxonomy", "hit")
		return
	}
	observability.ObserveCache("taxonomy", "miss")
}
