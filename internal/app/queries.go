package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"dubaihaus/internal/domain"
	"dubaihaus/internal/shared"
)

// Bootstrapper starts a catalog sync without waiting for it.
type Bootstrapper interface {
	Trigger()
}

type QueryService struct {
	store    domain.ProjectStore
	cache    domain.Cache
	boot     Bootstrapper
	clock    shared.Clock
	cacheTTL time.Duration

	seeded atomic.Bool // store seen non-empty once; it never empties again
}

func NewQueryService(s domain.ProjectStore, c domain.Cache, boot Bootstrapper, clock shared.Clock, ttl time.Duration) *QueryService {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &QueryService{store: s, cache: c, boot: boot, clock: clock, cacheTTL: ttl}
}

// QueryListings serves one page of listings. On an empty store it kicks off a sync and
// answers with an empty page right away.
func (s *QueryService) QueryListings(ctx context.Context, f domain.ListingFilters) (domain.ListingsPage, error) {
	page, size, _ := f.Window()
	empty := domain.ListingsPage{Results: []domain.ProjectView{}, Page: page, PageSize: size}

	if !s.seeded.Load() {
		n, err := s.store.CountProjects(ctx)
		if err != nil {
			return domain.ListingsPage{}, fmt.Errorf("count projects: %w", err)
		}
		if n == 0 {
			log.Info().Msg("project store empty; bootstrapping catalog sync")
			if s.boot != nil {
				s.boot.Trigger()
			}
			return empty, nil
		}
		s.seeded.Store(true)
	}

	key := s.cacheKey(ctx, "listings", f)
	var out domain.ListingsPage
	if key != "" {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	rows, total, err := s.store.QueryProjects(ctx, f, s.clock.Now())
	if err != nil {
		return domain.ListingsPage{}, err
	}
	out = domain.ListingsPage{
		Results:    rows,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
	}
	if key != "" {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

func (s *QueryService) GetProject(ctx context.Context, id int64) (domain.ProjectView, error) {
	key := s.cacheKey(ctx, "project", id)
	var v domain.ProjectView
	if key != "" {
		if ok, _ := s.cache.Get(ctx, key, &v); ok {
			return v, nil
		}
	}
	v, err := s.store.GetProject(ctx, id)
	if err != nil {
		return domain.ProjectView{}, err
	}
	if key != "" {
		_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	}
	return v, nil
}

// cacheKey scopes a key to the current cache generation; "" disables caching for the call.
func (s *QueryService) cacheKey(ctx context.Context, kind string, v any) string {
	if s.cache == nil || s.cacheTTL <= 0 {
		return ""
	}
	var gen int64
	if _, err := s.cache.Get(ctx, QueryGenerationKey, &gen); err != nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%s:g%d:%s", kind, gen, hex.EncodeToString(sum[:12]))
}
