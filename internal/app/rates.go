package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"dubaihaus/internal/adapters/observability"
	"dubaihaus/internal/domain"
	"dubaihaus/internal/shared"
)

// RateService resolves exchange rates through the rate store, asking the provider only
// for pairs that are missing or older than domain.RateTTL.
type RateService struct {
	store    domain.RateStore
	provider domain.RateProvider
	clock    shared.Clock
}

func NewRateService(s domain.RateStore, p domain.RateProvider, clock shared.Clock) *RateService {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &RateService{store: s, provider: p, clock: clock}
}

func (s *RateService) GetRate(ctx context.Context, base, target string) (float64, error) {
	base, target = normCurrency(base), normCurrency(target)
	if !validCurrency(base) || !validCurrency(target) {
		return 0, domain.ErrInvalidCurrency
	}
	if base == target {
		return 1, nil
	}

	now := s.clock.Now()
	stored, err := s.store.GetRate(ctx, base, target)
	if err != nil {
		log.Warn().Err(err).Str("base", base).Str("target", target).Msg("rate store read failed")
	} else if stored != nil && stored.Fresh(now) {
		return stored.Rate, nil
	}

	if s.provider == nil {
		return 0, fmt.Errorf("%w: no provider configured", domain.ErrRateUnavailable)
	}
	pbase, rates, err := s.provider.Latest(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, err)
	}
	rate, ok := crossRate(pbase, rates, base, target)
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s not quoted", domain.ErrRateUnavailable, base, target)
	}

	fresh := domain.ExchangeRate{Base: base, Target: target, Rate: rate, Provider: s.provider.Name(), FetchedAt: now}
	if err := s.store.UpsertRate(ctx, fresh); err != nil {
		log.Warn().Err(err).Str("base", base).Str("target", target).Msg("rate store write failed")
	}
	return rate, nil
}

// crossRate derives base->target from a snapshot quoted against pbase.
func crossRate(pbase string, rates map[string]float64, base, target string) (float64, bool) {
	quote := func(c string) (float64, bool) {
		if c == normCurrency(pbase) {
			return 1, true
		}
		v, ok := rates[c]
		return v, ok && v > 0
	}
	rb, ok := quote(base)
	if !ok {
		return 0, false
	}
	rt, ok := quote(target)
	if !ok {
		return 0, false
	}
	return rt / rb, true
}

// ApplyCurrency converts every price on listings into target. Original amounts are kept
// alongside. Listings whose currency cannot be converted keep their prices and are
// labelled with their own currency.
func (s *RateService) ApplyCurrency(ctx context.Context, listings []domain.ProjectView, target string) []domain.ProjectView {
	target = normCurrency(target)
	out := make([]domain.ProjectView, len(listings))
	copy(out, listings)
	if !validCurrency(target) {
		for i := range out {
			out[i].DisplayCurrency = normCurrency(out[i].Currency)
		}
		return out
	}

	type resolved struct {
		rate float64
		ok   bool
	}
	rates := map[string]resolved{}

	for i := range out {
		v := &out[i]
		src := normCurrency(v.Currency)
		if src == "" || src == target {
			v.DisplayCurrency = orCurrency(src, target)
			continue
		}
		r, seen := rates[src]
		if !seen {
			rate, err := s.GetRate(ctx, src, target)
			r = resolved{rate: rate, ok: err == nil}
			rates[src] = r
			if err != nil {
				observability.ObserveFallback("fx")
				log.Warn().Err(err).Str("from", src).Str("to", target).Msg("currency conversion skipped")
			}
		}
		if !r.ok {
			v.DisplayCurrency = src
			continue
		}

		v.OriginalCurrency = src
		v.OriginalMinPrice, v.OriginalMaxPrice = v.MinPrice, v.MaxPrice
		v.MinPrice, v.MaxPrice = convert(v.MinPrice, r.rate), convert(v.MaxPrice, r.rate)
		if len(v.UnitTypes) > 0 {
			units := make([]domain.PropertyTypeView, len(v.UnitTypes))
			for j, u := range v.UnitTypes {
				u.OriginalStartingPrice = u.StartingPrice
				u.StartingPrice = convert(u.StartingPrice, r.rate)
				units[j] = u
			}
			v.UnitTypes = units
		}
		v.Currency = target
		v.DisplayCurrency = target
	}
	return out
}

func convert(p *float64, rate float64) *float64 {
	if p == nil {
		return nil
	}
	v := math.Round(*p*rate*100) / 100
	return &v
}

func normCurrency(c string) string { return strings.ToUpper(strings.TrimSpace(c)) }

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func orCurrency(c, def string) string {
	if c == "" {
		return def
	}
	return c
}
