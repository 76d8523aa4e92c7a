package domain

import (
	"errors"
	"time"
)

// RateTTL is how long a stored exchange rate is served without asking the provider.
const RateTTL = 24 * time.Hour

type ExchangeRate struct {
	Base      string
	Target    string
	Rate      float64
	Provider  string
	FetchedAt time.Time
}

// Fresh reports whether r was fetched within RateTTL of now.
func (r ExchangeRate) Fresh(now time.Time) bool {
	return now.Sub(r.FetchedAt) < RateTTL
}

type TranslationEntry struct {
	Lang       string
	Source     string // trimmed
	Translated string
	CharCount  int
	LastUsedAt time.Time
}

var (
	ErrNotFound           = errors.New("not found")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrRateUnavailable    = errors.New("exchange rate unavailable")
	ErrInvalidCurrency    = errors.New("invalid currency code")
)
