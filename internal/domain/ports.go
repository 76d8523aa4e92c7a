package domain

import (
	"context"
	"time"
)

// ProjectStore is the persistent store for projects and their children.
// The sync orchestrator is its only writer.
type ProjectStore interface {
	// Write paths
	UpsertProject(ctx context.Context, p Project) error

	// Read paths
	CountProjects(ctx context.Context) (int, error)
	QueryProjects(ctx context.Context, f ListingFilters, now time.Time) ([]ProjectView, int, error)
	GetProject(ctx context.Context, id int64) (ProjectView, error)
}

type RateStore interface {
	GetRate(ctx context.Context, base, target string) (*ExchangeRate, error)
	UpsertRate(ctx context.Context, r ExchangeRate) error
}

type TranslationStore interface {
	// FindTranslations returns translations keyed by source text for the given sources.
	FindTranslations(ctx context.Context, lang string, sources []string) (map[string]string, error)
	UpsertTranslations(ctx context.Context, entries []TranslationEntry) error
	TouchTranslations(ctx context.Context, lang string, sources []string, at time.Time) error
}

type CatalogClient interface {
	SearchListings(ctx context.Context, q CatalogQuery, page, pageSize int) *CatalogPage
	GetListingByID(ctx context.Context, id int64) *Project
	ListTaxonomy(ctx context.Context, kind TaxonomyKind) []TaxonomyItem
}

type RateProvider interface {
	Name() string
	// Latest returns a snapshot of conversion rates against the provider's fixed base.
	Latest(ctx context.Context) (base string, rates map[string]float64, err error)
}

type TranslationProvider interface {
	Translate(ctx context.Context, texts []string, lang string) ([]string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
}
