package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"dubaihaus/internal/domain"
)

// ---- fakes ----

type fakeCatalog struct {
	mu      sync.Mutex
	pages   map[int][]map[string]any // page -> results; a missing page fails
	total   int
	calls   int
	details map[int64]*domain.Project
	gate    chan struct{} // when set, SearchListings blocks until it is closed
}

func (f *fakeCatalog) SearchListings(ctx context.Context, q domain.CatalogQuery, page, pageSize int) *domain.CatalogPage {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	res, ok := f.pages[page]
	if !ok {
		return nil
	}
	return &domain.CatalogPage{Results: res, Total: f.total}
}

func (f *fakeCatalog) GetListingByID(ctx context.Context, id int64) *domain.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details[id]
}

func (f *fakeCatalog) ListTaxonomy(ctx context.Context, kind domain.TaxonomyKind) []domain.TaxonomyItem {
	return []domain.TaxonomyItem{}
}

func (f *fakeCatalog) searchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	mu       sync.Mutex
	projects map[int64]domain.Project
	upserts  int
	failIDs  map[int64]bool
	views    []domain.ProjectView
	queries  int
}

func newFakeStore() *fakeStore { return &fakeStore{projects: map[int64]domain.Project{}} }

func (s *fakeStore) UpsertProject(ctx context.Context, p domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIDs[p.ID] {
		return errors.New("write failed")
	}
	s.upserts++
	s.projects[p.ID] = p
	return nil
}

func (s *fakeStore) CountProjects(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects), nil
}

func (s *fakeStore) QueryProjects(ctx context.Context, f domain.ListingFilters, now time.Time) ([]domain.ProjectView, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	out := make([]domain.ProjectView, len(s.views))
	copy(out, s.views)
	return out, len(s.projects), nil
}

func (s *fakeStore) GetProject(ctx context.Context, id int64) (domain.ProjectView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.ProjectView{}, domain.ErrNotFound
	}
	return domain.ProjectView{ID: p.ID, Title: p.Title}, nil
}

func (s *fakeStore) project(id int64) (domain.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	return p, ok
}

// fakeCache round-trips values through JSON like the redis adapter does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gen   int64
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.store[key] = b
	c.mu.Unlock()
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
	return nil
}

func (c *fakeCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if b, ok := c.store[key]; ok {
		_ = json.Unmarshal(b, &n)
	}
	n++
	c.store[key], _ = json.Marshal(n)
	return n, nil
}

type fakeRateStore struct {
	mu    sync.Mutex
	rates map[string]domain.ExchangeRate
	reads int
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{rates: map[string]domain.ExchangeRate{}}
}

func (s *fakeRateStore) GetRate(ctx context.Context, base, target string) (*domain.ExchangeRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	r, ok := s.rates[base+"/"+target]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *fakeRateStore) UpsertRate(ctx context.Context, r domain.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[r.Base+"/"+r.Target] = r
	return nil
}

type fakeRates struct {
	mu    sync.Mutex
	base  string
	rates map[string]float64
	err   error
	calls int
}

func (p *fakeRates) Name() string { return "fake" }

func (p *fakeRates) Latest(ctx context.Context) (string, map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.base, p.rates, p.err
}

type fakeTranslationStore struct {
	mu      sync.Mutex
	entries map[string]domain.TranslationEntry // lang + "|" + source
	finds   [][]string
	touched []string
}

func newFakeTranslationStore() *fakeTranslationStore {
	return &fakeTranslationStore{entries: map[string]domain.TranslationEntry{}}
}

func (s *fakeTranslationStore) FindTranslations(ctx context.Context, lang string, sources []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds = append(s.finds, append([]string(nil), sources...))
	out := map[string]string{}
	for _, src := range sources {
		if e, ok := s.entries[lang+"|"+src]; ok {
			out[src] = e.Translated
		}
	}
	return out, nil
}

func (s *fakeTranslationStore) UpsertTranslations(ctx context.Context, entries []domain.TranslationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.Lang+"|"+e.Source] = e
	}
	return nil
}

func (s *fakeTranslationStore) TouchTranslations(ctx context.Context, lang string, sources []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, sources...)
	return nil
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls [][]string
	err   error
	short bool
}

func (p *fakeTranslator) Translate(ctx context.Context, texts []string, lang string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, append([]string(nil), texts...))
	if p.err != nil {
		return nil, p.err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "[" + lang + "] " + t
	}
	if p.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func listing(id float64, name string) map[string]any {
	return map[string]any{"id": id, "name": name}
}

func fp(f float64) *float64 { return &f }
