package app

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"dubaihaus/internal/adapters/observability"
	"dubaihaus/internal/domain"
	"dubaihaus/internal/shared"
)

// persistTimeout bounds one background store write.
const persistTimeout = 10 * time.Second

type memKey struct{ lang, text string }

// TranslationService memoizes translations in process, then in the store, and only
// sends what both tiers miss to the provider.
type TranslationService struct {
	store    domain.TranslationStore
	provider domain.TranslationProvider
	clock    shared.Clock

	mu  sync.RWMutex
	mem map[memKey]string

	pending sync.WaitGroup
}

func NewTranslationService(s domain.TranslationStore, p domain.TranslationProvider, clock shared.Clock) *TranslationService {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &TranslationService{store: s, provider: p, clock: clock, mem: map[memKey]string{}}
}

// TranslateBatch returns one string per input, in order. Blank inputs pass through.
// If the provider fails, every input comes back untranslated.
func (s *TranslationService) TranslateBatch(ctx context.Context, texts []string, lang string) []string {
	out := make([]string, len(texts))
	copy(out, texts)
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || len(texts) == 0 {
		return out
	}

	// tier 1: in-process
	positions := map[string][]int{}
	var misses []string
	for i, t := range texts {
		key := strings.TrimSpace(t)
		if key == "" {
			continue
		}
		if v, ok := s.memGet(lang, key); ok {
			out[i] = v
			continue
		}
		if _, seen := positions[key]; !seen {
			misses = append(misses, key)
		}
		positions[key] = append(positions[key], i)
	}
	if len(misses) == 0 {
		return out
	}

	// tier 2: store
	found, err := s.store.FindTranslations(ctx, lang, misses)
	if err != nil {
		log.Warn().Err(err).Str("lang", lang).Msg("translation store lookup failed")
	}
	var hits, remaining []string
	for _, key := range misses {
		v, ok := found[key]
		if !ok {
			remaining = append(remaining, key)
			continue
		}
		hits = append(hits, key)
		s.memPut(lang, key, v)
		for _, i := range positions[key] {
			out[i] = v
		}
	}
	if len(hits) > 0 {
		at := s.clock.Now()
		s.persist(func(ctx context.Context) error { return s.store.TouchTranslations(ctx, lang, hits, at) })
	}
	if len(remaining) == 0 {
		return out
	}

	// tier 3: provider, one batch
	if s.provider == nil {
		observability.ObserveFallback("translate")
		return append([]string(nil), texts...)
	}
	res, err := s.provider.Translate(ctx, remaining, lang)
	if err != nil || len(res) != len(remaining) {
		observability.ObserveFallback("translate")
		log.Warn().Err(err).Str("lang", lang).Int("texts", len(remaining)).Msg("translation provider failed; returning originals")
		return append([]string(nil), texts...)
	}

	now := s.clock.Now()
	entries := make([]domain.TranslationEntry, 0, len(remaining))
	for j, key := range remaining {
		v := res[j]
		s.memPut(lang, key, v)
		for _, i := range positions[key] {
			out[i] = v
		}
		entries = append(entries, domain.TranslationEntry{
			Lang:       lang,
			Source:     key,
			Translated: v,
			CharCount:  utf8.RuneCountInString(key),
			LastUsedAt: now,
		})
	}
	s.persist(func(ctx context.Context) error { return s.store.UpsertTranslations(ctx, entries) })
	return out
}

// Drain waits for background store writes started so far.
func (s *TranslationService) Drain() { s.pending.Wait() }

// persist runs fn detached from the request; failures are only logged.
func (s *TranslationService) persist(fn func(ctx context.Context) error) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Msg("translation store write failed")
		}
	}()
}

func (s *TranslationService) memGet(lang, text string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.mem[memKey{lang, text}]
	return v, ok
}

func (s *TranslationService) memPut(lang, text, translated string) {
	s.mu.Lock()
	s.mem[memKey{lang, text}] = translated
	s.mu.Unlock()
}
