package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"dubaihaus/internal/adapters/observability"
	"dubaihaus/internal/domain"
	"dubaihaus/internal/normalizer"
	"dubaihaus/internal/shared"
)

// QueryGenerationKey holds the listings cache generation; bumping it orphans every cached page.
const QueryGenerationKey = "listings:gen"

const (
	syncFlightKey = "catalog"
	maxSyncPages  = 10000
)

type SyncOptions struct {
	PageSize     int
	Workers      int
	FetchDetails bool
}

// SyncService pulls the whole external catalog into the project store. At most one
// run is in flight per process; concurrent callers share it.
type SyncService struct {
	client domain.CatalogClient
	store  domain.ProjectStore
	cache  domain.Cache
	clock  shared.Clock
	opts   SyncOptions

	flight     singleflight.Group
	background sync.WaitGroup
}

func NewSyncService(c domain.CatalogClient, s domain.ProjectStore, cache domain.Cache, clock shared.Clock, opts SyncOptions) *SyncService {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if clock == nil {
		clock = shared.SystemClock
	}
	return &SyncService{client: c, store: s, cache: cache, clock: clock, opts: opts}
}

// SyncCatalog runs a full sync, or joins the one already running. The run itself is
// detached from ctx: a caller that gives up stops waiting, the run carries on.
func (s *SyncService) SyncCatalog(ctx context.Context) (domain.SyncResult, error) {
	ch := s.flight.DoChan(syncFlightKey, func() (any, error) {
		return s.run(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return domain.SyncResult{}, ctx.Err()
	case r := <-ch:
		if r.Shared {
			observability.SyncRuns.WithLabelValues("shared").Inc()
		}
		res, _ := r.Val.(domain.SyncResult)
		return res, r.Err
	}
}

// Trigger starts a sync in the background without waiting for it.
func (s *SyncService) Trigger() {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.SyncCatalog(context.Background()); err != nil {
			log.Warn().Err(err).Msg("background sync failed")
		}
	}()
}

// Wait blocks until every triggered background sync has returned.
func (s *SyncService) Wait() { s.background.Wait() }

func (s *SyncService) run(ctx context.Context) (domain.SyncResult, error) {
	res := domain.SyncResult{RunID: uuid.NewString(), StartedAt: s.clock.Now()}
	logger := log.With().Str("run_id", res.RunID).Logger()
	logger.Info().Int("page_size", s.opts.PageSize).Bool("details", s.opts.FetchDetails).Msg("catalog sync started")

	raws, err := s.pull(ctx, logger)
	if err != nil {
		res.FinishedAt = s.clock.Now()
		observability.ObserveSync("failed", 0, 0)
		logger.Error().Err(err).Msg("catalog sync failed")
		return res, err
	}
	res.Fetched = len(raws)

	projects, invalid := dedupe(raws)
	res.Failed = invalid
	if invalid > 0 {
		logger.Warn().Int("count", invalid).Msg("listings without id skipped")
	}

	processed, failed := s.upsertAll(ctx, logger, projects)
	res.Processed = processed
	res.Failed += failed
	res.FinishedAt = s.clock.Now()

	if res.Processed > 0 && s.cache != nil {
		if _, err := s.cache.Incr(ctx, QueryGenerationKey); err != nil {
			logger.Warn().Err(err).Msg("listings cache generation bump failed")
		}
	}
	observability.ObserveSync("ok", res.Processed, res.Failed)
	logger.Info().
		Int("fetched", res.Fetched).
		Int("processed", res.Processed).
		Int("failed", res.Failed).
		Dur("took", res.FinishedAt.Sub(res.StartedAt)).
		Msg("catalog sync finished")
	return res, nil
}

// pull pages through the catalog until a short page or the reported total.
// Without a reported total it keeps going until a short page.
// Only a failure on the first page fails the run.
func (s *SyncService) pull(ctx context.Context, logger zerolog.Logger) ([]map[string]any, error) {
	var out []map[string]any
	size := s.opts.PageSize
	for page := 1; page <= maxSyncPages; page++ {
		p := s.client.SearchListings(ctx, domain.CatalogQuery{}, page, size)
		if p == nil {
			if page == 1 {
				return nil, domain.ErrCatalogUnavailable
			}
			logger.Warn().Int("page", page).Int("gathered", len(out)).Msg("catalog page failed; syncing what was gathered")
			break
		}
		out = append(out, p.Results...)
		if len(p.Results) < size || (p.Total > 0 && page*size >= p.Total) {
			break
		}
	}
	return out, nil
}

// dedupe normalizes raw listings, keeping the last payload per id. Listings without an
// id are counted and dropped.
func dedupe(raws []map[string]any) ([]domain.Project, int) {
	idx := make(map[int64]int, len(raws))
	out := make([]domain.Project, 0, len(raws))
	invalid := 0
	for _, raw := range raws {
		p := normalizer.Project(raw)
		if p.ID <= 0 {
			invalid++
			continue
		}
		if i, ok := idx[p.ID]; ok {
			out[i] = p
			continue
		}
		idx[p.ID] = len(out)
		out = append(out, p)
	}
	return out, invalid
}

func (s *SyncService) upsertAll(ctx context.Context, logger zerolog.Logger, projects []domain.Project) (processed, failed int) {
	sem := semaphore.NewWeighted(int64(s.opts.Workers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range projects {
		if err := sem.Acquire(ctx, 1); err != nil {
			logger.Error().Err(err).Msg("semaphore acquire failed")
			break
		}
		wg.Add(1)
		go func(p domain.Project) {
			defer wg.Done()
			defer sem.Release(1)

			err := s.upsertOne(ctx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				logger.Warn().Int64("id", p.ID).Err(err).Msg("listing sync failed")
				return
			}
			processed++
		}(p)
	}
	wg.Wait()
	return processed, failed
}

func (s *SyncService) upsertOne(ctx context.Context, p domain.Project) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if s.opts.FetchDetails {
		if d := s.client.GetListingByID(ctx, p.ID); d != nil && d.ID == p.ID {
			p = *d
		}
	}
	p.SyncedAt = s.clock.Now()
	return s.store.UpsertProject(ctx, p)
}
