package catalog

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"dubaihaus/internal/adapters/observability"
	"dubaihaus/internal/domain"
	"dubaihaus/internal/normalizer"
	"dubaihaus/internal/shared"
)

const service = "catalog"

var (
	ErrNotFound     = errors.New("catalog: not found")
	ErrUnauthorized = errors.New("catalog: unauthorized")
	ErrForbidden    = errors.New("catalog: forbidden")
)

type Client struct {
	base  string
	hc    *http.Client
	key   string
	rl    *rate.Limiter
	clock shared.Clock
	tax   map[domain.TaxonomyKind]*taxonomyCache
}

type Option func(*Client)

// WithClock overrides the clock driving taxonomy expiry.
func WithClock(c shared.Clock) Option { return func(cl *Client) { cl.clock = c } }

func WithHTTPClient(hc *http.Client) Option { return func(cl *Client) { cl.hc = hc } }

func New(base, key string, rps int, opts ...Option) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("catalog API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	c := &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 20 * time.Second},
		key:   key,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
		clock: shared.SystemClock,
	}
	for _, o := range opts {
		o(c)
	}
	c.tax = newTaxonomyCaches()
	return c, nil
}

type searchResponse struct {
	Results []map[string]any `json:"results"`
	Count   int              `json:"count"`
}

// SearchListings fetches one page of raw listings. Any failure is logged and reported as nil.
func (c *Client) SearchListings(ctx context.Context, q domain.CatalogQuery, page, pageSize int) *domain.CatalogPage {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	v := searchParams(q)
	v.Set("limit", strconv.Itoa(pageSize))
	v.Set("offset", strconv.Itoa((page-1)*pageSize))

	var out searchResponse
	if err := c.get(ctx, "/projects", c.base+"/projects?"+v.Encode(), &out); err != nil {
		log.Warn().Err(err).Int("page", page).Msg("catalog search failed")
		return nil
	}
	if out.Results == nil {
		log.Warn().Int("page", page).Msg("catalog search: response without results")
		return nil
	}
	total := out.Count
	if total > 0 && total < len(out.Results) {
		total = len(out.Results)
	}
	return &domain.CatalogPage{Results: out.Results, Total: total}
}

// GetListingByID fetches and normalizes one listing; nil when missing or on failure.
func (c *Client) GetListingByID(ctx context.Context, id int64) *domain.Project {
	var raw map[string]any
	if err := c.get(ctx, "/projects/{id}", fmt.Sprintf("%s/projects/%d", c.base, id), &raw); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Info().Int64("id", id).Msg("catalog listing not found")
		} else {
			log.Warn().Err(err).Int64("id", id).Msg("catalog detail failed")
		}
		return nil
	}
	if raw == nil {
		return nil
	}
	p := normalizer.Project(raw)
	if p.ID == 0 {
		p.ID = id
	}
	return &p
}

func searchParams(q domain.CatalogQuery) url.Values {
	v := url.Values{}
	setStr := func(k, s string) {
		if s = strings.TrimSpace(s); s != "" {
			v.Set(k, s)
		}
	}
	setF := func(k string, f *float64) {
		if f != nil {
			v.Set(k, strconv.FormatFloat(*f, 'f', -1, 64))
		}
	}
	setI := func(k string, i *int64) {
		if i != nil {
			v.Set(k, strconv.FormatInt(*i, 10))
		}
	}
	setStr("search", q.Search)
	if q.Bedrooms != nil {
		v.Set("bedrooms", strconv.Itoa(*q.Bedrooms))
	}
	setF("min_price", q.MinPrice)
	setF("max_price", q.MaxPrice)
	setF("min_area", q.MinArea)
	setF("max_area", q.MaxArea)
	setStr("currency", strings.ToUpper(q.Currency))
	setI("region", q.RegionID)
	setI("country", q.CountryID)
	setI("district", q.DistrictID)
	setI("developer", q.Developer)
	if b := q.BBox; b != nil {
		setF("sw_lat", &b.South)
		setF("sw_lng", &b.West)
		setF("ne_lat", &b.North)
		setF("ne_lng", &b.East)
	}
	return v
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("X-API-Key", c.key)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "dubaihaus/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", endpoint, err)
			}
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date), capped at 30s. 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(h); err == nil {
		d = time.Until(t)
	}
	if d < 0 {
		return 0
	}
	return min(d, 30*time.Second)
}

// backoff: 200ms, 400ms, 800ms... plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
