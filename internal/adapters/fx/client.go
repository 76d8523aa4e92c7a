// Package fx fetches conversion-rate snapshots from an exchangerate-api style provider.
package fx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"dubaihaus/internal/adapters/observability"
)

const providerName = "exchangerate-api"

type snapshot struct {
	base  string
	rates map[string]float64
}

type Client struct {
	base     string
	key      string
	currency string // fixed provider base
	hc       *http.Client
	cb       *gobreaker.CircuitBreaker[snapshot]
}

func New(baseURL, key, baseCurrency string) (*Client, error) {
	if key == "" {
		return nil, errors.New("fx API key is required")
	}
	if baseCurrency == "" {
		baseCurrency = "AED"
	}
	return &Client{
		base:     strings.TrimRight(baseURL, "/"),
		key:      key,
		currency: strings.ToUpper(baseCurrency),
		hc:       &http.Client{Timeout: 20 * time.Second},
		cb:       observability.NewBreaker[snapshot]("fx", 30*time.Second),
	}, nil
}

func (c *Client) Name() string { return providerName }

type latestResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// Latest returns every conversion rate against the provider's base currency.
func (c *Client) Latest(ctx context.Context) (string, map[string]float64, error) {
	s, err := c.cb.Execute(func() (snapshot, error) { return c.fetch(ctx) })
	if err != nil {
		return "", nil, err
	}
	return s.base, s.rates, nil
}

func (c *Client) fetch(ctx context.Context) (snapshot, error) {
	u := fmt.Sprintf("%s/%s/latest/%s", c.base, c.key, c.currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return snapshot{}, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("fx", "/latest", 0, time.Since(start))
		return snapshot{}, fmt.Errorf("fx request: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("fx", "/latest", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return snapshot{}, fmt.Errorf("fx bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return snapshot{}, fmt.Errorf("fx decode: %w", err)
	}
	if out.Result != "success" {
		return snapshot{}, fmt.Errorf("fx result %q: %s", out.Result, out.ErrorType)
	}
	if len(out.ConversionRates) == 0 {
		return snapshot{}, errors.New("fx: empty conversion_rates")
	}
	base := strings.ToUpper(out.BaseCode)
	if base == "" {
		base = c.currency
	}
	rates := make(map[string]float64, len(out.ConversionRates)+1)
	for k, v := range out.ConversionRates {
		rates[strings.ToUpper(k)] = v
	}
	rates[base] = 1
	return snapshot{base: base, rates: rates}, nil
}
