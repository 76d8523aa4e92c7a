// Package translator calls a DeepL-style batch translation API.
package translator

import (
	"bytes"
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

// maxBatch is the provider's limit on texts per request.
const maxBatch = 50

type Client struct {
	base string
	key  string
	hc   *http.Client
	cb   *gobreaker.CircuitBreaker[[]string]
}

func New(baseURL, key string) (*Client, error) {
	if key == "" {
		return nil, errors.New("translation API key is required")
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		key:  key,
		hc:   &http.Client{Timeout: 20 * time.Second},
		cb:   observability.NewBreaker[[]string]("translate", 30*time.Second),
	}, nil
}

type translateRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate returns one translation per input, in input order. Inputs above the
// provider's batch limit are sent in consecutive chunks; any chunk failing fails the call.
func (c *Client) Translate(ctx context.Context, texts []string, lang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		chunk := texts[start:end]
		res, err := c.cb.Execute(func() ([]string, error) { return c.post(ctx, chunk, lang) })
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, texts []string, lang string) ([]string, error) {
	body, err := json.Marshal(translateRequest{Text: texts, TargetLang: strings.ToUpper(lang)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v2/translate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("translate", "/v2/translate", 0, time.Since(start))
		return nil, fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("translate", "/v2/translate", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("translate bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("translate decode: %w", err)
	}
	if len(out.Translations) != len(texts) {
		return nil, fmt.Errorf("translate: got %d translations for %d texts", len(out.Translations), len(texts))
	}
	res := make([]string, len(texts))
	for i, t := range out.Translations {
		res[i] = t.Text
	}
	return res, nil
}
