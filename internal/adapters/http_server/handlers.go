package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"dubaihaus/internal/domain"
	"dubaihaus/internal/validation"
)

type Listings interface {
	QueryListings(ctx context.Context, f domain.ListingFilters) (domain.ListingsPage, error)
	GetProject(ctx context.Context, id int64) (domain.ProjectView, error)
}

type Syncer interface {
	SyncCatalog(ctx context.Context) (domain.SyncResult, error)
}

type Rates interface {
	GetRate(ctx context.Context, base, target string) (float64, error)
	ApplyCurrency(ctx context.Context, listings []domain.ProjectView, target string) []domain.ProjectView
}

type Translator interface {
	TranslateBatch(ctx context.Context, texts []string, lang string) []string
}

type Taxonomy interface {
	ListTaxonomy(ctx context.Context, kind domain.TaxonomyKind) []domain.TaxonomyItem
}

type Handlers struct {
	Listings   Listings
	Sync       Syncer
	Rates      Rates
	Translator Translator
	Taxonomy   Taxonomy
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type viewParams struct {
	Currency string `json:"currency" validate:"omitempty,currency"`
	Lang     string `json:"lang" validate:"omitempty,min=2,max=8"`
}

type translateRequest struct {
	Texts []string `json:"texts" validate:"required,max=500,dive,max=5000"`
	Lang  string   `json:"lang" validate:"required,min=2,max=8"`
}

type translateResponse struct {
	Texts []string `json:"texts"`
}

type rateResponse struct {
	Base   string  `json:"base"`
	Target string  `json:"target"`
	Rate   float64 `json:"rate"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(readTimeout))
		r.Get("/v1/listings", h.listListings)
		r.Get("/v1/listings/{id}", h.getListing)
		r.Get("/v1/rates/{base}/{target}", h.getRate)
		r.Post("/v1/translate", h.translate)
		r.Get("/v1/taxonomy/{kind}", h.listTaxonomy)
	})
	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(adminTimeout))
		r.Post("/v1/admin/sync", h.runSync)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeETagged serves v with a weak ETag and answers 304 when the client already has it.
func writeETagged(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("marshal response failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("write response body failed")
	}
}

func invalid(w http.ResponseWriter, err error) {
	writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
}

func readViewParams(r *http.Request) (viewParams, error) {
	p := viewParams{
		Currency: strings.TrimSpace(r.URL.Query().Get("currency")),
		Lang:     strings.TrimSpace(r.URL.Query().Get("lang")),
	}
	return p, validation.Struct(p)
}

// present applies the requested currency and translates titles.
func (h *Handlers) present(ctx context.Context, views []domain.ProjectView, p viewParams) []domain.ProjectView {
	if p.Currency != "" && h.Rates != nil {
		views = h.Rates.ApplyCurrency(ctx, views, p.Currency)
	}
	if p.Lang != "" && h.Translator != nil && len(views) > 0 {
		titles := make([]string, len(views))
		for i, v := range views {
			titles[i] = v.Title
		}
		titles = h.Translator.TranslateBatch(ctx, titles, p.Lang)
		out := make([]domain.ProjectView, len(views))
		copy(out, views)
		for i := range out {
			out[i].Title = titles[i]
		}
		views = out
	}
	return views
}

func (h *Handlers) listListings(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r.URL.Query())
	if err != nil {
		invalid(w, err)
		return
	}
	if err := validation.Struct(f); err != nil {
		invalid(w, err)
		return
	}
	vp, err := readViewParams(r)
	if err != nil {
		invalid(w, err)
		return
	}

	page, err := h.Listings.QueryListings(r.Context(), f)
	if err != nil {
		log.Error().Err(err).Msg("query listings failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "listings unavailable")
		return
	}
	page.Results = h.present(r.Context(), page.Results, vp)
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) getListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	vp, err := readViewParams(r)
	if err != nil {
		invalid(w, err)
		return
	}

	v, err := h.Listings.GetProject(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "listing not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("get listing failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "listing unavailable")
		return
	}
	writeETagged(w, r, h.present(r.Context(), []domain.ProjectView{v}, vp)[0])
}

func (h *Handlers) runSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sync.SyncCatalog(r.Context())
	switch {
	case errors.Is(err, domain.ErrCatalogUnavailable):
		writeProblem(w, http.StatusBadGateway, "Catalog Unavailable", err.Error())
	case err != nil:
		writeProblem(w, http.StatusServiceUnavailable, "Sync Interrupted", err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *Handlers) getRate(w http.ResponseWriter, r *http.Request) {
	base := strings.ToUpper(chi.URLParam(r, "base"))
	target := strings.ToUpper(chi.URLParam(r, "target"))
	rate, err := h.Rates.GetRate(r.Context(), base, target)
	switch {
	case errors.Is(err, domain.ErrInvalidCurrency):
		writeProblem(w, http.StatusBadRequest, "Invalid Currency", err.Error())
	case err != nil:
		writeProblem(w, http.StatusServiceUnavailable, "Rate Unavailable", err.Error())
	default:
		writeJSON(w, http.StatusOK, rateResponse{Base: base, Target: target, Rate: rate})
	}
}

func (h *Handlers) translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		invalid(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{Texts: h.Translator.TranslateBatch(r.Context(), req.Texts, req.Lang)})
}

func (h *Handlers) listTaxonomy(w http.ResponseWriter, r *http.Request) {
	kind, ok := domain.ParseTaxonomyKind(chi.URLParam(r, "kind"))
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown taxonomy")
		return
	}
	writeETagged(w, r, h.Taxonomy.ListTaxonomy(r.Context(), kind))
}
