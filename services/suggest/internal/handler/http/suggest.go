package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/httputil"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/pagination"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/domain"
)

// Suggester is the suggest service as seen by the HTTP layer.
type Suggester interface {
	Suggest(ctx context.Context, index, query string, limit int, filter string) ([]domain.Suggestion, error)
	Warmup(ctx context.Context, index string) error
	Destroy(index string) bool
}

// SuggestHandler handles HTTP requests for suggest endpoints.
type SuggestHandler struct {
	service Suggester
	logger  *slog.Logger
}

// NewSuggestHandler creates a new suggest HTTP handler.
func NewSuggestHandler(svc Suggester, logger *slog.Logger) *SuggestHandler {
	return &SuggestHandler{service: svc, logger: logger}
}

// DestroyResponse reports whether a live suggester was torn down.
type DestroyResponse struct {
	Index     string `json:"index"`
	Destroyed bool   `json:"destroyed"`
}

// Suggest handles GET /suggest-api/v1/{index}/suggest
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _, err := pagination.NonNegative(q, pagination.KeyLimit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	suggestions, err := h.service.Suggest(r.Context(), chi.URLParam(r, "index"), q.Get("userQuery"), limit, q.Get("filter"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: suggestions})
}

// Warmup handles POST /suggest-api/v1/{index}/warmup
func (h *SuggestHandler) Warmup(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Warmup(r.Context(), chi.URLParam(r, "index")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Destroy handles DELETE /suggest-api/v1/{index}
func (h *SuggestHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	index := chi.URLParam(r, "index")
	destroyed := h.service.Destroy(index)

	h.logger.InfoContext(r.Context(), "suggester destroy requested",
		slog.String("index", index),
		slog.Bool("destroyed", destroyed),
	)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: DestroyResponse{Index: index, Destroyed: destroyed}})
}
