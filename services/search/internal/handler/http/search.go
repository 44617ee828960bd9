package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/httputil"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/params"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/searcher"
)

// SearcherProvider hands out the searcher of a tenant.
type SearcherProvider interface {
	Get(ctx context.Context, tenant string) (*searcher.Searcher, error)
}

// TenantResolver lists the configured tenants and resolves their
// configuration.
type TenantResolver interface {
	Tenants() []string
	Resolve(tenant string) (*domain.SearchConfiguration, error)
}

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	searchers SearcherProvider
	tenants   TenantResolver
	logger    *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(searchers SearcherProvider, tenants TenantResolver, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searchers: searchers,
		tenants:   tenants,
		logger:    logger,
	}
}

// Search handles GET /search-api/v1/search/{tenant}. Parameters are
// validated before the tenant's searcher is built.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	cfg, err := h.tenants.Resolve(tenant)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	p, err := params.Parse(r.URL.Query(), cfg.Fields)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	s, err := h.searchers.Get(r.Context(), tenant)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := s.Search(r.Context(), p)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Tenants handles GET /search-api/v1/tenants
func (h *SearchHandler) Tenants(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.tenants.Tenants()})
}

// Document handles GET /search-api/v1/doc/{tenant}/{id}
func (h *SearchHandler) Document(w http.ResponseWriter, r *http.Request) {
	s, err := h.searchers.Get(r.Context(), chi.URLParam(r, "tenant"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	doc, err := s.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: doc})
}
