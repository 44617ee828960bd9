package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/health"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/middleware"
)

// RouterConfig carries the settings of the HTTP surface.
type RouterConfig struct {
	// IndexerToken and IndexerJWTSecret protect the indexer endpoints. With
	// neither set they are not mounted.
	IndexerToken     string
	IndexerJWTSecret string
	PprofCIDRs       []string
	CORS             middleware.CORSConfig
	// SearchMaxAge is the Cache-Control max age of search responses.
	SearchMaxAge     time.Duration
}

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	searchHandler *SearchHandler,
	indexerHandler *IndexerHandler,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("search"))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("search"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	// Search API endpoints
	r.Route("/search-api/v1", func(r chi.Router) {
		r.Use(middleware.CacheControl(cfg.SearchMaxAge))

		r.Get("/tenants", searchHandler.Tenants)
		r.With(middleware.TenantScope("tenant")).Get("/search/{tenant}", searchHandler.Search)
		r.With(middleware.TenantScope("tenant")).Get("/doc/{tenant}/{id}", searchHandler.Document)
	})

	// Indexer API endpoints
	if cfg.IndexerToken == "" && cfg.IndexerJWTSecret == "" {
		logger.Warn("indexer api disabled: no token or signing secret configured")
		return r
	}
	validate := middleware.AnyOf(
		middleware.StaticTokens(map[string]string{"indexer": cfg.IndexerToken}),
		middleware.JWTTokens(cfg.IndexerJWTSecret),
	)
	r.Route("/indexer-api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(validate))
		r.Use(ContentTypeJSON)

		r.Post("/full/start/{index}", indexerHandler.Start)
		r.Post("/full/add", indexerHandler.Add)
		r.Post("/full/done", indexerHandler.Done)
		r.Post("/full/cancel", indexerHandler.Cancel)
		r.Put("/update/{index}", indexerHandler.Upsert)
		r.Delete("/update/{index}", indexerHandler.Delete)
	})

	return r
}
