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
	PprofCIDRs []string
	CORS       middleware.CORSConfig
	RateLimit  middleware.RateLimitConfig
}

// NewRouter creates a chi router with all suggest service routes registered.
func NewRouter(
	suggestHandler *SuggestHandler,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("suggest"))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(10 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("suggest"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	// Suggest API endpoints
	r.Route("/suggest-api/v1/{index}", func(r chi.Router) {
		r.With(
			middleware.RateLimit(cfg.RateLimit, logger),
			middleware.CacheControl(0),
		).Get("/suggest", suggestHandler.Suggest)
		r.Post("/warmup", suggestHandler.Warmup)
		r.Delete("/", suggestHandler.Destroy)
	})

	return r
}
