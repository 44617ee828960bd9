package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/logger"
)

// TenantScope reads the named chi URL parameter (tenant or suggest index),
// stores it in the context, tags the active span with it, and adds it to the
// request-scoped logger. Mount it with r.With on routes that carry the param.
func TenantScope(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := chi.URLParam(r, param)
			if tenant == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := logger.WithTenant(r.Context(), tenant)
			trace.SpanFromContext(ctx).SetAttributes(attribute.String("ocs.tenant", tenant))
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("tenant", tenant)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
