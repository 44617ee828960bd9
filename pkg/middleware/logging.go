package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/logger"
)

// CorrelationIDHeader carries the request correlation id in both directions.
const CorrelationIDHeader = "X-Correlation-ID"

// Probe and scrape paths are neither traced nor logged above debug.
var quietPrefixes = []string{"/health/", "/metrics"}

func isQuietPath(path string) bool {
	for _, p := range quietPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// RequestLogging assigns every request a correlation id, keeping one sent by
// the caller, and stores a request-scoped logger in the context. The logger
// carries correlation_id and, when Tracing runs first, trace_id and span_id;
// handlers get it back with logger.FromContext. One access log line is
// written per request once the handler returns.
func RequestLogging(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(CorrelationIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(CorrelationIDHeader, id)

			ctx := logger.WithCorrelationID(r.Context(), id)
			l := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, l)
			r = r.WithContext(ctx)

			sw := wrapWriter(w)
			next.ServeHTTP(sw, r)

			l.Log(ctx, accessLevel(r.URL.Path, sw.status), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routePattern(r)),
				slog.String("query", r.URL.RawQuery),
				slog.Int("status", sw.status),
				slog.Int("bytes", sw.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			)
		})
	}
}

func accessLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case isQuietPath(path):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
