package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/logger"
)

func jsonLogger(buf *bytes.Buffer, level string) *slog.Logger {
	return logger.NewWithWriter("search-service", level, logger.FormatJSON, buf)
}

// logEntries decodes every JSON line written to buf.
func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func findEntry(entries []map[string]any, msg string) map[string]any {
	for _, e := range entries {
		if e["msg"] == msg {
			return e
		}
	}
	return nil
}

// loggedRouter mounts the logging chain the services use.
func loggedRouter(buf *bytes.Buffer, status int) *chi.Mux {
	base := jsonLogger(buf, "debug")
	r := chi.NewRouter()
	r.Use(RequestLogging(base))
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {})
	r.With(TenantScope("tenant")).Get("/search-api/v1/search/{tenant}", func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("searching")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"data":{}}`))
	})
	return r
}

func TestRequestLogging_AssignsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	loggedRouter(&buf, http.StatusOK).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search-api/v1/search/demo?q=shoe", nil))

	id := rec.Header().Get(CorrelationIDHeader)
	require.NotEmpty(t, id)

	entries := logEntries(t, &buf)
	access := findEntry(entries, "http request")
	require.NotNil(t, access)
	assert.Equal(t, id, access["correlation_id"])
	assert.Equal(t, "q=shoe", access["query"])
	assert.Equal(t, float64(http.StatusOK), access["status"])
	assert.Equal(t, float64(len(`{"data":{}}`)), access["bytes"])
	assert.Equal(t, "INFO", access["level"])
	assert.Equal(t, "/search-api/v1/search/{tenant}", access["route"])
}

func TestRequestLogging_KeepsCallerCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/search-api/v1/search/demo", nil)
	req.Header.Set(CorrelationIDHeader, "storefront-123")
	rec := httptest.NewRecorder()
	loggedRouter(&buf, http.StatusOK).ServeHTTP(rec, req)

	assert.Equal(t, "storefront-123", rec.Header().Get(CorrelationIDHeader))
	handlerLog := findEntry(logEntries(t, &buf), "searching")
	require.NotNil(t, handlerLog)
	assert.Equal(t, "storefront-123", handlerLog["correlation_id"])
}

func TestRequestLogging_LevelByStatus(t *testing.T) {
	tests := []struct {
		path   string
		status int
		level  string
	}{
		{"/search-api/v1/search/demo", http.StatusOK, "INFO"},
		{"/search-api/v1/search/demo", http.StatusBadRequest, "WARN"},
		{"/search-api/v1/search/demo", http.StatusServiceUnavailable, "ERROR"},
		{"/health/live", http.StatusOK, "DEBUG"},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			loggedRouter(&buf, tt.status).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			access := findEntry(logEntries(t, &buf), "http request")
			require.NotNil(t, access)
			assert.Equal(t, tt.level, access["level"])
		})
	}
}

func TestTenantScope_TagsHandlerLogs(t *testing.T) {
	var buf bytes.Buffer
	var tenant string
	r := loggedRouter(&buf, http.StatusOK)
	r.With(TenantScope("tenant")).Get("/doc/{tenant}", func(w http.ResponseWriter, r *http.Request) {
		tenant = logger.TenantFromContext(r.Context())
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search-api/v1/search/outlet", nil))
	handlerLog := findEntry(logEntries(t, &buf), "searching")
	require.NotNil(t, handlerLog)
	assert.Equal(t, "outlet", handlerLog["tenant"])

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/doc/demo", nil))
	assert.Equal(t, "demo", tenant)
}

func TestTenantScope_WithoutParamPassesThrough(t *testing.T) {
	called := false
	r := chi.NewRouter()
	r.With(TenantScope("tenant")).Get("/search-api/v1/tenants", func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Empty(t, logger.TenantFromContext(r.Context()))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search-api/v1/tenants", nil))
	assert.True(t, called)
}

func TestAccessLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, accessLevel("/search-api/v1/search/a", http.StatusServiceUnavailable))
	assert.Equal(t, slog.LevelWarn, accessLevel("/search-api/v1/search/a", http.StatusBadRequest))
	assert.Equal(t, slog.LevelWarn, accessLevel("/health/ready", http.StatusNotFound))
	assert.Equal(t, slog.LevelDebug, accessLevel("/health/live", http.StatusOK))
	assert.Equal(t, slog.LevelDebug, accessLevel("/metrics", http.StatusOK))
	assert.Equal(t, slog.LevelInfo, accessLevel("/search-api/v1/search/a", http.StatusOK))
}
