package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/health"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/httputil"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/middleware"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/service"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/suggester"
)

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

var testRecords = map[string][]domain.Record{
	"products": {
		{Label: "Nike", Weight: 90, Payload: map[string]string{"type": "brand"}},
		{Label: "Nightwear", Weight: 20, Tags: []string{"category"}},
	},
}

func newTestRouter(t *testing.T, rl middleware.RateLimitConfig) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := suggester.NewManager(func(_ context.Context, name string) (*suggester.QuerySuggester, error) {
		idx := suggester.NewMemoryIndex(testRecords[name], language.English)
		return suggester.New(name, idx, language.English, logger), nil
	}, logger)
	svc := service.NewSuggestService(m, time.Minute, logger)
	t.Cleanup(m.Close)

	return NewRouter(NewSuggestHandler(svc, logger), health.NewHandler(), RouterConfig{RateLimit: rl}, logger)
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestSuggest(t *testing.T) {
	h := newTestRouter(t, middleware.RateLimitConfig{})

	w, env := do(t, h, http.MethodGet, "/suggest-api/v1/products/suggest?userQuery=ni&limit=5")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var got []domain.Suggestion
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Nike", got[0].Label)
	assert.Equal(t, "brand", got[0].Type)
	assert.Equal(t, "90", got[0].Payload["weight"])
	assert.Equal(t, "Nightwear", got[1].Label)
}

func TestSuggest_TagFilter(t *testing.T) {
	h := newTestRouter(t, middleware.RateLimitConfig{})

	w, env := do(t, h, http.MethodGet, "/suggest-api/v1/products/suggest?userQuery=ni&filter=category")
	require.Equal(t, http.StatusOK, w.Code)

	var got []domain.Suggestion
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Nightwear", got[0].Label)
}

func TestSuggest_NoMatchesIsEmptyList(t *testing.T) {
	h := newTestRouter(t, middleware.RateLimitConfig{})

	w, env := do(t, h, http.MethodGet, "/suggest-api/v1/unknown/suggest?userQuery=ni")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestSuggest_InvalidLimit(t *testing.T) {
	h := newTestRouter(t, middleware.RateLimitConfig{})

	for _, limit := range []string{"abc", "-1", "101"} {
		w, env := do(t, h, http.MethodGet, "/suggest-api/v1/products/suggest?userQuery=ni&limit="+limit)
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
		require.NotNil(t, env.Error, limit)
		assert.Equal(t, "INVALID_PARAMETER", env.Error.Code)
	}
}

func TestSuggest_RateLimited(t *testing.T) {
	h := newTestRouter(t, middleware.RateLimitConfig{Service: "suggest", RequestsPerSecond: 0.001, Burst: 1})

	w, _ := do(t, h, http.MethodGet, "/suggest-api/v1/products/suggest?userQuery=ni")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, h, http.MethodGet, "/suggest-api/v1/products/suggest?userQuery=ni")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)

	// Only the suggest endpoint is limited.
	w, _ = do(t, h, http.MethodPost, "/suggest-api/v1/products/warmup")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestWarmupAndDestroy(t *testing.T) {
	h := newTestRouter(t, middleware.RateLimitConfig{})

	w, _ := do(t, h, http.MethodPost, "/suggest-api/v1/products/warmup")
	require.Equal(t, http.StatusNoContent, w.Code)

	w, env := do(t, h, http.MethodDelete, "/suggest-api/v1/products")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"index":"products","destroyed":true}`, string(env.Data))

	w, env = do(t, h, http.MethodDelete, "/suggest-api/v1/products")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"index":"products","destroyed":false}`, string(env.Data))
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, middleware.RateLimitConfig{})

	w, _ := do(t, h, http.MethodGet, "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
}
