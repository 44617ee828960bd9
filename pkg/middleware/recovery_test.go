package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecovery(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		wantCode    int
		wantOpaque  bool
		wantStarted bool
	}{
		{
			name: "panic before response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("index out of range in facet builder")
			},
			wantCode:   http.StatusInternalServerError,
			wantOpaque: true,
		},
		{
			name: "panic with error value",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic(errors.New("facet builder: nil bucket"))
			},
			wantCode:   http.StatusInternalServerError,
			wantOpaque: true,
		},
		{
			name: "panic after headers",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				panic("facet builder failed mid-stream")
			},
			wantCode:    http.StatusAccepted,
			wantStarted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			l := slog.New(slog.NewJSONHandler(&logs, nil))
			before := testutil.ToFloat64(panicsRecovered)

			rec := httptest.NewRecorder()
			Recovery(l)(tt.handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search-api/v1/search/acme", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.NotContains(t, rec.Body.String(), "facet builder")
			if tt.wantOpaque {
				assert.Contains(t, rec.Body.String(), "Error reference")
			} else {
				assert.Empty(t, rec.Body.String())
			}

			assert.Equal(t, before+1, testutil.ToFloat64(panicsRecovered))
			assert.Contains(t, logs.String(), "panic recovered")
			assert.Contains(t, logs.String(), "facet builder")
			if tt.wantStarted {
				assert.Contains(t, logs.String(), `"response_started":true`)
			}
		})
	}
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	h := Recovery(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRecovery_PassesThrough(t *testing.T) {
	h := Recovery(slog.New(slog.DiscardHandler))(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
