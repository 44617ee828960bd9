package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetries(maxRetries int) Config {
	return Config{
		Timeout:         5 * time.Second,
		MaxRetries:      maxRetries,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    5 * time.Millisecond,
		MaxConnsPerHost: 10,
	}
}

// flakyServer answers the first failures requests with status, then 200.
func flakyServer(t *testing.T, failures int32, status int) (*atomic.Int32, string) {
	t.Helper()
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= failures {
			w.WriteHeader(status)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return &attempts, srv.URL
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "open-commerce-search", cfg.UserAgent)
	assert.Empty(t, cfg.BearerToken)
}

func TestPostJSON_SendsEncodedBodyAndDefaultHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, "ocs-seed", r.Header.Get("User-Agent"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"session":{"finalIndexName":"products"}}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	cfg := fastRetries(0)
	cfg.BearerToken = "s3cret"
	cfg.UserAgent = "ocs-seed"

	body := map[string]any{"session": map[string]string{"finalIndexName": "products"}}
	resp, err := New(cfg).PostJSON(context.Background(), srv.URL, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestDo_KeepsExplicitAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer other", r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	cfg := fastRetries(0)
	cfg.BearerToken = "default"
	req, err := http.NewRequest(http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer other")

	resp, err := New(cfg).Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestDo_RetriesTransientStatuses(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			attempts, url := flakyServer(t, 2, status)

			resp, err := New(fastRetries(3)).Get(context.Background(), url)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, int32(3), attempts.Load())
		})
	}
}

func TestDo_DoesNotRetryPermanentStatuses(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusConflict, http.StatusNotImplemented} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			attempts, url := flakyServer(t, 5, status)

			resp, err := New(fastRetries(3)).Get(context.Background(), url)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, status, resp.StatusCode)
			assert.Equal(t, int32(1), attempts.Load())
		})
	}
}

func TestDo_ReturnsLastResponseWhenRetriesRunOut(t *testing.T) {
	attempts, url := flakyServer(t, 10, http.StatusServiceUnavailable)

	resp, err := New(fastRetries(2)).Get(context.Background(), url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestPostJSON_RetryResendsBody(t *testing.T) {
	var attempts atomic.Int32
	var lastBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody.Store(string(body))
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := New(fastRetries(2)).PostJSON(context.Background(), srv.URL, map[string]any{"documents": []any{}})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, int32(2), attempts.Load())
	assert.JSONEq(t, `{"documents":[]}`, lastBody.Load().(string))
}

func TestDo_HonoursRetryAfterCappedByMaxWait(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	start := time.Now()
	resp, err := New(fastRetries(1)).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDo_StopsWaitingWhenContextEnds(t *testing.T) {
	_, url := flakyServer(t, 100, http.StatusServiceUnavailable)

	cfg := fastRetries(10)
	cfg.RetryWaitMin = 200 * time.Millisecond
	cfg.RetryWaitMax = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(cfg).Get(ctx, url)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGet_InvalidURL(t *testing.T) {
	_, err := New(fastRetries(0)).Get(context.Background(), "://invalid")
	require.Error(t, err)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.True(t, isRetryableError(context.DeadlineExceeded))
	assert.True(t, isRetryableError(&timeoutError{}))
}

type timeoutError struct{}

func (*timeoutError) Error() string   { return "i/o timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }

func TestBackoff_GrowsAndCaps(t *testing.T) {
	c := New(Config{RetryWaitMin: 100 * time.Millisecond, RetryWaitMax: time.Second})

	first := c.backoff(0)
	assert.GreaterOrEqual(t, first, 75*time.Millisecond)
	assert.LessOrEqual(t, first, 125*time.Millisecond)

	capped := c.backoff(10)
	assert.GreaterOrEqual(t, capped, 750*time.Millisecond)
	assert.LessOrEqual(t, capped, 1250*time.Millisecond)
}

func TestAddJitter(t *testing.T) {
	const base = time.Second
	var lo, hi time.Duration
	for i := 0; i < 200; i++ {
		d := addJitter(base)
		require.GreaterOrEqual(t, d, 750*time.Millisecond)
		require.LessOrEqual(t, d, 1250*time.Millisecond)
		if i == 0 || d < lo {
			lo = d
		}
		if i == 0 || d > hi {
			hi = d
		}
	}
	assert.Greater(t, hi-lo, 50*time.Millisecond)
	assert.Equal(t, time.Duration(0), addJitter(0))
}
