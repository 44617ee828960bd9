package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBreaker(t *testing.T, timeout time.Duration) *BreakerTransport {
	t.Helper()
	cfg := CircuitBreakerConfig{
		Name:         t.Name(),
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      timeout,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
	return NewBreakerTransport(New(Config{Timeout: 5 * time.Second, MaxConnsPerHost: 10}), cfg, testLogger())
}

// clusterStub answers every request with the current status and counts hits.
type clusterStub struct {
	status atomic.Int32
	hits   atomic.Int32
}

func (c *clusterStub) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	c.hits.Add(1)
	w.WriteHeader(int(c.status.Load()))
	_, _ = w.Write([]byte(`{"acknowledged":true}`))
}

func newClusterStub(t *testing.T, status int) (*clusterStub, string) {
	t.Helper()
	stub := &clusterStub{}
	stub.status.Store(int32(status))
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return stub, srv.URL
}

func roundTrip(t *testing.T, bt *BreakerTransport, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	resp, err := bt.RoundTrip(req)
	if resp != nil {
		t.Cleanup(func() { _ = resp.Body.Close() })
	}
	return resp, err
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("elasticsearch")
	assert.Equal(t, "elasticsearch", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestBreakerTransport_PassesHealthyResponses(t *testing.T) {
	_, url := newClusterStub(t, http.StatusOK)
	bt := newTestBreaker(t, time.Minute)

	resp, err := roundTrip(t, bt, url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, bt.State())
	assert.NoError(t, bt.Check(context.Background()))
}

func TestBreakerTransport_FailureStatuses(t *testing.T) {
	tests := []struct {
		status  int
		failure bool
	}{
		{http.StatusOK, false},
		{http.StatusNotFound, false},
		{http.StatusBadRequest, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusNotImplemented, false},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.failure, isFailureStatus(tt.status), "status %d", tt.status)
	}
}

func TestBreakerTransport_ServerErrorReturnsStatusError(t *testing.T) {
	_, url := newClusterStub(t, http.StatusServiceUnavailable)
	bt := newTestBreaker(t, time.Minute)

	_, err := roundTrip(t, bt, url)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "acknowledged")
}

func TestBreakerTransport_OpensAndRejectsWithoutCallingBackend(t *testing.T) {
	stub, url := newClusterStub(t, http.StatusInternalServerError)
	bt := newTestBreaker(t, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := roundTrip(t, bt, url)
		require.Error(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, bt.State())
	hits := stub.hits.Load()

	for i := 0; i < 3; i++ {
		_, err := roundTrip(t, bt, url)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, hits, stub.hits.Load())
	assert.ErrorIs(t, bt.Check(context.Background()), ErrCircuitOpen)
}

func TestBreakerTransport_ClientErrorsDoNotTrip(t *testing.T) {
	_, url := newClusterStub(t, http.StatusNotFound)
	bt := newTestBreaker(t, time.Minute)

	for i := 0; i < 5; i++ {
		resp, err := roundTrip(t, bt, url)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, bt.State())
}

func TestBreakerTransport_RecoversAfterTimeout(t *testing.T) {
	stub, url := newClusterStub(t, http.StatusInternalServerError)
	bt := newTestBreaker(t, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		_, _ = roundTrip(t, bt, url)
	}
	require.Equal(t, gobreaker.StateOpen, bt.State())

	time.Sleep(150 * time.Millisecond)
	stub.status.Store(http.StatusOK)

	resp, err := roundTrip(t, bt, url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, bt.State())
}

func TestBreakerTransport_CancelledCallsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	bt := newTestBreaker(t, time.Minute)

	for i := 0; i < 4; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
		require.NoError(t, err)
		go func() {
			time.Sleep(5 * time.Millisecond)
			cancel()
		}()
		_, err = bt.Do(ctx, req)
		require.Error(t, err)
		cancel()
	}
	assert.Equal(t, gobreaker.StateClosed, bt.State())
}
