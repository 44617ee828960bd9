package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig configures a BreakerTransport.
type CircuitBreakerConfig struct {
	// Name labels the breaker's metrics and log lines, usually the backend.
	Name string

	// MaxRequests is the number of trial requests let through while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once this share of requests has failed.
	FailureRatio float64

	// MinRequests must be seen before FailureRatio is evaluated.
	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns the settings used for the search backend.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = gobreaker.ErrOpenState

// StatusError is a backend response counted as a failure. Its body is
// kept so callers can still log what the backend said.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Body)
}

var (
	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ocs",
			Name:      "backend_breaker_state",
			Help:      "State of the backend circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"backend"},
	)

	breakerRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocs",
			Name:      "backend_breaker_rejected_total",
			Help:      "Requests rejected without reaching the backend because the breaker was open",
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(breakerState, breakerRejected)
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// isFailureStatus reports whether a response means the backend is in
// trouble: server errors other than 501, and 429 when it sheds load.
func isFailureStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= http.StatusInternalServerError && code != http.StatusNotImplemented
}

// BreakerTransport is an http.RoundTripper that sends requests through a
// retrying Client guarded by a circuit breaker. SDK clients that accept a
// transport, such as the Elasticsearch client, use it directly.
type BreakerTransport struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
	name    string
}

var _ http.RoundTripper = (*BreakerTransport)(nil)

// NewBreakerTransport wraps client with a circuit breaker.
func NewBreakerTransport(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *BreakerTransport {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// A cancelled caller says nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("backend circuit breaker state change",
				slog.String("backend", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerTransport{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:  logger,
		name:    cfg.Name,
	}
}

// Do sends req through the breaker. Failure statuses come back as a
// *StatusError with the response body consumed and closed.
func (t *BreakerTransport) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if isFailureStatus(resp.StatusCode) {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		}
		return resp, nil
	})
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		breakerRejected.WithLabelValues(t.name).Inc()
		t.logger.DebugContext(ctx, "request rejected by open breaker", slog.String("backend", t.name))
	}
	return resp, err
}

// RoundTrip implements http.RoundTripper.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.Do(req.Context(), req)
}

// State returns the current breaker state.
func (t *BreakerTransport) State() gobreaker.State {
	return t.breaker.State()
}

// Check is a health checker that fails while the breaker is open.
func (t *BreakerTransport) Check(context.Context) error {
	if t.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%s: %w", t.name, ErrCircuitOpen)
	}
	return nil
}
