package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_DelayStaysInsideJitterBand(t *testing.T) {
	p := retryPolicy{attempts: 4, base: 100 * time.Millisecond, jitter: 0.25}

	for attempt, nominal := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond} {
		lo := nominal * 3 / 4
		hi := nominal * 5 / 4
		for range 50 {
			d := p.delay(attempt)
			assert.True(t, d >= lo && d <= hi, "attempt %d: %v outside [%v, %v]", attempt, d, lo, hi)
		}
	}
	assert.Equal(t, 100*time.Millisecond, retryPolicy{base: 100 * time.Millisecond}.delay(-3))
}

func TestRetryPolicy_Run(t *testing.T) {
	transient := errors.New("dial tcp 10.0.0.7:6379: connection refused")
	fatal := errors.New(`relation "tenant_settings" does not exist`)

	tests := []struct {
		name      string
		policy    retryPolicy
		failures  []error
		wantCalls int
		wantErr   error
		wantMsg   string
	}{
		{
			name:      "first call succeeds",
			policy:    retryPolicy{attempts: 3, base: time.Millisecond},
			wantCalls: 1,
		},
		{
			name:      "recovers after transient failures",
			policy:    retryPolicy{attempts: 3, base: time.Millisecond},
			failures:  []error{transient, transient},
			wantCalls: 3,
		},
		{
			name:      "gives up when attempts run out",
			policy:    retryPolicy{attempts: 2, base: time.Millisecond},
			failures:  []error{transient, transient, transient},
			wantCalls: 2,
			wantErr:   transient,
			wantMsg:   "connect to redis failed after 2 attempts",
		},
		{
			name:      "non-retryable error returns at once",
			policy:    retryPolicy{attempts: 3, base: time.Millisecond, retryable: isConnectionError},
			failures:  []error{fatal},
			wantCalls: 1,
			wantErr:   fatal,
			wantMsg:   "tenant_settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := tt.policy.run(context.Background(), "connect to redis", nil, func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestRetryPolicy_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := startupRetry.run(ctx, "connect to postgres", nil, func() error {
		calls++
		return errors.New("connection refused")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "gave up after attempt 1")
	assert.Equal(t, 1, calls)
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp 127.0.0.1:5432: connection refused"), true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("write: broken pipe"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("could not connect to server"), true},
		{errors.New(`syntax error at or near "INDEXX"`), false},
		{errors.New("duplicate key value violates unique constraint"), false},
		{errors.New(`relation "schema_migrations" does not exist`), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isConnectionError(tt.err), "%v", tt.err)
	}
}
