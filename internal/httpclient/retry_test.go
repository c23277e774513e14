package httpclient

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	policy := NewRetryPolicy()

	tests := []struct {
		name       string
		attempt    int
		statusCode int
		err        error
		want       bool
	}{
		{"service unavailable", 0, 503, errors.New("x"), true},
		{"rate limited", 0, 429, errors.New("x"), true},
		{"not found", 0, 404, errors.New("x"), false},
		{"deadline", 0, 0, context.DeadlineExceeded, true},
		{"connection refused", 0, 0, &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"plain error", 0, 0, errors.New("boom"), false},
		{"last attempt", 2, 503, errors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ShouldRetry(tt.attempt, tt.statusCode, tt.err))
		})
	}
}

func TestRetryPolicy_CalculateBackoffIsCapped(t *testing.T) {
	policy := NewRetryPolicy()
	policy.InitialBackoff = time.Second
	policy.MaxBackoff = 4 * time.Second

	for attempt := 0; attempt < 10; attempt++ {
		backoff := policy.CalculateBackoff(attempt)
		assert.LessOrEqual(t, backoff, 5*time.Second)
		assert.Greater(t, backoff, time.Duration(0))
	}
}

func TestRetryPolicy_ExecuteWithRetryStopsOnCancel(t *testing.T) {
	policy := NewRetryPolicy()
	policy.InitialBackoff = time.Hour
	policy.MaxBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := policy.ExecuteWithRetry(ctx, arbor.NewLogger(), func() (int, error) {
		calls++
		cancel()
		return 503, errors.New("unavailable")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
