package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &StatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"request timeout", &StatusError{StatusCode: http.StatusRequestTimeout}, true},
		{"internal error", &StatusError{StatusCode: http.StatusInternalServerError}, true},
		{"bad gateway", &StatusError{StatusCode: http.StatusBadGateway}, true},
		{"unavailable", &StatusError{StatusCode: http.StatusServiceUnavailable}, true},
		{"unauthorized", &StatusError{StatusCode: http.StatusUnauthorized}, false},
		{"not found", &StatusError{StatusCode: http.StatusNotFound}, false},
		{"bad request", &StatusError{StatusCode: http.StatusBadRequest}, false},
		{"wrapped status", fmt.Errorf("fetch page: %w", &StatusError{StatusCode: http.StatusGatewayTimeout}), true},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"net timeout", timeoutErr{}, true},
		{"dial refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"plain error", errors.New("bad payload"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Retryable(tc.err))
		})
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	h := NewHandler(Config{MaxRetries: 3, InitialBackoff: time.Millisecond})
	calls := 0
	err := h.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &StatusError{StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	h := NewHandler(Config{MaxRetries: 5, InitialBackoff: time.Millisecond})
	calls := 0
	err := h.Do(context.Background(), func() error {
		calls++
		return &StatusError{StatusCode: http.StatusUnauthorized, Body: "bad token"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "permanent errors must not be retried")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	h := NewHandler(Config{MaxRetries: 2, InitialBackoff: time.Millisecond})
	calls := 0
	err := h.Do(context.Background(), func() error {
		calls++
		return &StatusError{StatusCode: http.StatusBadGateway}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls, "initial attempt plus MaxRetries")
}

func TestDo_ZeroRetriesMeansSingleAttempt(t *testing.T) {
	h := NewHandler(Config{MaxRetries: 0})
	calls := 0
	err := h.Do(context.Background(), func() error {
		calls++
		return &StatusError{StatusCode: http.StatusBadGateway}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_HonorsContextDuringBackoff(t *testing.T) {
	h := NewHandler(Config{MaxRetries: 10, InitialBackoff: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := h.Do(ctx, func() error {
		calls++
		return &StatusError{StatusCode: http.StatusBadGateway}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during backoff must stop further attempts")
}
