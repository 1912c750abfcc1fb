package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"time"
)

const (
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultBackoffFactor  = 2.0
)

// StatusError reports a non-2xx HTTP response from a source API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return http.StatusText(e.StatusCode) + ": " + e.Body
}

// Config encapsulates exponential backoff settings.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// Handler executes retryable operations with backoff. Each adapter owns its
// own handler so concurrent tickers never contend on shared retry state.
type Handler struct {
	cfg Config
}

// NewHandler constructs a handler with sane defaults.
func NewHandler(cfg Config) *Handler {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = defaultBackoffFactor
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Handler{cfg: cfg}
}

// Do executes fn with retries until it succeeds, exhausts attempts, or hits
// a non-retryable error. Validation failures are never retried because they
// never satisfy Retryable.
func (h *Handler) Do(ctx context.Context, fn func() error) error {
	var attempt int
	backoff := h.cfg.InitialBackoff

	for {
		err := fn()
		if err == nil {
			return nil
		}

		if !Retryable(err) || attempt >= h.cfg.MaxRetries {
			return err
		}
		attempt++

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		backoff = time.Duration(math.Min(
			float64(h.cfg.MaxBackoff),
			float64(backoff)*h.cfg.Multiplier,
		))
	}
}

// Retryable classifies an error as transient (timeouts, rate limits, 5xx)
// versus permanent.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusRequestTimeout,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Treat unknown transport errors as retryable to be safe.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return false
}
