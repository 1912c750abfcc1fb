package marketdata

import (
	"context"
	"time"
)

// Bar is one raw OHLCV bar as decoded from a source, before validation and
// normalization into the canonical model.
type Bar struct {
	Time   time.Time // bar open time, already UTC
	Ticker string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Provider exposes fixed-granularity OHLCV retrieval over a bounded range.
type Provider interface {
	// FetchBars returns every bar with open time inside [from, to) for the
	// ticker. Splitting the range into source-sized requests is the
	// provider's job; callers see one flat, time-ordered slice.
	FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]Bar, error)
}
