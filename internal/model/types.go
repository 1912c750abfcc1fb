package model

import (
	"fmt"
	"strings"
	"time"
)

// NewsEvent is a canonical, UTC-normalized financial news event. Rows are
// immutable after insertion: re-ingesting the same event_id never alters
// the stored row.
type NewsEvent struct {
	EventID     string    `db:"event_id"`
	Ticker      string    `db:"ticker"`
	PublishedAt time.Time `db:"published_at"`
	Headline    string    `db:"headline"`
	Source      string    `db:"source"`
	// Sentiment is derived by the scorer, never supplied by the source.
	// Nil means the scorer was not applied to this event.
	Sentiment *float64 `db:"sentiment_score"`
}

// Validate checks the invariants the storage layer relies on.
func (e *NewsEvent) Validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("news event: event_id is required")
	}
	if strings.TrimSpace(e.Ticker) == "" {
		return fmt.Errorf("news event: ticker is required")
	}
	if e.PublishedAt.IsZero() {
		return fmt.Errorf("news event %s: published_at is required", e.EventID)
	}
	if strings.TrimSpace(e.Headline) == "" {
		return fmt.Errorf("news event %s: headline is required", e.EventID)
	}
	if e.Sentiment != nil && (*e.Sentiment < -1.0 || *e.Sentiment > 1.0) {
		return fmt.Errorf("news event %s: sentiment %f outside [-1,1]", e.EventID, *e.Sentiment)
	}
	return nil
}

// MarketTick is one fixed-granularity OHLCV bar keyed by (time, ticker).
// Unlike events, ticks are replaced on conflict so corrected prints win.
type MarketTick struct {
	Time   time.Time `db:"time"`
	Ticker string    `db:"ticker"`
	Open   float64   `db:"open"`
	High   float64   `db:"high"`
	Low    float64   `db:"low"`
	Close  float64   `db:"close"`
	Volume int64     `db:"volume"`
}

// Validate enforces the OHLC invariant: low <= open,close <= high.
// Violating ticks are rejected, never stored.
func (t *MarketTick) Validate() error {
	if strings.TrimSpace(t.Ticker) == "" {
		return fmt.Errorf("market tick: ticker is required")
	}
	if t.Time.IsZero() {
		return fmt.Errorf("market tick %s: time is required", t.Ticker)
	}
	if t.High < t.Low {
		return fmt.Errorf("market tick %s@%s: high %f below low %f", t.Ticker, t.Time.Format(time.RFC3339), t.High, t.Low)
	}
	if t.Open < t.Low || t.Open > t.High {
		return fmt.Errorf("market tick %s@%s: open %f outside [low, high]", t.Ticker, t.Time.Format(time.RFC3339), t.Open)
	}
	if t.Close < t.Low || t.Close > t.High {
		return fmt.Errorf("market tick %s@%s: close %f outside [low, high]", t.Ticker, t.Time.Format(time.RFC3339), t.Close)
	}
	if t.Volume < 0 {
		return fmt.Errorf("market tick %s@%s: negative volume %d", t.Ticker, t.Time.Format(time.RFC3339), t.Volume)
	}
	return nil
}

// VolatilityImpact is the derived per-event market reaction. It is computed
// on the read path, never stored as a base entity. Nil Volatility and
// VolumeSpike mean "no market data in the window", which is distinct from a
// measured zero.
type VolatilityImpact struct {
	EventID     string    `db:"event_id"`
	Ticker      string    `db:"ticker"`
	PublishedAt time.Time `db:"published_at"`
	Headline    string    `db:"headline"`
	Sentiment   *float64  `db:"sentiment_score"`
	Volatility  *float64  `db:"volatility_window"`
	VolumeSpike *float64  `db:"volume_spike"`
	TickCount   int       `db:"tick_count"`
}

// HasData reports whether any ticks fell inside the event's window.
func (v *VolatilityImpact) HasData() bool {
	return v.TickCount > 0
}
