package impact

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/cache"

	cachekeys "github.com/smabbasht/AINewsQuake/internal/cache"
	"github.com/smabbasht/AINewsQuake/internal/model"
)

const (
	// Window is the post-event span over which the market reaction is
	// measured. Bars stamped exactly at publication are excluded; the
	// window is (published_at, published_at + Window].
	Window = 15 * time.Minute

	// baselineBars is how many pre-event minute bars feed the volume
	// baseline: two trading hours.
	baselineBars = 120
)

// Store is the slice of the storage layer the aggregator reads through.
type Store interface {
	EventsForTickers(ctx context.Context, tickers []string, from, to time.Time) ([]model.NewsEvent, error)
	TicksInWindow(ctx context.Context, ticker string, after, until time.Time) ([]model.MarketTick, error)
	TicksBefore(ctx context.Context, ticker string, cutoff time.Time, limit int) ([]model.MarketTick, error)
}

// Aggregator computes per-event volatility impact on the read path. Nothing
// here is persisted: impacts are always derived from current base rows, so
// re-ingested ticks immediately change what a query reports.
type Aggregator struct {
	store Store
	cache cache.Cache
	ttl   time.Duration
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithCache caches query results in Redis for the given TTL.
func WithCache(c cache.Cache, ttl time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		a.cache = c
		a.ttl = ttl
	}
}

// NewAggregator wires an aggregator over the store.
func NewAggregator(store Store, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{store: store}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Query returns the volatility impact of every event for the tickers inside
// [from, to], ordered by publication time. Events with no ticks in their
// window report nil metrics, which callers must not conflate with zero.
func (a *Aggregator) Query(ctx context.Context, tickers []string, from, to time.Time) ([]model.VolatilityImpact, error) {
	key := cachekeys.ImpactQueryKey(tickers, from, to)
	var cached []model.VolatilityImpact
	if ok := a.getCache(ctx, key, &cached); ok {
		return cached, nil
	}

	events, err := a.store.EventsForTickers(ctx, tickers, from, to)
	if err != nil {
		return nil, fmt.Errorf("impact: load events: %w", err)
	}

	impacts := make([]model.VolatilityImpact, 0, len(events))
	for _, event := range events {
		impact, err := a.computeEvent(ctx, event)
		if err != nil {
			return nil, err
		}
		impacts = append(impacts, impact)
	}

	a.setCache(ctx, key, impacts)
	return impacts, nil
}

// computeEvent measures one event's 15-minute reaction window.
func (a *Aggregator) computeEvent(ctx context.Context, event model.NewsEvent) (model.VolatilityImpact, error) {
	impact := model.VolatilityImpact{
		EventID:     event.EventID,
		Ticker:      event.Ticker,
		PublishedAt: event.PublishedAt,
		Headline:    event.Headline,
		Sentiment:   event.Sentiment,
	}

	windowEnd := event.PublishedAt.Add(Window)
	ticks, err := a.store.TicksInWindow(ctx, event.Ticker, event.PublishedAt, windowEnd)
	if err != nil {
		return impact, fmt.Errorf("impact: window ticks for %s: %w", event.EventID, err)
	}
	impact.TickCount = len(ticks)
	if len(ticks) == 0 {
		return impact, nil
	}

	high := ticks[0].High
	low := ticks[0].Low
	var windowVolume int64
	for _, tick := range ticks {
		if tick.High > high {
			high = tick.High
		}
		if tick.Low < low {
			low = tick.Low
		}
		windowVolume += tick.Volume
	}
	volatility := high - low
	impact.Volatility = &volatility

	baseline, err := a.store.TicksBefore(ctx, event.Ticker, event.PublishedAt, baselineBars)
	if err != nil {
		return impact, fmt.Errorf("impact: baseline ticks for %s: %w", event.EventID, err)
	}
	if len(baseline) > 0 {
		var baselineVolume int64
		for _, tick := range baseline {
			baselineVolume += tick.Volume
		}
		baselineMean := float64(baselineVolume) / float64(len(baseline))
		if baselineMean > 0 {
			windowMean := float64(windowVolume) / float64(len(ticks))
			spike := windowMean / baselineMean
			impact.VolumeSpike = &spike
		}
	}
	return impact, nil
}

func (a *Aggregator) getCache(ctx context.Context, key string, v interface{}) bool {
	if a.cache == nil {
		return false
	}
	if err := a.cache.GetCtx(ctx, key, v); err != nil {
		if !a.cache.IsNotFound(err) {
			logx.WithContext(ctx).Errorf("impact: get cache %s: %v", key, err)
		}
		return false
	}
	return true
}

func (a *Aggregator) setCache(ctx context.Context, key string, v interface{}) {
	if a.cache == nil || a.ttl <= 0 {
		return
	}
	if err := a.cache.SetWithExpireCtx(ctx, key, v, a.ttl); err != nil {
		logx.WithContext(ctx).Errorf("impact: set cache %s: %v", key, err)
	}
}
