package etl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/smabbasht/AINewsQuake/internal/model"
	"github.com/smabbasht/AINewsQuake/pkg/journal"
	"github.com/smabbasht/AINewsQuake/pkg/marketdata"
	"github.com/smabbasht/AINewsQuake/pkg/news"
)

// defaultConcurrency bounds parallel ticker workers in concurrent mode.
const defaultConcurrency = 4

// Storage is the slice of the store the pipeline writes through.
type Storage interface {
	UpsertEvents(ctx context.Context, events []model.NewsEvent) (int, error)
	UpsertTicks(ctx context.Context, ticks []model.MarketTick) (int, error)
}

// RunConfig describes one ingestion run.
type RunConfig struct {
	Tickers  []string
	From     time.Time
	To       time.Time
	Keywords []string

	// NewsOnly skips the market data stage entirely.
	NewsOnly bool
	// Concurrency > 1 ingests tickers in parallel with that many workers.
	// 0 and 1 both mean sequential.
	Concurrency int
}

// Validate rejects malformed runs before any network or database work.
func (c *RunConfig) Validate() error {
	if len(c.Tickers) == 0 {
		return fmt.Errorf("etl: no tickers configured")
	}
	seen := make(map[string]struct{}, len(c.Tickers))
	for _, ticker := range c.Tickers {
		normalized := strings.ToUpper(strings.TrimSpace(ticker))
		if normalized == "" {
			return fmt.Errorf("etl: empty ticker in list")
		}
		if _, dup := seen[normalized]; dup {
			return fmt.Errorf("etl: duplicate ticker %s", normalized)
		}
		seen[normalized] = struct{}{}
	}
	if c.From.IsZero() || c.To.IsZero() {
		return fmt.Errorf("etl: from and to are required")
	}
	if c.To.Before(c.From) {
		return fmt.Errorf("etl: to %s before from %s", c.To.Format(time.RFC3339), c.From.Format(time.RFC3339))
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("etl: concurrency cannot be negative, got %d", c.Concurrency)
	}
	return nil
}

// Pipeline orchestrates fetch, normalize and persist for a set of tickers.
// One ticker failing never aborts the others; failures surface in the report.
type Pipeline struct {
	newsProvider   news.Provider
	marketProvider marketdata.Provider
	storage        Storage
	normalizer     *Normalizer
	journal        *journal.Writer
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithJournal records each run as a JSON journal entry.
func WithJournal(w *journal.Writer) PipelineOption {
	return func(p *Pipeline) {
		p.journal = w
	}
}

// WithNormalizer overrides the default normalizer.
func WithNormalizer(n *Normalizer) PipelineOption {
	return func(p *Pipeline) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// NewPipeline wires the three stages together. marketProvider may be nil
// when every run is news-only.
func NewPipeline(newsProvider news.Provider, marketProvider marketdata.Provider, storage Storage, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		newsProvider:   newsProvider,
		marketProvider: marketProvider,
		storage:        storage,
		normalizer:     NewNormalizer(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one ingestion run. Configuration errors fail fast before any
// ticker is touched; per-ticker errors are isolated into the report.
func (p *Pipeline) Run(ctx context.Context, cfg RunConfig) (*RunReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p.newsProvider == nil {
		return nil, fmt.Errorf("etl: news provider is required")
	}
	if !cfg.NewsOnly && p.marketProvider == nil {
		return nil, fmt.Errorf("etl: market provider is required unless news-only")
	}
	if p.storage == nil {
		return nil, fmt.Errorf("etl: storage is required")
	}

	report := &RunReport{
		StartedAt:  time.Now().UTC(),
		From:       cfg.From,
		To:         cfg.To,
		NewsOnly:   cfg.NewsOnly,
		Concurrent: cfg.Concurrency > 1,
		Tickers:    make([]TickerReport, len(cfg.Tickers)),
	}

	if cfg.Concurrency > 1 {
		p.runConcurrent(ctx, cfg, report)
	} else {
		for i, ticker := range cfg.Tickers {
			report.Tickers[i] = p.runTicker(ctx, strings.ToUpper(strings.TrimSpace(ticker)), cfg)
		}
	}
	report.FinishedAt = time.Now().UTC()

	if p.journal != nil {
		if path, err := p.journal.WriteRun(report.JournalRecord()); err != nil {
			logx.WithContext(ctx).Errorf("etl: write run journal: %v", err)
		} else {
			logx.WithContext(ctx).Infof("etl: run journal written to %s", path)
		}
	}
	return report, nil
}

// runConcurrent fans tickers out over a bounded worker pool. Each slot of
// report.Tickers is owned by exactly one goroutine, so no locking is needed
// around the report itself.
func (p *Pipeline) runConcurrent(ctx context.Context, cfg RunConfig, report *RunReport) {
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, ticker := range cfg.Tickers {
		wg.Add(1)
		go func(slot int, ticker string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			report.Tickers[slot] = p.runTicker(ctx, strings.ToUpper(strings.TrimSpace(ticker)), cfg)
		}(i, ticker)
	}
	wg.Wait()
}

// runTicker performs the full fetch-normalize-persist cycle for one ticker.
func (p *Pipeline) runTicker(ctx context.Context, ticker string, cfg RunConfig) TickerReport {
	started := time.Now()
	result := TickerReport{Ticker: ticker}
	defer func() {
		result.Duration = time.Since(started)
	}()

	logger := logx.WithContext(ctx)

	items, err := p.newsProvider.FetchNews(ctx, ticker, cfg.From, cfg.To, cfg.Keywords)
	if err != nil {
		result.Err = fmt.Errorf("fetch news %s: %w", ticker, err)
		logger.Errorf("etl: %v", result.Err)
		return result
	}
	result.EventsFetched = len(items)

	events, rejected := p.normalizer.NormalizeEvents(items, ticker)
	result.EventsRejected = rejected

	inserted, err := p.storage.UpsertEvents(ctx, events)
	result.EventsInserted = inserted
	if err != nil {
		result.Err = fmt.Errorf("persist events %s: %w", ticker, err)
		logger.Errorf("etl: %v", result.Err)
		return result
	}
	logger.Infof("etl: %s events fetched=%d inserted=%d rejected=%d",
		ticker, result.EventsFetched, result.EventsInserted, result.EventsRejected)

	if cfg.NewsOnly {
		return result
	}

	bars, err := p.marketProvider.FetchBars(ctx, ticker, cfg.From, cfg.To)
	if err != nil {
		result.Err = fmt.Errorf("fetch bars %s: %w", ticker, err)
		logger.Errorf("etl: %v", result.Err)
		return result
	}
	result.TicksFetched = len(bars)

	ticks, rejected := p.normalizer.NormalizeTicks(bars, ticker)
	result.TicksRejected = rejected

	inserted, err = p.storage.UpsertTicks(ctx, ticks)
	result.TicksInserted = inserted
	if err != nil {
		result.Err = fmt.Errorf("persist ticks %s: %w", ticker, err)
		logger.Errorf("etl: %v", result.Err)
		return result
	}
	logger.Infof("etl: %s ticks fetched=%d inserted=%d rejected=%d",
		ticker, result.TicksFetched, result.TicksInserted, result.TicksRejected)
	return result
}
