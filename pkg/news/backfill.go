package news

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// maxBackfillPages bounds the scan so a misbehaving source cannot spin the
// pipeline forever. 1000 pages at a 250 cap is far beyond any real range.
const maxBackfillPages = 1000

// Backfiller turns a page-capped Source into a gap-free Provider by walking
// the date boundary backwards from the newest page. Each new window boundary
// derives from the oldest item actually observed, so no sub-range is skipped
// even when a single day's volume exceeds the page cap.
type Backfiller struct {
	source Source
	logger *log.Logger
}

// BackfillOption configures a Backfiller.
type BackfillOption func(*Backfiller)

// WithLogger injects a custom logger (defaults to log.Default()).
func WithLogger(l *log.Logger) BackfillOption {
	return func(b *Backfiller) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBackfiller wraps source in the smart-backfill scan.
func NewBackfiller(source Source, opts ...BackfillOption) *Backfiller {
	b := &Backfiller{source: source, logger: log.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FetchNews scans backwards from to until the whole [from, to] range is
// covered. Items sharing an ID are deduplicated so the union across pages is
// exactly-once. Termination and boundary movement always use the raw page,
// so range and keyword filtering here cannot mask an unexhausted source.
func (b *Backfiller) FetchNews(ctx context.Context, ticker string, from, to time.Time, keywords []string) ([]Item, error) {
	if b.source == nil {
		return nil, fmt.Errorf("news backfill: nil source")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("news backfill: to %s before from %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	pageCap := b.source.PageCap()
	if pageCap <= 0 {
		return nil, fmt.Errorf("news backfill: source page cap must be positive, got %d", pageCap)
	}

	var all []Item
	seen := make(map[string]struct{})
	windowEnd := to

	for page := 0; page < maxBackfillPages; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		batch, err := b.source.FetchPage(ctx, ticker, from, windowEnd)
		if err != nil {
			return all, fmt.Errorf("news backfill %s: page %d: %w", ticker, page+1, err)
		}
		if len(batch) == 0 {
			return all, nil
		}

		oldest := batch[0].Published
		for _, item := range batch {
			if item.Published.Before(oldest) {
				oldest = item.Published
			}
			if item.Published.Before(from) || item.Published.After(to) {
				continue
			}
			if !matchesKeywords(item, keywords) {
				continue
			}
			key := item.ID
			if key == "" {
				key = fmt.Sprintf("%s|%d|%s", item.Ticker, item.Published.UnixNano(), item.Headline)
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, item)
		}

		if len(batch) < pageCap {
			// Source exhausted: fewer items than the cap means there is
			// nothing older left inside the window.
			return all, nil
		}

		// Derive the next boundary from the oldest observed item. When a
		// full page shares one timestamp equal to windowEnd, decrementing
		// from the oldest alone would not move the boundary, so force it
		// strictly below windowEnd to guarantee forward progress.
		next := oldest.Add(-time.Second)
		if !next.Before(windowEnd) {
			next = windowEnd.Add(-time.Second)
		}
		if next.Before(from) {
			return all, nil
		}
		windowEnd = next
	}

	b.logger.Printf("news backfill %s: stopped at page cap %d, range may be incomplete", ticker, maxBackfillPages)
	return all, fmt.Errorf("news backfill %s: exceeded %d pages without exhausting range", ticker, maxBackfillPages)
}

// matchesKeywords reports whether the item's headline or summary contains at
// least one keyword. An empty keyword list matches everything.
func matchesKeywords(item Item, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	headline := strings.ToLower(item.Headline)
	summary := strings.ToLower(item.Summary)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(headline, kw) || strings.Contains(summary, kw) {
			return true
		}
	}
	return false
}
