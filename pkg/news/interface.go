package news

import (
	"context"
	"time"
)

// Item is a raw news item as returned by a source adapter, before
// normalization into the canonical model.
type Item struct {
	ID        string    // source-assigned identifier, may be empty
	Ticker    string    // symbol the source associated with the item
	Published time.Time // publication time, already UTC
	Headline  string
	Summary   string // optional body/summary text, used for scoring
	Source    string // originating publisher name
}

// Provider exposes gap-free news retrieval over a bounded date range.
type Provider interface {
	// FetchNews returns every item published inside [from, to] for the
	// ticker, exactly once, regardless of source page limits. Keywords,
	// when non-empty, restrict results to matching headlines/summaries.
	FetchNews(ctx context.Context, ticker string, from, to time.Time, keywords []string) ([]Item, error)
}

// Source is a page-capped, most-recent-first news API. Sources offer no
// pagination cursor beyond a date boundary, so full-range coverage is the
// backfiller's job, not the source's.
//
// FetchPage must return the page raw: the length of the returned slice is
// the backfiller's exhaustion signal, so sources never filter items out
// client-side. Sources coarser than second granularity (date-ranged APIs)
// may therefore include items newer than until; the backfiller drops them.
type Source interface {
	// PageCap is the maximum number of items a single FetchPage returns.
	PageCap() int
	// FetchPage returns the newest items at or before until, newest first,
	// at most PageCap of them.
	FetchPage(ctx context.Context, ticker string, from, until time.Time) ([]Item, error)
}
