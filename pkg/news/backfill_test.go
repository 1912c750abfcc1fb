package news

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource simulates a page-capped, most-recent-first news API: every
// FetchPage returns the newest pageCap items at or before until.
type fakeSource struct {
	pageCap int
	items   []Item
	calls   int
	err     error
}

func (f *fakeSource) PageCap() int { return f.pageCap }

func (f *fakeSource) FetchPage(_ context.Context, _ string, _, until time.Time) ([]Item, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var page []Item
	for _, item := range f.items {
		if !item.Published.After(until) {
			page = append(page, item)
		}
	}
	sort.Slice(page, func(i, j int) bool {
		return page[i].Published.After(page[j].Published)
	})
	if len(page) > f.pageCap {
		page = page[:f.pageCap]
	}
	return page, nil
}

func makeItems(ticker string, start time.Time, count int, step time.Duration) []Item {
	items := make([]Item, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, Item{
			ID:        fmt.Sprintf("item-%d", i),
			Ticker:    ticker,
			Published: start.Add(time.Duration(i) * step),
			Headline:  fmt.Sprintf("headline %d", i),
		})
	}
	return items
}

func TestFetchNews_UnionIsExactlyOnce(t *testing.T) {
	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	items := makeItems("AAPL", from, 25, time.Minute)
	source := &fakeSource{pageCap: 10, items: items}
	b := NewBackfiller(source)

	got, err := b.FetchNews(context.Background(), "AAPL", from, from.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.Len(t, got, 25, "every item inside the range appears exactly once")

	seen := make(map[string]int)
	for _, item := range got {
		seen[item.ID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "item %s duplicated", id)
	}
	assert.Greater(t, source.calls, 1, "range above the cap needs more than one page")
}

func TestFetchNews_StopsWhenPageBelowCap(t *testing.T) {
	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	items := makeItems("AAPL", from, 5, time.Minute)
	source := &fakeSource{pageCap: 10, items: items}
	b := NewBackfiller(source)

	got, err := b.FetchNews(context.Background(), "AAPL", from, from.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 1, source.calls, "a page below the cap means the window is exhausted")
}

func TestFetchNews_FullPageSharingOneTimestampMakesProgress(t *testing.T) {
	to := time.Date(2021, 1, 2, 12, 0, 0, 0, time.UTC)
	from := to.Add(-time.Hour)

	// Three items exactly at the window end fill the whole page; two older
	// items must still be reachable.
	items := []Item{
		{ID: "a", Ticker: "AAPL", Published: to, Headline: "a"},
		{ID: "b", Ticker: "AAPL", Published: to, Headline: "b"},
		{ID: "c", Ticker: "AAPL", Published: to, Headline: "c"},
		{ID: "d", Ticker: "AAPL", Published: to.Add(-10 * time.Minute), Headline: "d"},
		{ID: "e", Ticker: "AAPL", Published: to.Add(-20 * time.Minute), Headline: "e"},
	}
	source := &fakeSource{pageCap: 3, items: items}
	b := NewBackfiller(source)

	got, err := b.FetchNews(context.Background(), "AAPL", from, to, nil)
	require.NoError(t, err)
	assert.Len(t, got, 5, "boundary must move past a full same-timestamp page")
}

func TestFetchNews_ExcludesItemsOutsideRange(t *testing.T) {
	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	items := []Item{
		{ID: "early", Ticker: "AAPL", Published: from.Add(-time.Minute), Headline: "early"},
		{ID: "in", Ticker: "AAPL", Published: from.Add(30 * time.Minute), Headline: "in"},
	}
	source := &fakeSource{pageCap: 10, items: items}
	b := NewBackfiller(source)

	got, err := b.FetchNews(context.Background(), "AAPL", from, to, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "in", got[0].ID)
}

func TestFetchNews_KeywordFilter(t *testing.T) {
	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []Item{
		{ID: "1", Ticker: "AAPL", Published: from.Add(time.Minute), Headline: "Apple earnings beat"},
		{ID: "2", Ticker: "AAPL", Published: from.Add(2 * time.Minute), Headline: "New store opening"},
		{ID: "3", Ticker: "AAPL", Published: from.Add(3 * time.Minute), Headline: "quiet day", Summary: "earnings preview inside"},
	}
	source := &fakeSource{pageCap: 10, items: items}
	b := NewBackfiller(source)

	got, err := b.FetchNews(context.Background(), "AAPL", from, from.Add(time.Hour), []string{"earnings"})
	require.NoError(t, err)
	assert.Len(t, got, 2, "keywords match headline or summary")
}

func TestFetchNews_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("rate limited")
	source := &fakeSource{pageCap: 10, err: boom}
	b := NewBackfiller(source)

	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := b.FetchNews(context.Background(), "AAPL", from, from.Add(time.Hour), nil)
	assert.ErrorIs(t, err, boom)
}

func TestFetchNews_RejectsInvertedRange(t *testing.T) {
	source := &fakeSource{pageCap: 10}
	b := NewBackfiller(source)

	to := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := b.FetchNews(context.Background(), "AAPL", to.Add(time.Hour), to, nil)
	assert.Error(t, err)
	assert.Zero(t, source.calls, "invalid range must fail before any fetch")
}

func TestFetchNews_CancelledContext(t *testing.T) {
	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{pageCap: 10, items: makeItems("AAPL", from, 3, time.Minute)}
	b := NewBackfiller(source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.FetchNews(ctx, "AAPL", from, from.Add(time.Hour), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
