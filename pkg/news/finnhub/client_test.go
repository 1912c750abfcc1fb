package finnhub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smabbasht/AINewsQuake/pkg/news"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := []Option{WithBaseURL(server.URL), WithMinInterval(0)}
	client, err := NewClient("test-token", append(base, opts...)...)
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFetchPage_DecodesAndSortsNewestFirst(t *testing.T) {
	payload := []companyNewsItem{
		{ID: 1, Datetime: 1609502400, Headline: "older", Source: "wire", Related: "AAPL"},
		{ID: 2, Datetime: 1609506000, Headline: "newer", Summary: "body", Source: "wire", Related: "AAPL"},
	}
	var gotQuery atomic.Value
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		assert.Equal(t, "/company-news", r.URL.Path)
		_ = json.NewEncoder(w).Encode(payload)
	})

	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
	items, err := client.FetchPage(context.Background(), "AAPL", from, until)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "newer", items[0].Headline, "items must be newest first")
	assert.Equal(t, "finnhub-2", items[0].ID)
	assert.Equal(t, "body", items[0].Summary)
	assert.Equal(t, time.Unix(1609506000, 0).UTC(), items[0].Published)
	assert.Equal(t, "AAPL", items[0].Ticker)

	query := gotQuery.Load().(url.Values)
	assert.Equal(t, "AAPL", query.Get("symbol"))
	assert.Equal(t, "2021-01-01", query.Get("from"))
	assert.Equal(t, "2021-01-02", query.Get("to"))
	assert.Equal(t, "test-token", query.Get("token"))
}

func TestFetchPage_SkipsItemsWithoutTimestampOrHeadline(t *testing.T) {
	payload := []companyNewsItem{
		{ID: 1, Datetime: 0, Headline: "no timestamp"},
		{ID: 2, Datetime: 1609506000, Headline: ""},
		{ID: 3, Datetime: 1609506000, Headline: "kept"},
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(payload)
	})

	items, err := client.FetchPage(context.Background(), "AAPL", time.Time{}, time.Now())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "kept", items[0].Headline)
}

func TestFetchPage_RetriesTransientStatus(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode([]companyNewsItem{
			{ID: 9, Datetime: 1609506000, Headline: "recovered"},
		})
	}, WithMaxRetries(2))

	items, err := client.FetchPage(context.Background(), "AAPL", time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls), "5xx should be retried")
}

func TestFetchPage_PermanentStatusFailsFast(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
	}, WithMaxRetries(3))

	_, err := client.FetchPage(context.Background(), "AAPL", time.Time{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "401 must not be retried")
}

func TestClient_ImplementsSource(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]companyNewsItem{})
	}, WithPageCap(50))

	var source news.Source = client
	assert.Equal(t, 50, source.PageCap())
}
