package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/smabbasht/AINewsQuake/pkg/news"
	"github.com/smabbasht/AINewsQuake/pkg/retry"
)

const (
	defaultBaseURL     = "https://finnhub.io/api/v1"
	defaultHTTPTimeout = 10 * time.Second
	defaultMaxRetries  = 3
	// Finnhub truncates /company-news at 250 items per request.
	defaultPageCap = 250
	// Free tier allows 60 calls/minute.
	defaultMinInterval = time.Second

	dateLayout = "2006-01-02"
)

// ErrMissingAPIKey indicates the client was built without a token.
var ErrMissingAPIKey = errors.New("finnhub: api key is required")

// Client wraps access to the Finnhub company-news endpoint. It implements
// news.Source: one call is one raw page, and covering a whole date range is
// the backfiller's job.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	retries     *retry.Handler
	pageCap     int
	minInterval time.Duration
	logger      *log.Logger

	paceMu   sync.Mutex
	lastCall time.Time
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default API endpoint URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.retries = retry.NewHandler(retry.Config{MaxRetries: max})
		}
	}
}

// WithPageCap overrides the per-request item cap. Useful against mock
// servers that truncate at a smaller size.
func WithPageCap(cap int) Option {
	return func(c *Client) {
		if cap > 0 {
			c.pageCap = cap
		}
	}
}

// WithMinInterval sets the minimum gap between consecutive requests.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.minInterval = d
		}
	}
}

// WithLogger injects a custom logger (defaults to log.Default()).
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a Finnhub API client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client := &Client{
		baseURL:     defaultBaseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		retries:     retry.NewHandler(retry.Config{MaxRetries: defaultMaxRetries}),
		pageCap:     defaultPageCap,
		minInterval: defaultMinInterval,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// PageCap implements news.Source.
func (c *Client) PageCap() int {
	return c.pageCap
}

// FetchPage implements news.Source. Finnhub filters at date granularity, so
// the page may contain items newer than until; the raw page is returned
// untrimmed per the Source contract.
func (c *Client) FetchPage(ctx context.Context, ticker string, from, until time.Time) ([]news.Item, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("symbol", ticker)
	query.Set("from", from.UTC().Format(dateLayout))
	query.Set("to", until.UTC().Format(dateLayout))
	query.Set("token", c.apiKey)
	endpoint := c.baseURL + "/company-news?" + query.Encode()

	var raw []companyNewsItem
	err := c.retries.Do(ctx, func() error {
		return c.getJSON(ctx, endpoint, &raw)
	})
	if err != nil {
		return nil, fmt.Errorf("finnhub: company news %s: %w", ticker, err)
	}

	items := make([]news.Item, 0, len(raw))
	for _, entry := range raw {
		if entry.Datetime <= 0 || entry.Headline == "" {
			continue
		}
		id := ""
		if entry.ID != 0 {
			id = "finnhub-" + strconv.FormatInt(entry.ID, 10)
		}
		items = append(items, news.Item{
			ID:        id,
			Ticker:    ticker,
			Published: time.Unix(entry.Datetime, 0).UTC(),
			Headline:  entry.Headline,
			Summary:   entry.Summary,
			Source:    entry.Source,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Published.After(items[j].Published)
	})
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(body)
		var envelope apiError
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
			msg = envelope.Error
		}
		return &retry.StatusError{StatusCode: resp.StatusCode, Body: msg}
	}
	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// pace enforces the configured minimum spacing between requests so a full
// backfill never trips the source's rate ceiling.
func (c *Client) pace(ctx context.Context) error {
	if c.minInterval <= 0 {
		return nil
	}
	c.paceMu.Lock()
	wait := c.minInterval - time.Since(c.lastCall)
	if wait > 0 {
		c.paceMu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		c.paceMu.Lock()
	}
	c.lastCall = time.Now()
	c.paceMu.Unlock()
	return nil
}
