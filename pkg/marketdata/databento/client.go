package databento

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/smabbasht/AINewsQuake/pkg/marketdata"
	"github.com/smabbasht/AINewsQuake/pkg/retry"
)

const (
	defaultBaseURL     = "https://hist.databento.com/v0"
	defaultDataset     = "XNAS.ITCH"
	defaultSchema      = "ohlcv-1m"
	defaultHTTPTimeout = 60 * time.Second
	defaultMaxRetries  = 3
	// defaultBatchDays keeps each range request inside the size the
	// historical gateway serves without streaming timeouts.
	defaultBatchDays = 7

	// priceScale converts Databento fixed-point prices to float dollars.
	priceScale = 1e-9
	// undefPrice is Databento's sentinel for "no price in this field".
	undefPrice = math.MaxInt64

	timestampLayout = "2006-01-02T15:04:05"
)

// ErrMissingAPIKey indicates the client was built without a key.
var ErrMissingAPIKey = errors.New("databento: api key is required")

// Client wraps the Databento historical timeseries gateway. It implements
// marketdata.Provider by splitting a range into bounded batches and decoding
// the fixed-point OHLCV records into float bars.
type Client struct {
	baseURL    string
	apiKey     string
	dataset    string
	schema     string
	batchDays  int
	httpClient *http.Client
	retries    *retry.Handler
	logger     *log.Logger
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

// WithBaseURL overrides the default gateway URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithDataset selects the source dataset.
func WithDataset(dataset string) Option {
	return func(c *Client) {
		if dataset != "" {
			c.dataset = dataset
		}
	}
}

// WithSchema selects the record schema.
func WithSchema(schema string) Option {
	return func(c *Client) {
		if schema != "" {
			c.schema = schema
		}
	}
}

// WithBatchDays adjusts the per-request range span.
func WithBatchDays(days int) Option {
	return func(c *Client) {
		if days > 0 {
			c.batchDays = days
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

// WithLogger injects a custom logger (defaults to log.Default()).
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a Databento historical API client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		dataset:    defaultDataset,
		schema:     defaultSchema,
		batchDays:  defaultBatchDays,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		retries:    retry.NewHandler(retry.Config{MaxRetries: defaultMaxRetries}),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchBars implements marketdata.Provider. The range is walked in half-open
// [start, end) batches so adjoining batches never double-count a bar.
func (c *Client) FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]marketdata.Bar, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("databento: empty range [%s, %s)", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	batchSpan := time.Duration(c.batchDays) * 24 * time.Hour
	var bars []marketdata.Bar
	for start := from; start.Before(to); start = start.Add(batchSpan) {
		end := start.Add(batchSpan)
		if end.After(to) {
			end = to
		}

		var batch []marketdata.Bar
		err := c.retries.Do(ctx, func() error {
			var fetchErr error
			batch, fetchErr = c.fetchRange(ctx, ticker, start, end)
			return fetchErr
		})
		if err != nil {
			return nil, fmt.Errorf("databento: %s range [%s, %s): %w",
				ticker, start.Format(time.RFC3339), end.Format(time.RFC3339), err)
		}
		bars = append(bars, batch...)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
	return bars, nil
}

func (c *Client) fetchRange(ctx context.Context, ticker string, start, end time.Time) ([]marketdata.Bar, error) {
	query := url.Values{}
	query.Set("dataset", c.dataset)
	query.Set("schema", c.schema)
	query.Set("symbols", ticker)
	query.Set("stype_in", "raw_symbol")
	query.Set("start", start.UTC().Format(timestampLayout))
	query.Set("end", end.UTC().Format(timestampLayout))
	query.Set("encoding", "json")
	endpoint := c.baseURL + "/timeseries.get_range?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &retry.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return c.decodeRecords(resp.Body, ticker)
}

// decodeRecords parses the newline-delimited JSON record stream.
func (c *Client) decodeRecords(r io.Reader, ticker string) ([]marketdata.Bar, error) {
	var bars []marketdata.Bar
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record ohlcvRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		bar, ok, err := record.toBar(ticker)
		if err != nil {
			return nil, err
		}
		if ok {
			bars = append(bars, bar)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read record stream: %w", err)
	}
	return bars, nil
}

func (r *ohlcvRecord) toBar(ticker string) (marketdata.Bar, bool, error) {
	tsNanos, err := strconv.ParseInt(r.Header.TsEvent, 10, 64)
	if err != nil {
		return marketdata.Bar{}, false, fmt.Errorf("parse ts_event %q: %w", r.Header.TsEvent, err)
	}

	open, err := parsePrice(r.Open)
	if err != nil {
		return marketdata.Bar{}, false, err
	}
	high, err := parsePrice(r.High)
	if err != nil {
		return marketdata.Bar{}, false, err
	}
	low, err := parsePrice(r.Low)
	if err != nil {
		return marketdata.Bar{}, false, err
	}
	closePx, err := parsePrice(r.Close)
	if err != nil {
		return marketdata.Bar{}, false, err
	}
	if open == nil || high == nil || low == nil || closePx == nil {
		// Bars with undefined prices carry no usable print.
		return marketdata.Bar{}, false, nil
	}

	volume := int64(0)
	if r.Volume != "" {
		volume, err = strconv.ParseInt(r.Volume, 10, 64)
		if err != nil {
			return marketdata.Bar{}, false, fmt.Errorf("parse volume %q: %w", r.Volume, err)
		}
	}

	return marketdata.Bar{
		Time:   time.Unix(0, tsNanos).UTC(),
		Ticker: ticker,
		Open:   *open,
		High:   *high,
		Low:    *low,
		Close:  *closePx,
		Volume: volume,
	}, true, nil
}

// parsePrice converts a fixed-point price field. Nil means the field held
// the undefined-price sentinel.
func parsePrice(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	fixed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if fixed == undefPrice {
		return nil, nil
	}
	price := float64(fixed) * priceScale
	return &price, nil
}
