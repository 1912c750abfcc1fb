package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"github.com/smabbasht/AINewsQuake/internal/model"
)

// batchSize bounds the rows written per transaction so one huge backfill
// never holds a single transaction open across the whole range.
const batchSize = 1000

// ErrSchemaMissing indicates the database has not been initialized yet.
var ErrSchemaMissing = errors.New("store: schema missing, run with -init-db first")

const (
	pqUndefinedTable  = "42P01"
	pqUniqueViolation = "23505"
)

// Store persists canonical events and ticks in Postgres. All writes are
// idempotent: events are first-write-wins, ticks are last-write-wins, so
// re-running a range is always safe.
type Store struct {
	conn sqlx.SqlConn
}

// NewStore wraps an open connection.
func NewStore(conn sqlx.SqlConn) *Store {
	return &Store{conn: conn}
}

// UpsertEvents inserts news events, skipping rows whose event_id already
// exists. Returns the number of rows actually inserted; replayed events
// never alter stored rows.
func (s *Store) UpsertEvents(ctx context.Context, events []model.NewsEvent) (int, error) {
	const stmt = `
INSERT INTO news_events (event_id, ticker, published_at, headline, source, sentiment_score)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (event_id) DO NOTHING;`

	inserted := 0
	for start := 0; start < len(events); start += batchSize {
		end := start + batchSize
		if end > len(events) {
			end = len(events)
		}
		batch := events[start:end]

		err := s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
			for _, event := range batch {
				result, err := session.ExecCtx(ctx, stmt,
					event.EventID,
					event.Ticker,
					event.PublishedAt.UTC(),
					event.Headline,
					event.Source,
					event.Sentiment,
				)
				if err != nil {
					return fmt.Errorf("insert event %s: %w", event.EventID, err)
				}
				affected, err := result.RowsAffected()
				if err != nil {
					return fmt.Errorf("insert event %s: rows affected: %w", event.EventID, err)
				}
				inserted += int(affected)
			}
			return nil
		})
		if err != nil {
			return inserted, translateError(err)
		}
	}
	return inserted, nil
}

// UpsertTicks inserts market ticks, replacing the full OHLCV payload when a
// (time, ticker) row already exists so corrected prints win. Returns how
// many rows were new inserts as opposed to replacements.
func (s *Store) UpsertTicks(ctx context.Context, ticks []model.MarketTick) (int, error) {
	// xmax = 0 only on freshly inserted rows, which distinguishes an
	// insert from a conflict-path update without a second query.
	const stmt = `
INSERT INTO market_ticks (time, ticker, open, high, low, close, volume)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (time, ticker) DO UPDATE SET
    open = EXCLUDED.open,
    high = EXCLUDED.high,
    low = EXCLUDED.low,
    close = EXCLUDED.close,
    volume = EXCLUDED.volume
RETURNING (xmax = 0) AS inserted;`

	inserted := 0
	for start := 0; start < len(ticks); start += batchSize {
		end := start + batchSize
		if end > len(ticks) {
			end = len(ticks)
		}
		batch := ticks[start:end]

		err := s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
			for _, tick := range batch {
				var fresh bool
				err := session.QueryRowCtx(ctx, &fresh, stmt,
					tick.Time.UTC(),
					tick.Ticker,
					tick.Open,
					tick.High,
					tick.Low,
					tick.Close,
					tick.Volume,
				)
				if err != nil {
					return fmt.Errorf("upsert tick %s@%s: %w", tick.Ticker, tick.Time.Format(time.RFC3339), err)
				}
				if fresh {
					inserted++
				}
			}
			return nil
		})
		if err != nil {
			return inserted, translateError(err)
		}
	}
	return inserted, nil
}

// EventsByTicker returns events for the ticker inside [from, to], oldest
// first. An empty ticker returns events for all tickers.
func (s *Store) EventsByTicker(ctx context.Context, ticker string, from, to time.Time) ([]model.NewsEvent, error) {
	var (
		query string
		args  []interface{}
	)
	if ticker == "" {
		query = `
SELECT event_id, ticker, published_at, headline, source, sentiment_score
FROM news_events
WHERE published_at >= $1 AND published_at <= $2
ORDER BY published_at ASC, event_id ASC`
		args = []interface{}{from.UTC(), to.UTC()}
	} else {
		query = `
SELECT event_id, ticker, published_at, headline, source, sentiment_score
FROM news_events
WHERE ticker = $1 AND published_at >= $2 AND published_at <= $3
ORDER BY published_at ASC, event_id ASC`
		args = []interface{}{ticker, from.UTC(), to.UTC()}
	}

	var events []model.NewsEvent
	if err := s.conn.QueryRowsCtx(ctx, &events, query, args...); err != nil {
		return nil, translateError(fmt.Errorf("query events: %w", err))
	}
	return events, nil
}

// EventsForTickers returns events for any of the tickers inside [from, to],
// oldest first. An empty ticker list returns events for all tickers.
func (s *Store) EventsForTickers(ctx context.Context, tickers []string, from, to time.Time) ([]model.NewsEvent, error) {
	if len(tickers) == 0 {
		return s.EventsByTicker(ctx, "", from, to)
	}
	const query = `
SELECT event_id, ticker, published_at, headline, source, sentiment_score
FROM news_events
WHERE ticker = ANY($1) AND published_at >= $2 AND published_at <= $3
ORDER BY published_at ASC, event_id ASC`

	var events []model.NewsEvent
	if err := s.conn.QueryRowsCtx(ctx, &events, query, pq.Array(tickers), from.UTC(), to.UTC()); err != nil {
		return nil, translateError(fmt.Errorf("query events: %w", err))
	}
	return events, nil
}

// TicksInWindow returns ticks with time in (after, until], oldest first.
// The window is open at the left edge so a bar stamped exactly at an event's
// publication time is not attributed to that event.
func (s *Store) TicksInWindow(ctx context.Context, ticker string, after, until time.Time) ([]model.MarketTick, error) {
	const query = `
SELECT time, ticker, open, high, low, close, volume
FROM market_ticks
WHERE ticker = $1 AND time > $2 AND time <= $3
ORDER BY time ASC`

	var ticks []model.MarketTick
	if err := s.conn.QueryRowsCtx(ctx, &ticks, query, ticker, after.UTC(), until.UTC()); err != nil {
		return nil, translateError(fmt.Errorf("query ticks: %w", err))
	}
	return ticks, nil
}

// TicksBefore returns up to limit ticks strictly before the cutoff, newest
// first. The aggregator uses this slice as the pre-event volume baseline.
func (s *Store) TicksBefore(ctx context.Context, ticker string, cutoff time.Time, limit int) ([]model.MarketTick, error) {
	const query = `
SELECT time, ticker, open, high, low, close, volume
FROM market_ticks
WHERE ticker = $1 AND time < $2
ORDER BY time DESC
LIMIT $3`

	var ticks []model.MarketTick
	if err := s.conn.QueryRowsCtx(ctx, &ticks, query, ticker, cutoff.UTC(), limit); err != nil {
		return nil, translateError(fmt.Errorf("query baseline ticks: %w", err))
	}
	return ticks, nil
}

// CountEvents reports stored events per ticker, for run summaries.
func (s *Store) CountEvents(ctx context.Context, ticker string) (int, error) {
	var count int
	err := s.conn.QueryRowCtx(ctx, &count,
		`SELECT COUNT(*) FROM news_events WHERE ticker = $1`, ticker)
	if err != nil {
		return 0, translateError(fmt.Errorf("count events: %w", err))
	}
	return count, nil
}

// CountTicks reports stored ticks per ticker, for run summaries.
func (s *Store) CountTicks(ctx context.Context, ticker string) (int, error) {
	var count int
	err := s.conn.QueryRowCtx(ctx, &count,
		`SELECT COUNT(*) FROM market_ticks WHERE ticker = $1`, ticker)
	if err != nil {
		return 0, translateError(fmt.Errorf("count ticks: %w", err))
	}
	return count, nil
}

// translateError maps driver errors onto store sentinels where a caller can
// act on them. Everything else passes through wrapped.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch sqlErrorCode(err) {
	case pqUndefinedTable:
		return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
	case pqUniqueViolation:
		// Conflict targets absorb duplicates, so a surfaced unique
		// violation means a constraint outside the upsert path.
		logx.Errorf("store: unexpected unique violation: %v", err)
	}
	return err
}

// sqlErrorCode extracts the SQLSTATE code regardless of which Postgres
// driver produced the error.
func sqlErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
