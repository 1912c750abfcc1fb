package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
)

// schemaStatements creates the base tables and indexes. Statements are
// idempotent so -init-db can run against an existing database.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS news_events (
    event_id        TEXT PRIMARY KEY,
    ticker          TEXT NOT NULL,
    published_at    TIMESTAMPTZ NOT NULL,
    headline        TEXT NOT NULL,
    source          TEXT,
    sentiment_score DOUBLE PRECISION,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	`CREATE INDEX IF NOT EXISTS idx_news_events_ticker_published
    ON news_events (ticker, published_at);`,
	`CREATE TABLE IF NOT EXISTS market_ticks (
    time   TIMESTAMPTZ NOT NULL,
    ticker TEXT NOT NULL,
    open   DOUBLE PRECISION NOT NULL,
    high   DOUBLE PRECISION NOT NULL,
    low    DOUBLE PRECISION NOT NULL,
    close  DOUBLE PRECISION NOT NULL,
    volume BIGINT NOT NULL,
    PRIMARY KEY (time, ticker)
);`,
	`CREATE INDEX IF NOT EXISTS idx_market_ticks_ticker_time
    ON market_ticks (ticker, time);`,
}

// hypertableStatement converts market_ticks into a TimescaleDB hypertable
// with one-day chunks. It only works when the extension is installed, so
// failures downgrade to plain Postgres instead of aborting the run.
const hypertableStatement = `SELECT create_hypertable('market_ticks', 'time',
    chunk_time_interval => INTERVAL '1 day', if_not_exists => TRUE);`

// impactViewStatement exposes the per-event 15-minute reaction as SQL for
// ad-hoc queries. The application computes the same window in Go; the view
// exists for direct database consumers.
const impactViewStatement = `CREATE OR REPLACE VIEW volatility_impact AS
SELECT
    e.event_id,
    e.ticker,
    e.published_at,
    e.headline,
    e.sentiment_score,
    MAX(t.high) - MIN(t.low) AS volatility_window,
    COUNT(t.time) AS tick_count
FROM news_events e
LEFT JOIN market_ticks t
    ON t.ticker = e.ticker
    AND t.time > e.published_at
    AND t.time <= e.published_at + INTERVAL '15 minutes'
GROUP BY e.event_id, e.ticker, e.published_at, e.headline, e.sentiment_score;`

// InitSchema creates all tables, indexes and views the pipeline needs.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.conn.ExecCtx(ctx, stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}

	if _, err := s.conn.ExecCtx(ctx, hypertableStatement); err != nil {
		if isMissingTimescale(err) {
			logx.WithContext(ctx).Infof("store: timescaledb not installed, market_ticks stays a plain table")
		} else {
			return fmt.Errorf("store: create hypertable: %w", err)
		}
	}

	if _, err := s.conn.ExecCtx(ctx, impactViewStatement); err != nil {
		return fmt.Errorf("store: create volatility_impact view: %w", err)
	}
	return nil
}

// isMissingTimescale detects the undefined-function error raised when
// create_hypertable is called without the extension.
func isMissingTimescale(err error) bool {
	if err == nil {
		return false
	}
	if sqlErrorCode(err) == "42883" { // undefined_function
		return true
	}
	return strings.Contains(err.Error(), "create_hypertable")
}
