package etl

import (
	"time"

	"github.com/smabbasht/AINewsQuake/pkg/journal"
)

// TickerReport records what one ticker contributed to a run.
type TickerReport struct {
	Ticker         string
	EventsFetched  int
	EventsInserted int
	EventsRejected int
	TicksFetched   int
	TicksInserted  int
	TicksRejected  int
	Duration       time.Duration
	Err            error
}

// Failed reports whether this ticker's ingestion aborted.
func (r *TickerReport) Failed() bool {
	return r.Err != nil
}

// RunReport aggregates the outcome of one ingestion run across all tickers.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	From       time.Time
	To         time.Time
	NewsOnly   bool
	Concurrent bool
	Tickers    []TickerReport
}

// FailedTickers lists the tickers whose ingestion aborted.
func (r *RunReport) FailedTickers() []string {
	var failed []string
	for _, ticker := range r.Tickers {
		if ticker.Failed() {
			failed = append(failed, ticker.Ticker)
		}
	}
	return failed
}

// Success reports whether every ticker completed.
func (r *RunReport) Success() bool {
	return len(r.FailedTickers()) == 0
}

// TotalEventsInserted sums fresh event rows across tickers.
func (r *RunReport) TotalEventsInserted() int {
	total := 0
	for _, ticker := range r.Tickers {
		total += ticker.EventsInserted
	}
	return total
}

// TotalTicksInserted sums fresh tick rows across tickers.
func (r *RunReport) TotalTicksInserted() int {
	total := 0
	for _, ticker := range r.Tickers {
		total += ticker.TicksInserted
	}
	return total
}

// JournalRecord converts the report into its journal form.
func (r *RunReport) JournalRecord() *journal.RunRecord {
	records := make([]journal.TickerRecord, 0, len(r.Tickers))
	for _, ticker := range r.Tickers {
		record := journal.TickerRecord{
			Ticker:         ticker.Ticker,
			EventsFetched:  ticker.EventsFetched,
			EventsInserted: ticker.EventsInserted,
			EventsRejected: ticker.EventsRejected,
			TicksFetched:   ticker.TicksFetched,
			TicksInserted:  ticker.TicksInserted,
			TicksRejected:  ticker.TicksRejected,
			DurationMS:     ticker.Duration.Milliseconds(),
		}
		if ticker.Err != nil {
			record.ErrorMessage = ticker.Err.Error()
		}
		records = append(records, record)
	}
	return &journal.RunRecord{
		Timestamp:  r.StartedAt,
		From:       r.From,
		To:         r.To,
		NewsOnly:   r.NewsOnly,
		Concurrent: r.Concurrent,
		Tickers:    records,
		Success:    r.Success(),
	}
}
