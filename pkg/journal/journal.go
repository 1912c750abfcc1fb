package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TickerRecord captures the per-ticker outcome of one ingestion run.
type TickerRecord struct {
	Ticker         string `json:"ticker"`
	EventsFetched  int    `json:"events_fetched"`
	EventsInserted int    `json:"events_inserted"`
	EventsRejected int    `json:"events_rejected"`
	TicksFetched   int    `json:"ticks_fetched"`
	TicksInserted  int    `json:"ticks_inserted"`
	TicksRejected  int    `json:"ticks_rejected"`
	DurationMS     int64  `json:"duration_ms"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// RunRecord captures an end-to-end ingestion run for audit and analysis.
type RunRecord struct {
	Timestamp  time.Time      `json:"timestamp"`
	RunNumber  int            `json:"run_number"`
	From       time.Time      `json:"from"`
	To         time.Time      `json:"to"`
	NewsOnly   bool           `json:"news_only"`
	Concurrent bool           `json:"concurrent"`
	Tickers    []TickerRecord `json:"tickers"`
	Success    bool           `json:"success"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Writer persists run records to a directory as JSON files (journal style).
type Writer struct {
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// WriteRun writes a run record to a timestamped JSON file.
func (w *Writer) WriteRun(rec *RunRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	rec.RunNumber = w.seq
	name := fmt.Sprintf("run_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
