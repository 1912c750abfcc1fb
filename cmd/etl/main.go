package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/smabbasht/AINewsQuake/internal/cli"
	"github.com/smabbasht/AINewsQuake/internal/config"
	"github.com/smabbasht/AINewsQuake/internal/etl"
	"github.com/smabbasht/AINewsQuake/internal/svc"
	"github.com/smabbasht/AINewsQuake/pkg/journal"
)

const dateLayout = "2006-01-02"

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	var (
		configPath  = flag.String("config", "etc/ainewsquake.yaml", "path to application config")
		tickersFlag = flag.String("tickers", "", "comma-separated tickers, overrides config")
		fromFlag    = flag.String("from", "", "start date YYYY-MM-DD, overrides config")
		toFlag      = flag.String("to", "", "end date YYYY-MM-DD inclusive, overrides config")
		newsOnly    = flag.Bool("news-only", false, "ingest news events only, skip market ticks")
		concurrent  = flag.Bool("concurrent", false, "ingest tickers in parallel")
		initDB      = flag.Bool("init-db", false, "create tables, indexes and views before ingesting")
	)
	flag.Parse()

	log.Println("[main] Starting ingestion run...")

	appCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[main] Failed to load config %s: %v", *configPath, err)
	}
	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	svcCtx := svc.NewServiceContext(*appCfg)
	if svcCtx.Store == nil {
		log.Fatalf("[main] Postgres DSN is required for ingestion")
	}
	if svcCtx.DefaultNews == nil {
		log.Fatalf("[main] No default news provider configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *initDB {
		log.Println("[main] Initializing database schema...")
		if err := svcCtx.Store.InitSchema(ctx); err != nil {
			log.Fatalf("[main] Schema initialization failed: %v", err)
		}
		log.Println("[main] Schema ready")
	}

	runCfg, err := buildRunConfig(appCfg, *tickersFlag, *fromFlag, *toFlag, *newsOnly, *concurrent)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}

	pipeline := etl.NewPipeline(
		svcCtx.DefaultNews,
		svcCtx.DefaultMarket,
		svcCtx.Store,
		etl.WithJournal(journal.NewWriter(appCfg.ETL.JournalDir)),
	)

	report, err := pipeline.Run(ctx, runCfg)
	if err != nil {
		log.Fatalf("[main] Run aborted: %v", err)
	}

	logReport(report)
	logStoredTotals(ctx, svcCtx, runCfg.Tickers)
	if !report.Success() {
		os.Exit(1)
	}
}

// logStoredTotals shows cumulative database totals after the run, so replays
// that insert nothing still confirm what the store holds.
func logStoredTotals(ctx context.Context, svcCtx *svc.ServiceContext, tickers []string) {
	log.Println("[main] Stored totals:")
	for _, ticker := range tickers {
		events, err := svcCtx.EventCount(ctx, ticker)
		if err != nil {
			log.Printf("  - %s: count events: %v", ticker, err)
			continue
		}
		ticks, err := svcCtx.TickCount(ctx, ticker)
		if err != nil {
			log.Printf("  - %s: count ticks: %v", ticker, err)
			continue
		}
		log.Printf("  - %s: %d events / %d ticks", ticker, events, ticks)
	}
}

// buildRunConfig merges CLI flags over config defaults. Flags always win.
func buildRunConfig(cfg *config.Config, tickersFlag, fromFlag, toFlag string, newsOnly, concurrent bool) (etl.RunConfig, error) {
	tickers := cfg.ETL.Tickers
	if strings.TrimSpace(tickersFlag) != "" {
		tickers = splitTickers(tickersFlag)
	}

	fromRaw := cfg.ETL.From
	if fromFlag != "" {
		fromRaw = fromFlag
	}
	toRaw := cfg.ETL.To
	if toFlag != "" {
		toRaw = toFlag
	}

	from, err := time.ParseInLocation(dateLayout, fromRaw, time.UTC)
	if err != nil {
		return etl.RunConfig{}, err
	}
	to, err := time.ParseInLocation(dateLayout, toRaw, time.UTC)
	if err != nil {
		return etl.RunConfig{}, err
	}
	// -to names a calendar day; cover it fully.
	to = to.Add(24*time.Hour - time.Second)

	concurrency := 1
	if concurrent {
		concurrency = cfg.ETL.Concurrency
		if concurrency <= 1 {
			concurrency = 4
		}
	}

	var keywords []string
	if cfg.News.Value != nil {
		keywords = cfg.News.Value.Keywords
	}

	runCfg := etl.RunConfig{
		Tickers:     tickers,
		From:        from,
		To:          to,
		Keywords:    keywords,
		NewsOnly:    newsOnly || cfg.ETL.NewsOnly,
		Concurrency: concurrency,
	}
	return runCfg, runCfg.Validate()
}

func splitTickers(raw string) []string {
	parts := strings.Split(raw, ",")
	tickers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tickers = append(tickers, trimmed)
		}
	}
	return tickers
}

func logReport(report *etl.RunReport) {
	log.Printf("[main] Run finished in %s", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	for _, ticker := range report.Tickers {
		if ticker.Failed() {
			log.Printf("  - %s: FAILED after %s: %v", ticker.Ticker, ticker.Duration.Round(time.Millisecond), ticker.Err)
			continue
		}
		log.Printf("  - %s: events %d fetched / %d inserted / %d rejected; ticks %d fetched / %d inserted / %d rejected (%s)",
			ticker.Ticker,
			ticker.EventsFetched, ticker.EventsInserted, ticker.EventsRejected,
			ticker.TicksFetched, ticker.TicksInserted, ticker.TicksRejected,
			ticker.Duration.Round(time.Millisecond))
	}
	log.Printf("[main] Totals: %d new events, %d new ticks", report.TotalEventsInserted(), report.TotalTicksInserted())
	if failed := report.FailedTickers(); len(failed) > 0 {
		log.Printf("[main] Failed tickers: %s", strings.Join(failed, ","))
	}
}
