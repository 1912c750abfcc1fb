package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/smabbasht/AINewsQuake/internal/cli"
	"github.com/smabbasht/AINewsQuake/internal/config"
	"github.com/smabbasht/AINewsQuake/internal/impact"
	"github.com/smabbasht/AINewsQuake/internal/model"
	"github.com/smabbasht/AINewsQuake/internal/svc"
)

const dateLayout = "2006-01-02"

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	var (
		configPath  = flag.String("config", "etc/ainewsquake.yaml", "path to application config")
		tickersFlag = flag.String("tickers", "", "comma-separated tickers, empty means all")
		fromFlag    = flag.String("from", "", "start date YYYY-MM-DD")
		toFlag      = flag.String("to", "", "end date YYYY-MM-DD inclusive")
		csvPath     = flag.String("csv", "", "write results to this CSV file instead of the log summary")
	)
	flag.Parse()

	appCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[main] Failed to load config %s: %v", *configPath, err)
	}
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	svcCtx := svc.NewServiceContext(*appCfg)
	if svcCtx.Aggregator == nil {
		log.Fatalf("[main] Postgres DSN is required for impact queries")
	}

	from, to, err := resolveRange(appCfg, *fromFlag, *toFlag)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}

	var tickers []string
	if strings.TrimSpace(*tickersFlag) != "" {
		for _, part := range strings.Split(*tickersFlag, ",") {
			if trimmed := strings.ToUpper(strings.TrimSpace(part)); trimmed != "" {
				tickers = append(tickers, trimmed)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	impacts, err := svcCtx.Aggregator.Query(ctx, tickers, from, to)
	if err != nil {
		log.Fatalf("[main] Impact query failed: %v", err)
	}

	if *csvPath != "" {
		if err := writeCSVFile(*csvPath, impacts); err != nil {
			log.Fatalf("[main] %v", err)
		}
		log.Printf("[main] Wrote %d rows to %s", len(impacts), *csvPath)
		return
	}

	log.Printf("[main] %d events in [%s, %s]", len(impacts), from.Format(dateLayout), to.Format(dateLayout))
	for _, row := range impacts {
		if !row.HasData() {
			log.Printf("  - %s %s  sentiment=%s  (no market data in window)",
				row.Ticker, row.PublishedAt.Format(time.RFC3339), formatPtr(row.Sentiment))
			continue
		}
		log.Printf("  - %s %s  sentiment=%s volatility=%s spike=%s ticks=%d",
			row.Ticker, row.PublishedAt.Format(time.RFC3339),
			formatPtr(row.Sentiment), formatPtr(row.Volatility),
			formatPtr(row.VolumeSpike), row.TickCount)
	}
}

func resolveRange(cfg *config.Config, fromFlag, toFlag string) (time.Time, time.Time, error) {
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
		return time.Time{}, time.Time{}, err
	}
	to, err := time.ParseInLocation(dateLayout, toRaw, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to.Add(24*time.Hour - time.Second), nil
}

func writeCSVFile(path string, impacts []model.VolatilityImpact) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := impact.WriteCSV(file, impacts); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func formatPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
