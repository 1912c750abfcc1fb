package impact

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/smabbasht/AINewsQuake/internal/model"
)

// WriteCSV renders impacts as CSV. Nil metrics render as empty cells so a
// missing window stays distinguishable from a measured zero downstream.
func WriteCSV(w io.Writer, impacts []model.VolatilityImpact) error {
	writer := csv.NewWriter(w)
	header := []string{
		"event_id", "ticker", "published_at", "headline",
		"sentiment_score", "volatility_window", "volume_spike", "tick_count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("impact: write csv header: %w", err)
	}

	for _, impact := range impacts {
		row := []string{
			impact.EventID,
			impact.Ticker,
			impact.PublishedAt.UTC().Format(time.RFC3339),
			impact.Headline,
			formatFloat(impact.Sentiment),
			formatFloat(impact.Volatility),
			formatFloat(impact.VolumeSpike),
			strconv.Itoa(impact.TickCount),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("impact: write csv row %s: %w", impact.EventID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("impact: flush csv: %w", err)
	}
	return nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
