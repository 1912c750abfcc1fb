package etl

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/smabbasht/AINewsQuake/internal/model"
	"github.com/smabbasht/AINewsQuake/pkg/marketdata"
	"github.com/smabbasht/AINewsQuake/pkg/news"
	"github.com/smabbasht/AINewsQuake/pkg/sentiment"
)

// defaultEventIDPrefix namespaces generated event IDs by origin.
const defaultEventIDPrefix = "fh"

// Normalizer converts raw provider payloads into validated canonical rows.
// Invalid records are dropped and counted, never stored and never fatal.
type Normalizer struct {
	scorer   *sentiment.Scorer
	idPrefix string
}

// NewNormalizer builds a normalizer around the given scorer.
func NewNormalizer(scorer *sentiment.Scorer) *Normalizer {
	if scorer == nil {
		scorer = sentiment.NewScorer()
	}
	return &Normalizer{scorer: scorer, idPrefix: defaultEventIDPrefix}
}

// EventID derives a deterministic identifier from event content, so the
// same headline re-fetched on a later run maps to the same row.
func (n *Normalizer) EventID(ticker string, published time.Time, headline string) string {
	digest := md5.Sum([]byte(headline))
	return fmt.Sprintf("%s_%s_%s_%s",
		n.idPrefix,
		strings.ToUpper(ticker),
		published.UTC().Format("20060102"),
		hex.EncodeToString(digest[:])[:8],
	)
}

// NormalizeEvents maps raw news items to canonical events, scoring each
// headline. Returns valid events and the number of rejected items.
func (n *Normalizer) NormalizeEvents(items []news.Item, ticker string) ([]model.NewsEvent, int) {
	events := make([]model.NewsEvent, 0, len(items))
	rejected := 0
	for _, item := range items {
		score := n.scorer.Score(item.Headline)
		event := model.NewsEvent{
			EventID:     n.EventID(ticker, item.Published, item.Headline),
			Ticker:      strings.ToUpper(ticker),
			PublishedAt: item.Published.UTC(),
			Headline:    strings.TrimSpace(item.Headline),
			Source:      strings.TrimSpace(item.Source),
			Sentiment:   &score,
		}
		if err := event.Validate(); err != nil {
			rejected++
			logx.Infof("etl: reject event %s: %v", ticker, err)
			continue
		}
		events = append(events, event)
	}
	return events, rejected
}

// NormalizeTicks maps raw bars to canonical ticks, enforcing the OHLC
// invariant. Returns valid ticks and the number of rejected bars.
func (n *Normalizer) NormalizeTicks(bars []marketdata.Bar, ticker string) ([]model.MarketTick, int) {
	ticks := make([]model.MarketTick, 0, len(bars))
	rejected := 0
	for _, bar := range bars {
		tick := model.MarketTick{
			Time:   bar.Time.UTC(),
			Ticker: strings.ToUpper(ticker),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		}
		if err := tick.Validate(); err != nil {
			rejected++
			logx.Infof("etl: reject tick %s: %v", ticker, err)
			continue
		}
		ticks = append(ticks, tick)
	}
	return ticks, rejected
}
