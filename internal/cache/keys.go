package cache

import (
	"strconv"
	"strings"
	"time"

	"github.com/smabbasht/AINewsQuake/internal/config"
)

// Namespace is the Redis key prefix for the AINewsQuake application.
const Namespace = "ainewsquake"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Impact Query Keys --------------------------------------------------------

// ImpactQueryKey caches one aggregator query result. An empty ticker list is
// the "all tickers" bucket; boundaries are unix seconds so equal queries share
// a key regardless of the caller's location.
func ImpactQueryKey(tickers []string, from, to time.Time) string {
	scope := "all"
	if len(tickers) > 0 {
		scope = strings.Join(tickers, ",")
	}
	return formatKey("impact", scope,
		strconv.FormatInt(from.Unix(), 10), strconv.FormatInt(to.Unix(), 10))
}

// ImpactTTL returns the TTL for cached impact queries. Impacts change whenever
// a backfill lands, so they never earn the long bucket.
func ImpactTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

// --- Ingestion Keys -----------------------------------------------------------

// EventCountKey caches per-ticker event counts shown in run summaries.
func EventCountKey(ticker string) string {
	return formatKey("count", "events", ticker)
}

// TickCountKey caches per-ticker tick counts shown in run summaries.
func TickCountKey(ticker string) string {
	return formatKey("count", "ticks", ticker)
}

// CountTTL returns the TTL for count keys.
func CountTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLShort)
}

// FormatCacheKey is exported for dynamic key construction when patterns are
// not covered by helpers.
func FormatCacheKey(parts ...string) string {
	return formatKey(parts...)
}

