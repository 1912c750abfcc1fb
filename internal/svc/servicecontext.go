package svc

import (
	"context"
	"errors"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "github.com/smabbasht/AINewsQuake/internal/cache"
	"github.com/smabbasht/AINewsQuake/internal/config"
	"github.com/smabbasht/AINewsQuake/internal/impact"
	"github.com/smabbasht/AINewsQuake/internal/store"
	marketpkg "github.com/smabbasht/AINewsQuake/pkg/marketdata"
	_ "github.com/smabbasht/AINewsQuake/pkg/marketdata/databento"
	newspkg "github.com/smabbasht/AINewsQuake/pkg/news"
	_ "github.com/smabbasht/AINewsQuake/pkg/news/finnhub"
)

// ErrCacheMiss is the not-found sentinel for the shared Redis cache node.
var ErrCacheMiss = errors.New("ainewsquake: cache miss")

// ServiceContext wires configuration, providers and storage for the CLIs.
type ServiceContext struct {
	Config config.Config

	NewsConfig    *newspkg.Config
	NewsProviders map[string]newspkg.Provider
	DefaultNews   newspkg.Provider

	MarketConfig    *marketpkg.Config
	MarketProviders map[string]marketpkg.Provider
	DefaultMarket   marketpkg.Provider

	DBConn sqlx.SqlConn
	Store  *store.Store
	Cache  cache.Cache
	TTLs   cachekeys.TTLSet

	Aggregator *impact.Aggregator
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config: c,
		TTLs:   cachekeys.NewTTLSet(c.TTL),
	}

	if c.News.Value != nil {
		newsCfg := c.News.Value
		providers, err := newsCfg.BuildProviders()
		if err != nil {
			log.Fatalf("failed to build news providers: %v", err)
		}
		svc.NewsConfig = newsCfg
		svc.NewsProviders = providers
		if newsCfg.Default != "" {
			svc.DefaultNews = providers[newsCfg.Default]
		}
	}

	if c.Market.Value != nil {
		marketCfg := c.Market.Value
		providers, err := marketCfg.BuildProviders()
		if err != nil {
			log.Fatalf("failed to build market providers: %v", err)
		}
		svc.MarketConfig = marketCfg
		svc.MarketProviders = providers
		if marketCfg.Default != "" {
			svc.DefaultMarket = providers[marketCfg.Default]
		}
	}

	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		svc.DBConn = conn
		svc.Store = store.NewStore(conn)
	}

	if len(c.Redis.Host) > 0 {
		svc.Cache = cache.NewNode(redis.MustNewRedis(c.Redis), syncx.NewSingleFlight(),
			cache.NewStat("ainewsquake"), ErrCacheMiss)
	}

	if svc.Store != nil {
		opts := []impact.AggregatorOption{}
		if svc.Cache != nil {
			opts = append(opts, impact.WithCache(svc.Cache, cachekeys.ImpactTTL(svc.TTLs)))
		}
		svc.Aggregator = impact.NewAggregator(svc.Store, opts...)
	}

	return svc
}

// EventCount reports the stored event total for a ticker. Counts are served
// from cache when Redis is configured and may lag ingestion by up to the
// short TTL.
func (s *ServiceContext) EventCount(ctx context.Context, ticker string) (int, error) {
	return s.cachedCount(ctx, cachekeys.EventCountKey(ticker), func() (int, error) {
		return s.Store.CountEvents(ctx, ticker)
	})
}

// TickCount reports the stored tick total for a ticker.
func (s *ServiceContext) TickCount(ctx context.Context, ticker string) (int, error) {
	return s.cachedCount(ctx, cachekeys.TickCountKey(ticker), func() (int, error) {
		return s.Store.CountTicks(ctx, ticker)
	})
}

func (s *ServiceContext) cachedCount(ctx context.Context, key string, load func() (int, error)) (int, error) {
	if s.Cache == nil {
		return load()
	}
	var count int
	if err := s.Cache.GetCtx(ctx, key, &count); err == nil {
		return count, nil
	}
	count, err := load()
	if err != nil {
		return 0, err
	}
	if err := s.Cache.SetWithExpireCtx(ctx, key, count, cachekeys.CountTTL(s.TTLs)); err != nil {
		log.Printf("[svc] failed to cache %s: %v", key, err)
	}
	return count, nil
}
