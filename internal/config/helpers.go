package config

import (
	"github.com/smabbasht/AINewsQuake/pkg/marketdata"
	"github.com/smabbasht/AINewsQuake/pkg/news"
)

// MustLoadNews loads etc/news.yaml from the project root and panics on error.
// It isolates news config so tests that only need a provider never require
// the full application config.
func MustLoadNews() *news.Config {
	return news.MustLoad()
}

// MustBuildNewsProviders loads news config from the default path and builds
// provider instances; returns the map and default provider name.
func MustBuildNewsProviders() (map[string]news.Provider, string) {
	cfg := MustLoadNews()
	providers, err := cfg.BuildProviders()
	if err != nil {
		panic(err)
	}
	return providers, cfg.Default
}

// MustLoadMarket loads the default market data configuration and panics on error.
func MustLoadMarket() *marketdata.Config {
	return marketdata.MustLoad()
}
