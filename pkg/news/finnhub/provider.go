package finnhub

import (
	"net/http"

	"github.com/smabbasht/AINewsQuake/pkg/news"
)

func init() {
	news.RegisterProvider("finnhub", func(name string, cfg *news.ProviderConfig) (news.Provider, error) {
		opts := []Option{}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.HTTPTimeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.MaxRetries > 0 {
			opts = append(opts, WithMaxRetries(cfg.MaxRetries))
		}
		if cfg.PageCap > 0 {
			opts = append(opts, WithPageCap(cfg.PageCap))
		}
		if cfg.MinInterval > 0 {
			opts = append(opts, WithMinInterval(cfg.MinInterval))
		}
		client, err := NewClient(cfg.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return news.NewBackfiller(client), nil
	})
}
