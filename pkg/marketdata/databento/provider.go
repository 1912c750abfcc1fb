package databento

import (
	"net/http"

	"github.com/smabbasht/AINewsQuake/pkg/marketdata"
)

func init() {
	marketdata.RegisterProvider("databento", func(name string, cfg *marketdata.ProviderConfig) (marketdata.Provider, error) {
		opts := []Option{}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Dataset != "" {
			opts = append(opts, WithDataset(cfg.Dataset))
		}
		if cfg.Schema != "" {
			opts = append(opts, WithSchema(cfg.Schema))
		}
		if cfg.BatchDays > 0 {
			opts = append(opts, WithBatchDays(cfg.BatchDays))
		}
		if cfg.HTTPTimeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.MaxRetries > 0 {
			opts = append(opts, WithMaxRetries(cfg.MaxRetries))
		}
		return NewClient(cfg.APIKey, opts...)
	})
}
