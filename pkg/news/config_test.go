package news

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{ name string }

func (s *stubProvider) FetchNews(context.Context, string, time.Time, time.Time, []string) ([]Item, error) {
	return nil, nil
}

func init() {
	RegisterProvider("stub", func(name string, cfg *ProviderConfig) (Provider, error) {
		return &stubProvider{name: name}, nil
	})
}

func TestLoadConfigFromReader_Valid(t *testing.T) {
	yaml := `
default: primary
keywords: [earnings, merger]
providers:
  primary:
    type: stub
    base_url: https://news.example/api
    api_key: secret
    page_cap: 250
    http_timeout: 10s
    min_interval: 1s
    max_retries: 3
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.Default)
	assert.Equal(t, []string{"earnings", "merger"}, cfg.Keywords)

	provider := cfg.Providers["primary"]
	require.NotNil(t, provider)
	assert.Equal(t, 250, provider.PageCap)
	assert.Equal(t, 10*time.Second, provider.HTTPTimeout)
	assert.Equal(t, time.Second, provider.MinInterval)

	providers, err := cfg.BuildProviders()
	require.NoError(t, err)
	assert.Contains(t, providers, "primary")
}

func TestLoadConfigFromReader_EnvExpansion(t *testing.T) {
	t.Setenv("NEWS_TEST_KEY", "from-env")
	yaml := `
providers:
  primary:
    type: stub
    api_key: ${NEWS_TEST_KEY}
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Providers["primary"].APIKey)
}

func TestLoadConfigFromReader_UnsupportedType(t *testing.T) {
	yaml := `
providers:
  primary:
    type: nosuch
`
	_, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestLoadConfigFromReader_DefaultMustExist(t *testing.T) {
	yaml := `
default: missing
providers:
  primary:
    type: stub
`
	_, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default provider")
}

func TestLoadConfigFromReader_InvalidDuration(t *testing.T) {
	yaml := `
providers:
  primary:
    type: stub
    min_interval: soon
`
	_, err := LoadConfigFromReader(strings.NewReader(yaml))
	assert.Error(t, err)
}

func TestLoadConfigFromReader_EmptyProviders(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader(`providers: {}`))
	assert.Error(t, err)
}
