package finnhub

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
)

// This test uses go-vcr to record/replay a real company-news call.
// It skips by default if cassette is absent and RECORD_CASSETTES != 1.
func TestClient_FetchPage_Recorded(t *testing.T) {
	cassette := filepath.Join("testdata", "cassettes", "finnhub_company_news.yaml")
	if _, err := os.Stat(cassette); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s", cassette)
		}
		err := os.MkdirAll(filepath.Dir(cassette), 0o755)
		assert.NoError(t, err, "mkdir cassettes dir should succeed")
	}

	apiKey := os.Getenv("FINNHUB_API_KEY")
	if apiKey == "" {
		apiKey = "replayed"
	}

	r, err := recorder.New(cassette)
	assert.NoError(t, err, "recorder.New should not error")
	assert.NotNil(t, r, "recorder should not be nil")
	defer func() { _ = r.Stop() }()

	httpClient := &http.Client{Transport: r}
	client, err := NewClient(apiKey, WithHTTPClient(httpClient), WithMinInterval(0))
	assert.NoError(t, err)

	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	items, err := client.FetchPage(context.Background(), "AAPL", from, until)
	assert.NoError(t, err, "FetchPage should not error")
	assert.NotEmpty(t, items, "AAPL should have news in the recorded window")
	for _, item := range items {
		assert.NotEmpty(t, item.Headline)
		assert.False(t, item.Published.IsZero())
	}
}
