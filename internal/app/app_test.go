package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shanehull/goldbot/internal/app"
	"github.com/shanehull/goldbot/internal/config"
)

type pageFetcher map[string]string

func (p pageFetcher) Fetch(_ context.Context, url string) (string, error) {
	body, ok := p[url]
	if !ok {
		return "", errors.New("unreachable")
	}
	return body, nil
}

func baseConfig() config.Config {
	return config.Config{
		Port:           8080,
		FetchTimeout:   time.Second,
		MaxConcurrency: 2,
		ReportTimezone: "UTC",
		ReportLocale:   "en",
	}
}

func TestNew_BuildsReport(t *testing.T) {
	t.Parallel()

	f := pageFetcher{
		"https://www.tgju.org/profile/geram18": `<p>gram was 45,000,000 rials</p><p>real price: 43,000,000 rials</p>`,
	}
	a, err := app.New(baseConfig(), f, nil)
	require.NoError(t, err)

	a.Reports.WithClock(func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC) })
	out := a.Reports.BuildReport(t.Context())

	assert.True(t, strings.HasPrefix(out, "🕒 2025-03-01 09:30 (UTC)\n"))
	assert.Contains(t, out, "قیمت: 4,500,000 تومان")
	assert.Contains(t, out, "قیمت: 20,736,000 تومان")
	assert.Contains(t, out, "[fetch error]")
}

func TestNew_SourcesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sources.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[instrument]]
name = "usd"
url = "https://usd.example.test"
  [[instrument.strategy]]
  kind = "ocr"
`), 0o600))

	cfg := baseConfig()
	cfg.SourcesFile = path
	_, err := app.New(cfg, pageFetcher{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown strategy kind "ocr"`)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.MaxConcurrency = 0
	_, err := app.New(cfg, pageFetcher{}, nil)
	require.Error(t, err)
}

func TestLogSources(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	a, err := app.New(baseConfig(), pageFetcher{}, zap.New(core))
	require.NoError(t, err)

	a.LogSources()
	entries := logs.FilterMessage("source configured").All()
	require.Len(t, entries, 6)
	assert.Equal(t, "gold_gram", entries[0].ContextMap()["instrument"])
}
