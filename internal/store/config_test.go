package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-screener/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "FINNHUB", cfg.Quote.Provider)
	assert.Equal(t, types.ResolutionDay, cfg.Quote.Resolution)
	assert.Equal(t, 1, cfg.Screener.Concurrency)
	assert.Equal(t, time.Second, cfg.Screener.MinInterval)
	assert.Len(t, cfg.News.Sources, 7)

	th, err := cfg.RiskThresholds("medium")
	require.NoError(t, err)
	assert.Equal(t, types.Thresholds{StopLoss: 0.05, TakeProfit: 0.10}, th)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
quote:
  provider: static
  lookback_days: 10
screener:
  concurrency: 4
  min_interval: 250ms
news:
  sources:
    - id: wsb
      kind: reddit
      url: https://www.reddit.com/r/wallstreetbets/.json
sectors:
  Tech: [AAPL, MSFT]
risk_profiles:
  Medium: {stop_loss: 0.02, take_profit: 0.04}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "STATIC", cfg.Quote.Provider)
	assert.Equal(t, 10, cfg.Quote.LookbackDays)
	assert.Equal(t, 4, cfg.Screener.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Screener.MinInterval)
	assert.Equal(t, []string{"wsb"}, cfg.SourceIDs())

	tickers, err := cfg.Universe("tech")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, tickers)

	_, err = cfg.Universe("Energy")
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"provider":      "quote:\n  provider: BLOOMBERG\n",
		"resolution":    "quote:\n  resolution: X\n",
		"html selector": "news:\n  sources:\n    - {id: f, kind: html, url: 'https://example.com'}\n",
		"duplicate ids": "news:\n  sources:\n    - {id: a, kind: reddit, url: 'https://a.example.com'}\n    - {id: a, kind: reddit, url: 'https://b.example.com'}\n",
		"threshold":     "risk_profiles:\n  Low: {stop_loss: 1.5, take_profit: 0.1}\n",
		"empty sector":  "sectors:\n  Tech: []\n",
		"bad yaml":      "quote: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigOrDefault_Missing(t *testing.T) {
	cfg, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Tech", cfg.Profile.Sector)
}

func TestSource(t *testing.T) {
	cfg := Default()

	s, ok := cfg.Source("forbes")
	require.True(t, ok)
	assert.Equal(t, "html", s.Kind)
	assert.Equal(t, "h3.HNChVRGc", s.Selector)

	_, ok = cfg.Source("nope")
	assert.False(t, ok)
}

func TestLoadConfig_Example(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.News.Concurrency)
	assert.Equal(t, 10*time.Minute, cfg.News.CacheTTL)
	assert.Len(t, cfg.News.Sources, 3)
	assert.Equal(t, 25, cfg.News.Sources[1].MaxHeadlines)
	assert.Equal(t, 14, cfg.ReportLog.RetentionDays)

	tickers, err := cfg.Universe("finance")
	require.NoError(t, err)
	assert.Equal(t, []string{"JPM", "BAC", "WFC", "GS", "MS", "C"}, tickers)
}
