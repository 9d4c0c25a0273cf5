// Package quote retrieves close-price series from market data providers.
//
// Providers implement interfaces.PriceSource and may fail in any way. The
// Fetcher sits in front of one provider and turns every failure into an
// absent series, logging the cause with its error class.
package quote

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"signal-screener/internal/interfaces"
	"signal-screener/internal/logger"
	"signal-screener/internal/store"
	"signal-screener/internal/types"
)

// Fetcher implements interfaces.SeriesFetcher.
type Fetcher struct {
	source  interfaces.PriceSource
	timeout time.Duration
	now     func() time.Time
}

var _ interfaces.SeriesFetcher = (*Fetcher)(nil)

// NewFetcher wraps source. A zero timeout leaves the deadline to ctx.
func NewFetcher(source interfaces.PriceSource, timeout time.Duration) *Fetcher {
	return &Fetcher{source: source, timeout: timeout, now: time.Now}
}

// Upstream names the provider behind this fetcher.
func (f *Fetcher) Upstream() string {
	return f.source.Name()
}

// Fetch returns the close prices of ticker over the last lookbackDays,
// ascending by time. ok is false when no usable series was produced.
func (f *Fetcher) Fetch(ctx context.Context, ticker string, lookbackDays int, res types.Resolution) (points []types.PricePoint, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := &types.SourceFetchError{Source: f.source.Name(), Err: fmt.Errorf("panic: %v", r)}
			logger.Upstream(ctx, f.source.Name(), types.ErrorClass(err), err, "ticker", ticker)
			points, ok = nil, false
		}
	}()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	to := f.now()
	from := to.AddDate(0, 0, -lookbackDays)

	pts, err := f.source.Candles(ctx, ticker, from, to, res)
	if err != nil {
		logger.Upstream(ctx, f.source.Name(), types.ErrorClass(err), err, "ticker", ticker)
		return nil, false
	}
	if len(pts) == 0 {
		logger.Debug(ctx, "No price data", "source", f.source.Name(), "ticker", ticker)
		return nil, false
	}

	sortPoints(pts)
	return pts, true
}

// NewSource builds the provider selected by cfg.Quote.Provider. Credentials
// are read from the environment; a provider without them is still returned
// and fails each fetch.
func NewSource(cfg *store.Config) (interfaces.PriceSource, error) {
	switch strings.ToUpper(cfg.Quote.Provider) {
	case "FINNHUB":
		cache, err := NewCache(cfg.Quote.CacheDir, cfg.Quote.CacheTTL)
		if err != nil {
			return nil, err
		}
		return NewFinnhubSource(cfg.Quote.BaseURL, os.Getenv(cfg.Quote.APIKeyEnv), WithCache(cache)), nil
	case "YAHOO":
		return NewYahooSource(), nil
	case "KITE":
		return NewKiteSource(os.Getenv("KITE_API_KEY"), os.Getenv("KITE_ACCESS_TOKEN"), cfg.Quote.Exchange), nil
	case "STATIC":
		return NewStaticSource(), nil
	default:
		return nil, fmt.Errorf("unknown quote provider: %s", cfg.Quote.Provider)
	}
}

// CleanupCache removes expired payloads from the configured quote cache.
// It is a no-op when no cache directory is configured.
func CleanupCache(cfg *store.Config) error {
	cache, err := NewCache(cfg.Quote.CacheDir, cfg.Quote.CacheTTL)
	if err != nil {
		return err
	}
	return cache.CleanupExpired()
}
