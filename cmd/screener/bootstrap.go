package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"signal-screener/internal/catalog"
	"signal-screener/internal/logger"
	"signal-screener/internal/news"
	"signal-screener/internal/news/newsobs"
	"signal-screener/internal/quote"
	"signal-screener/internal/quote/quoteobs"
	"signal-screener/internal/reportlog"
	"signal-screener/internal/screener"
	"signal-screener/internal/store"
	"signal-screener/internal/trace"
)

// initializeSystem loads .env and initializes logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig loads the YAML config, falling back to defaults when the file
// does not exist
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfigOrDefault(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// loadCatalog loads the ticker catalog. An empty path yields an empty
// catalog; any load failure is returned as a *catalog.LoadError.
func loadCatalog(ctx context.Context, path string) (*catalog.Catalog, error) {
	if path == "" {
		logger.Warn(ctx, "No ticker catalog configured - headlines pass through unchanged")
		return catalog.Empty(), nil
	}

	cat, err := catalog.LoadFile(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load ticker catalog", err, "path", path)
		return nil, err
	}
	logger.Info(ctx, "Ticker catalog loaded", "path", path, "symbols", cat.Len())
	return cat, nil
}

// initializeAggregator builds the headline aggregator with observability
func initializeAggregator(cfg *store.Config, cat *catalog.Catalog) (*news.Aggregator, error) {
	return news.NewFromConfig(cfg, cat, newsobs.Wrap)
}

// initializeScreener builds the quote provider and the screener around it
func initializeScreener(ctx context.Context, cfg *store.Config) (*screener.Screener, error) {
	src, err := quote.NewSource(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Quote.Provider == "STATIC" {
		logger.Warn(ctx, "Using STATIC synthetic price data")
	} else {
		logger.Info(ctx, "Using quote provider", "provider", cfg.Quote.Provider)
	}

	fetcher := quote.NewFetcher(quoteobs.Wrap(src), cfg.Screener.FetchTimeout)
	return screener.New(fetcher, screener.ConfigFrom(cfg), cfg), nil
}

// compressOldReports gzips journal files past the retention window
func compressOldReports(ctx context.Context, j *reportlog.Journal, retentionDays int) {
	if err := j.CompressOlder(retentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old reports", "error", err)
	}
}

// cleanupQuoteCache drops expired quote payloads from the cache directory
func cleanupQuoteCache(ctx context.Context, cfg *store.Config) {
	if err := quote.CleanupCache(cfg); err != nil {
		logger.Warn(ctx, "Failed to clean quote cache", "error", err)
	}
}
