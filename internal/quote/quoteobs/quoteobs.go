package quoteobs

import (
	"context"
	"time"

	"signal-screener/internal/interfaces"
	"signal-screener/internal/logger"
	"signal-screener/internal/trace"
	"signal-screener/internal/types"
)

// observableSource wraps a PriceSource with logging and tracing
type observableSource struct {
	source interfaces.PriceSource
}

var _ interfaces.PriceSource = (*observableSource)(nil)

// Wrap wraps a price source with observability middleware
func Wrap(source interfaces.PriceSource) interfaces.PriceSource {
	return &observableSource{source: source}
}

func (ob *observableSource) Name() string {
	return ob.source.Name()
}

// Candles fetches a series with observability
func (ob *observableSource) Candles(ctx context.Context, ticker string, from, to time.Time, res types.Resolution) ([]types.PricePoint, error) {
	ctx, span := trace.StartSpan(ctx, "quote.Candles")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching price series",
		"source", ob.source.Name(),
		"ticker", ticker,
		"resolution", string(res),
		"from", from.Unix(),
		"to", to.Unix(),
	)

	points, err := ob.source.Candles(ctx, ticker, from, to, res)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch price series", err,
			"source", ob.source.Name(),
			"ticker", ticker,
			"class", types.ErrorClass(err),
		)
		return nil, err
	}

	if len(points) == 0 {
		logger.WarnSkip(ctx, 1, "Empty price series", "source", ob.source.Name(), "ticker", ticker)
		return points, nil
	}

	logger.DebugSkip(ctx, 1, "Price series fetched", "source", ob.source.Name(), "ticker", ticker, "count", len(points))
	return points, nil
}
