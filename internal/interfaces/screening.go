package interfaces

import (
	"context"
	"time"

	"signal-screener/internal/types"
)

// HeadlineSource fetches raw headlines from one forum or news page, in the
// order the page presents them. Every call re-fetches.
type HeadlineSource interface {
	ID() string
	Headlines(ctx context.Context) ([]string, error)
}

// PriceSource retrieves close prices for a ticker over [from, to].
// An empty slice with a nil error means the upstream had no data.
type PriceSource interface {
	Name() string
	Candles(ctx context.Context, ticker string, from, to time.Time, res types.Resolution) ([]types.PricePoint, error)
}

// SeriesFetcher is the failure-funnelling boundary in front of a
// PriceSource: ok is false whenever no usable series could be produced.
type SeriesFetcher interface {
	Fetch(ctx context.Context, ticker string, lookbackDays int, res types.Resolution) (points []types.PricePoint, ok bool)
	Upstream() string
}
