package newsobs

import (
	"context"

	"signal-screener/internal/interfaces"
	"signal-screener/internal/logger"
	"signal-screener/internal/trace"
	"signal-screener/internal/types"
)

// observableSource wraps a HeadlineSource with logging and tracing
type observableSource struct {
	source interfaces.HeadlineSource
}

// Compile-time interface check
var _ interfaces.HeadlineSource = (*observableSource)(nil)

// Wrap wraps a headline source with observability middleware
func Wrap(source interfaces.HeadlineSource) interfaces.HeadlineSource {
	return &observableSource{source: source}
}

func (ob *observableSource) ID() string {
	return ob.source.ID()
}

// Headlines fetches headlines with observability
func (ob *observableSource) Headlines(ctx context.Context) ([]string, error) {
	ctx, span := trace.StartSpan(ctx, "news.Headlines")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching headlines", "source", ob.source.ID())

	headlines, err := ob.source.Headlines(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch headlines", err,
			"source", ob.source.ID(),
			"class", types.ErrorClass(err),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Headlines fetched", "source", ob.source.ID(), "count", len(headlines))
	return headlines, nil
}
