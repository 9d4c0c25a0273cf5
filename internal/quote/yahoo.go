package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"signal-screener/internal/types"
)

const yahooSource = "yahoo"

// YahooSource reads chart bars through the finance-go client.
type YahooSource struct{}

func NewYahooSource() *YahooSource { return &YahooSource{} }

func (y *YahooSource) Name() string { return yahooSource }

func yahooInterval(res types.Resolution) (datetime.Interval, error) {
	switch res {
	case types.Resolution1Min:
		return datetime.Interval("1m"), nil
	case types.Resolution5Min:
		return datetime.Interval("5m"), nil
	case types.Resolution15Min:
		return datetime.Interval("15m"), nil
	case types.Resolution30Min:
		return datetime.Interval("30m"), nil
	case types.Resolution60Min:
		return datetime.Interval("60m"), nil
	case types.ResolutionDay:
		return datetime.OneDay, nil
	case types.ResolutionWeek:
		return datetime.Interval("1wk"), nil
	case types.ResolutionMonth:
		return datetime.Interval("1mo"), nil
	}
	return "", fmt.Errorf("resolution %q not supported by yahoo", res)
}

// Candles implements interfaces.PriceSource. The finance-go client is not
// context aware, so the iteration runs in its own goroutine and is abandoned
// when ctx ends.
func (y *YahooSource) Candles(ctx context.Context, ticker string, from, to time.Time, res types.Resolution) ([]types.PricePoint, error) {
	interval, err := yahooInterval(res)
	if err != nil {
		return nil, &types.SourceFetchError{Source: yahooSource, Err: err}
	}

	return runBlocking(ctx, yahooSource, func() ([]types.PricePoint, error) {
		params := &chart.Params{
			Symbol:   ticker,
			Start:    datetime.New(&from),
			End:      datetime.New(&to),
			Interval: interval,
		}

		iter := chart.Get(params)
		points := make([]types.PricePoint, 0)
		for iter.Next() {
			bar := iter.Bar()
			closePrice, _ := bar.Close.Float64()
			points = append(points, types.PricePoint{Timestamp: int64(bar.Timestamp), Close: closePrice})
		}
		if err := iter.Err(); err != nil {
			return nil, &types.SourceFetchError{Source: yahooSource, Err: fmt.Errorf("chart %s: %w", ticker, err)}
		}
		sortPoints(points)
		return points, nil
	})
}

// runBlocking runs fn and returns its result, or ctx's error if ctx ends
// first. A panic in fn is returned as a SourceFetchError.
func runBlocking(ctx context.Context, source string, fn func() ([]types.PricePoint, error)) ([]types.PricePoint, error) {
	type result struct {
		points []types.PricePoint
		err    error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{nil, &types.SourceFetchError{Source: source, Err: fmt.Errorf("panic: %v", r)}}
			}
		}()
		pts, err := fn()
		done <- result{pts, err}
	}()

	select {
	case r := <-done:
		return r.points, r.err
	case <-ctx.Done():
		return nil, &types.SourceFetchError{Source: source, Err: ctx.Err()}
	}
}
