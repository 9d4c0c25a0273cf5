package quote

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"signal-screener/internal/types"
)

const staticSource = "static"

// StaticSource produces a deterministic synthetic series per ticker. It is
// used for dry runs and needs no credentials.
type StaticSource struct{}

func NewStaticSource() *StaticSource { return &StaticSource{} }

func (s *StaticSource) Name() string { return staticSource }

// Candles implements interfaces.PriceSource. The same ticker and window
// always yield the same series.
func (s *StaticSource) Candles(ctx context.Context, ticker string, from, to time.Time, res types.Resolution) ([]types.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, &types.SourceFetchError{Source: staticSource, Err: err}
	}

	step := resolutionStep(res)
	start := from.Truncate(step)
	n := int(to.Sub(start)/step) + 1
	if n <= 0 {
		return []types.PricePoint{}, nil
	}

	h := fnv.New64a()
	h.Write([]byte(ticker))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	base := 50 + rng.Float64()*950
	drift := (rng.Float64() - 0.5) * 0.01

	points := make([]types.PricePoint, 0, n)
	c := base
	for i := 0; i < n; i++ {
		c *= 1 + drift + (rng.Float64()-0.5)*0.02
		points = append(points, types.PricePoint{
			Timestamp: start.Add(time.Duration(i) * step).Unix(),
			Close:     c,
		})
	}
	return points, nil
}

func resolutionStep(res types.Resolution) time.Duration {
	switch res {
	case types.Resolution1Min:
		return time.Minute
	case types.Resolution5Min:
		return 5 * time.Minute
	case types.Resolution15Min:
		return 15 * time.Minute
	case types.Resolution30Min:
		return 30 * time.Minute
	case types.Resolution60Min:
		return time.Hour
	case types.ResolutionWeek:
		return 7 * 24 * time.Hour
	case types.ResolutionMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
