package screener

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-screener/internal/store"
	"signal-screener/internal/types"
)

type fakeFetcher struct {
	series map[string][]types.PricePoint
	delay  time.Duration

	mu       sync.Mutex
	calls    []string
	inFlight int32
	peak     int32
}

func (f *fakeFetcher) Upstream() string { return "fake" }

func (f *fakeFetcher) Fetch(ctx context.Context, ticker string, lookbackDays int, res types.Resolution) ([]types.PricePoint, bool) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, ticker)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, false
		}
	}
	pts, ok := f.series[ticker]
	if !ok || len(pts) == 0 {
		return nil, false
	}
	return pts, true
}

func series(start, end float64) []types.PricePoint {
	return []types.PricePoint{{Timestamp: 1, Close: start}, {Timestamp: 2, Close: (start + end) / 2}, {Timestamp: 3, Close: end}}
}

var medium = types.Thresholds{StopLoss: 0.05, TakeProfit: 0.10}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		start  float64
		end    float64
		status types.Status
		pct    float64
	}{
		{"take profit boundary", 100, 110, types.StatusTakeProfit, 10},
		{"take profit above", 100, 150, types.StatusTakeProfit, 50},
		{"stop loss boundary", 100, 95, types.StatusStopLoss, -5},
		{"stop loss below", 100, 89, types.StatusStopLoss, -11},
		{"hold", 100, 105, types.StatusHold, 5},
		{"flat", 100, 100, types.StatusHold, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify("AAPL", series(tt.start, tt.end), medium)
			assert.Equal(t, tt.status, res.Status)
			require.NotNil(t, res.PercentChange)
			assert.InDelta(t, tt.pct, *res.PercentChange, 1e-9)
			assert.Equal(t, tt.start, *res.StartPrice)
			assert.Equal(t, tt.end, *res.EndPrice)
		})
	}
}

func TestClassify_FullThresholds(t *testing.T) {
	res := Classify("X", series(1, 2), types.Thresholds{StopLoss: 1, TakeProfit: 1})
	assert.Equal(t, types.StatusTakeProfit, res.Status)

	res = Classify("Y", series(1, 0), types.Thresholds{StopLoss: 1, TakeProfit: 1})
	assert.Equal(t, types.StatusStopLoss, res.Status)
}

func TestClassify_ZeroStart(t *testing.T) {
	res := Classify("PENNY", series(0, 5), medium)
	assert.Equal(t, types.StatusError, res.Status)
	assert.Nil(t, res.PercentChange)
	assert.Contains(t, res.Message, "zero")
}

func TestClassify_NoData(t *testing.T) {
	res := Classify("GONE", nil, medium)
	assert.Equal(t, types.StatusError, res.Status)
	assert.Equal(t, "no price data", res.Message)
}

func TestScreen_PartialFailureIsolation(t *testing.T) {
	f := &fakeFetcher{series: map[string][]types.PricePoint{
		"AAPL": series(100, 110),
		"MSFT": series(100, 89),
		"NVDA": series(100, 105),
		"ZERO": series(0, 10),
	}}
	s := New(f, Config{}, nil)

	report, err := s.Screen(context.Background(), []string{"AAPL", "MSFT", "GONE", "NVDA", "ZERO"}, medium)
	require.NoError(t, err)

	assert.Len(t, report.Results, 5)
	assert.Equal(t, types.StatusTakeProfit, report.Results["AAPL"].Status)
	assert.Equal(t, types.StatusStopLoss, report.Results["MSFT"].Status)
	assert.Equal(t, types.StatusError, report.Results["GONE"].Status)
	assert.Equal(t, types.StatusHold, report.Results["NVDA"].Status)
	assert.Equal(t, types.StatusError, report.Results["ZERO"].Status)
	assert.Equal(t, []string{"AAPL", "NVDA"}, report.Selected)
	assert.Equal(t, []string{"AAPL", "MSFT", "GONE", "NVDA", "ZERO"}, report.Tickers)
	assert.NotEmpty(t, report.RunID)
}

func TestScreen_SelectedSetMatchesStatuses(t *testing.T) {
	f := &fakeFetcher{series: map[string][]types.PricePoint{
		"A": series(10, 12), "B": series(10, 10.2), "C": series(10, 8), "D": series(10, 11),
	}}
	report, err := New(f, Config{Concurrency: 4}, nil).Screen(context.Background(), []string{"A", "B", "C", "D", "E"}, medium)
	require.NoError(t, err)

	for _, ticker := range report.Tickers {
		res := report.Results[ticker]
		assert.Equal(t, res.Status.Selected(), contains(report.Selected, ticker), ticker)
	}
	assert.Equal(t, []string{"A", "B", "D"}, report.Selected)
}

func TestScreen_InvalidThresholds(t *testing.T) {
	tests := []struct {
		name  string
		th    types.Thresholds
		field string
	}{
		{"zero stop loss", types.Thresholds{StopLoss: 0, TakeProfit: 0.1}, "stop_loss"},
		{"negative take profit", types.Thresholds{StopLoss: 0.05, TakeProfit: -0.1}, "take_profit"},
		{"stop loss above one", types.Thresholds{StopLoss: 1.5, TakeProfit: 0.1}, "stop_loss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{}
			_, err := New(f, Config{}, nil).Screen(context.Background(), []string{"AAPL"}, tt.th)

			var thErr *types.InvalidThresholdError
			require.True(t, errors.As(err, &thErr))
			assert.Equal(t, tt.field, thErr.Field)
			assert.Empty(t, f.calls)
		})
	}
}

func TestScreen_NormalizesAndDedupes(t *testing.T) {
	f := &fakeFetcher{series: map[string][]types.PricePoint{"AAPL": series(100, 101)}}
	report, err := New(f, Config{}, nil).Screen(context.Background(), []string{" aapl", "AAPL", "", "  "}, medium)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, report.Tickers)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, []string{"AAPL"}, f.calls)
}

func TestScreen_Empty(t *testing.T) {
	report, err := New(&fakeFetcher{}, Config{}, nil).Screen(context.Background(), nil, medium)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Empty(t, report.Selected)
	assert.NotNil(t, report.Selected)
}

func TestScreen_MinIntervalBetweenFetches(t *testing.T) {
	f := &fakeFetcher{series: map[string][]types.PricePoint{}}
	s := New(f, Config{MinInterval: 40 * time.Millisecond, Concurrency: 3}, nil)

	start := time.Now()
	_, err := s.Screen(context.Background(), []string{"A", "B", "C"}, medium)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestScreen_ConcurrencyCap(t *testing.T) {
	f := &fakeFetcher{series: map[string][]types.PricePoint{}, delay: 20 * time.Millisecond}
	s := New(f, Config{Concurrency: 2}, nil)

	_, err := s.Screen(context.Background(), []string{"A", "B", "C", "D", "E", "F"}, medium)
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&f.peak), int32(2))
}

func TestScreen_CancelledContext(t *testing.T) {
	f := &fakeFetcher{series: map[string][]types.PricePoint{"A": series(1, 2)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(f, Config{}, nil).Screen(ctx, []string{"A", "B"}, medium)
	require.NoError(t, err)
	assert.Len(t, report.Results, 2)
	for _, res := range report.Results {
		assert.Equal(t, types.StatusError, res.Status)
	}
	assert.Empty(t, report.Selected)
}

func TestScreen_FetchTimeout(t *testing.T) {
	f := &fakeFetcher{series: map[string][]types.PricePoint{"A": series(1, 2)}, delay: time.Second}
	report, err := New(f, Config{FetchTimeout: 20 * time.Millisecond}, nil).Screen(context.Background(), []string{"A"}, medium)
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, report.Results["A"].Status)
}

func TestScreenProfile(t *testing.T) {
	app := store.Default()
	app.Sectors = map[string][]string{"Tech": {"AAPL", "MSFT"}}

	f := &fakeFetcher{series: map[string][]types.PricePoint{
		"AAPL": series(100, 104),
		"MSFT": series(100, 96),
	}}
	s := New(f, Config{}, app)

	report, err := s.ScreenProfile(context.Background(), types.Profile{Sector: "tech", RiskTolerance: "Low"})
	require.NoError(t, err)
	assert.Equal(t, "tech", report.Sector)
	assert.Equal(t, types.Thresholds{StopLoss: 0.03, TakeProfit: 0.06}, report.Thresholds)
	assert.Equal(t, types.StatusStopLoss, report.Results["MSFT"].Status)
	assert.Equal(t, types.StatusHold, report.Results["AAPL"].Status)

	custom := types.Thresholds{StopLoss: 0.5, TakeProfit: 0.04}
	report, err = s.ScreenProfile(context.Background(), types.Profile{Sector: "Tech", RiskTolerance: "Low", Thresholds: &custom})
	require.NoError(t, err)
	assert.Equal(t, types.StatusTakeProfit, report.Results["AAPL"].Status)
	assert.Equal(t, types.StatusHold, report.Results["MSFT"].Status)

	_, err = s.ScreenProfile(context.Background(), types.Profile{Sector: "Crypto", RiskTolerance: "Low"})
	assert.Error(t, err)
	_, err = s.ScreenProfile(context.Background(), types.Profile{Sector: "Tech", RiskTolerance: "Reckless"})
	assert.Error(t, err)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(store.Default())
	assert.Equal(t, 30, cfg.LookbackDays)
	assert.Equal(t, types.ResolutionDay, cfg.Resolution)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, time.Second, cfg.MinInterval)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
