package quoteobs

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-screener/internal/logger"
	"signal-screener/internal/types"
)

type stubSource struct {
	points []types.PricePoint
	err    error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Candles(ctx context.Context, ticker string, from, to time.Time, res types.Resolution) ([]types.PricePoint, error) {
	return s.points, s.err
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, logger.InitWithConfig(logger.LogConfig{Level: "DEBUG", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = logger.InitWithConfig(logger.LogConfig{Level: "INFO"}) })
	return &buf
}

func TestWrap_Candles(t *testing.T) {
	captureLogs(t)
	want := []types.PricePoint{{Timestamp: 1, Close: 10}}
	src := Wrap(&stubSource{points: want})

	got, err := src.Candles(context.Background(), "AAPL", time.Now().Add(-time.Hour), time.Now(), types.ResolutionDay)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "stub", src.Name())
}

func TestWrap_EmptySeriesWarns(t *testing.T) {
	logs := captureLogs(t)
	src := Wrap(&stubSource{})

	got, err := src.Candles(context.Background(), "ZZZZ", time.Now().Add(-time.Hour), time.Now(), types.ResolutionDay)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Contains(t, logs.String(), "Empty price series")
}

func TestWrap_Error(t *testing.T) {
	logs := captureLogs(t)
	want := &types.SourceFetchError{Source: "stub", Err: errors.New("refused")}
	src := Wrap(&stubSource{err: want})

	_, err := src.Candles(context.Background(), "AAPL", time.Now().Add(-time.Hour), time.Now(), types.ResolutionDay)
	assert.ErrorIs(t, err, want)
	assert.Contains(t, logs.String(), "source_fetch_error")
}
