// Package screener classifies tickers by the price move over a lookback
// window against take-profit and stop-loss thresholds.
package screener

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"signal-screener/internal/interfaces"
	"signal-screener/internal/logger"
	"signal-screener/internal/store"
	"signal-screener/internal/throttle"
	"signal-screener/internal/types"
)

var validate = validator.New()

// Config controls how a Screener dispatches fetches.
type Config struct {
	LookbackDays int
	Resolution   types.Resolution
	Concurrency  int
	MinInterval  time.Duration
	FetchTimeout time.Duration
}

// ConfigFrom extracts the screener settings from the application config.
func ConfigFrom(cfg *store.Config) Config {
	return Config{
		LookbackDays: cfg.Quote.LookbackDays,
		Resolution:   cfg.Quote.Resolution,
		Concurrency:  cfg.Screener.Concurrency,
		MinInterval:  cfg.Screener.MinInterval,
		FetchTimeout: cfg.Screener.FetchTimeout,
	}
}

// Screener evaluates ticker lists against thresholds.
type Screener struct {
	fetcher  interfaces.SeriesFetcher
	throttle *throttle.Registry
	cfg      Config
	app      *store.Config
	now      func() time.Time
}

// New creates a screener. app supplies sector universes and risk defaults
// for ScreenProfile and may be nil when only Screen is used.
func New(fetcher interfaces.SeriesFetcher, cfg Config, app *store.Config) *Screener {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.LookbackDays < 1 {
		cfg.LookbackDays = 30
	}
	if cfg.Resolution == "" {
		cfg.Resolution = types.ResolutionDay
	}
	return &Screener{
		fetcher:  fetcher,
		throttle: throttle.NewRegistry(cfg.MinInterval),
		cfg:      cfg,
		app:      app,
		now:      time.Now,
	}
}

// ValidateThresholds checks that both thresholds lie in (0,1].
func ValidateThresholds(th types.Thresholds) error {
	err := validate.Struct(th)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := "stop_loss"
		value := th.StopLoss
		if verrs[0].Field() == "TakeProfit" {
			field, value = "take_profit", th.TakeProfit
		}
		return &types.InvalidThresholdError{Field: field, Value: value}
	}
	return err
}

// Screen fetches a series for every distinct ticker and classifies it.
// Tickers are trimmed and upper-cased, blanks are dropped and duplicates keep
// their first position. The report holds exactly one result per distinct
// ticker even when fetches fail or ctx is cancelled; only invalid thresholds
// fail the call, before anything is fetched.
func (s *Screener) Screen(ctx context.Context, tickers []string, th types.Thresholds) (*types.Report, error) {
	if err := ValidateThresholds(th); err != nil {
		return nil, err
	}

	list := dedupe(tickers)
	report := &types.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: s.now().UTC(),
		Thresholds:  th,
		Tickers:     list,
		Selected:    []string{},
		Results:     make(map[string]types.Result, len(list)),
	}

	timer := logger.StartOperation(ctx, "screener.Screen",
		"run_id", report.RunID,
		"tickers", len(list),
		"upstream", s.fetcher.Upstream(),
	)
	ctx = timer.GetContext()

	results := make([]types.Result, len(list))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, ticker := range list {
		i, ticker := i, ticker
		g.Go(func() error {
			results[i] = s.screenOne(ctx, ticker, th)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		report.Results[res.Ticker] = res
		if res.Status.Selected() {
			report.Selected = append(report.Selected, res.Ticker)
		}
	}

	timer.End("selected", len(report.Selected))
	return report, nil
}

func (s *Screener) screenOne(ctx context.Context, ticker string, th types.Thresholds) types.Result {
	if err := ctx.Err(); err != nil {
		return errorResult(ticker, "cancelled: "+err.Error())
	}
	if err := s.throttle.Wait(ctx, s.fetcher.Upstream()); err != nil {
		return errorResult(ticker, "cancelled: "+err.Error())
	}

	fetchCtx := ctx
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	points, ok := s.fetcher.Fetch(fetchCtx, ticker, s.cfg.LookbackDays, s.cfg.Resolution)
	if !ok {
		points = nil
	}
	res := Classify(ticker, points, th)

	pct := 0.0
	if res.PercentChange != nil {
		pct = *res.PercentChange
	}
	logger.Classification(ctx, ticker, string(res.Status), pct)
	return res
}

// Classify assigns a status from the first and last close of points. The
// move is compared inclusively: a change of at least TakeProfit wins over
// everything, then a drop of at least StopLoss, otherwise the ticker is held.
// PercentChange is reported in percent, rounded to four decimals.
func Classify(ticker string, points []types.PricePoint, th types.Thresholds) types.Result {
	if len(points) == 0 {
		return errorResult(ticker, "no price data")
	}

	startF, endF := points[0].Close, points[len(points)-1].Close
	if !finite(startF) || !finite(endF) {
		return errorResult(ticker, "non-finite price")
	}
	start := decimal.NewFromFloat(startF)
	end := decimal.NewFromFloat(endF)

	if start.IsZero() {
		res := errorResult(ticker, "start price is zero")
		res.StartPrice, res.EndPrice = &startF, &endF
		return res
	}

	change := end.Sub(start).Div(start)
	pct, _ := change.Mul(decimal.NewFromInt(100)).Round(4).Float64()

	status := types.StatusHold
	switch {
	case change.GreaterThanOrEqual(decimal.NewFromFloat(th.TakeProfit)):
		status = types.StatusTakeProfit
	case change.LessThanOrEqual(decimal.NewFromFloat(th.StopLoss).Neg()):
		status = types.StatusStopLoss
	}

	return types.Result{
		Ticker:        ticker,
		Status:        status,
		PercentChange: &pct,
		StartPrice:    &startF,
		EndPrice:      &endF,
	}
}

// ScreenProfile screens the ticker universe of the profile's sector using
// the profile's thresholds, or its risk tolerance defaults when it has none.
func (s *Screener) ScreenProfile(ctx context.Context, profile types.Profile) (*types.Report, error) {
	if s.app == nil {
		return nil, fmt.Errorf("screen profile: no sector configuration")
	}
	tickers, err := s.app.Universe(profile.Sector)
	if err != nil {
		return nil, err
	}

	var th types.Thresholds
	if profile.Thresholds != nil {
		th = *profile.Thresholds
	} else if th, err = s.app.RiskThresholds(profile.RiskTolerance); err != nil {
		return nil, err
	}

	report, err := s.Screen(ctx, tickers, th)
	if err != nil {
		return nil, err
	}
	report.Sector = profile.Sector
	return report, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func errorResult(ticker, msg string) types.Result {
	return types.Result{Ticker: ticker, Status: types.StatusError, Message: msg}
}

func dedupe(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
