package types

import "time"

// Status is the classification bucket assigned to a screened ticker.
type Status string

const (
	StatusTakeProfit Status = "take_profit"
	StatusStopLoss   Status = "stop_loss"
	StatusHold       Status = "hold"
	StatusError      Status = "error"
)

// Selected reports whether a ticker with this status stays in the
// recommended set.
func (s Status) Selected() bool {
	return s == StatusTakeProfit || s == StatusHold
}

// Resolution is the candle width requested from a quote provider.
// Values follow the Finnhub vocabulary.
type Resolution string

const (
	Resolution1Min  Resolution = "1"
	Resolution5Min  Resolution = "5"
	Resolution15Min Resolution = "15"
	Resolution30Min Resolution = "30"
	Resolution60Min Resolution = "60"
	ResolutionDay   Resolution = "D"
	ResolutionWeek  Resolution = "W"
	ResolutionMonth Resolution = "M"
)

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool {
	switch r {
	case Resolution1Min, Resolution5Min, Resolution15Min, Resolution30Min,
		Resolution60Min, ResolutionDay, ResolutionWeek, ResolutionMonth:
		return true
	}
	return false
}

// PricePoint is a single close price. Series are ascending by Timestamp.
type PricePoint struct {
	Timestamp int64   `json:"t"`
	Close     float64 `json:"c"`
}

// Thresholds are the per-user exit levels, each a fraction in (0,1].
type Thresholds struct {
	StopLoss   float64 `json:"stop_loss" yaml:"stop_loss" validate:"gt=0,lte=1"`
	TakeProfit float64 `json:"take_profit" yaml:"take_profit" validate:"gt=0,lte=1"`
}

// Result is the screening outcome for one ticker. Pointer fields are nil
// when the value could not be computed.
type Result struct {
	Ticker        string   `json:"ticker"`
	Status        Status   `json:"status"`
	PercentChange *float64 `json:"percent_change,omitempty"`
	StartPrice    *float64 `json:"start_price,omitempty"`
	EndPrice      *float64 `json:"end_price,omitempty"`
	Message       string   `json:"message,omitempty"`
}

// Report is the output of one screening run.
type Report struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Sector      string            `json:"sector,omitempty"`
	Thresholds  Thresholds        `json:"thresholds"`
	Tickers     []string          `json:"tickers"`
	Selected    []string          `json:"selected"`
	Results     map[string]Result `json:"results"`
}

// Ordered returns the results in request order.
func (r *Report) Ordered() []Result {
	out := make([]Result, 0, len(r.Tickers))
	for _, t := range r.Tickers {
		if res, ok := r.Results[t]; ok {
			out = append(out, res)
		}
	}
	return out
}

// Profile is the slice of a user profile the screener consumes. Explicit
// thresholds, when set, override the risk tolerance defaults.
type Profile struct {
	Sector        string      `json:"investment_sector"`
	RiskTolerance string      `json:"risk_tolerance"`
	Thresholds    *Thresholds `json:"thresholds,omitempty"`
}
