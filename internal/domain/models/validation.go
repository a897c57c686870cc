package models

import "time"

// IndexRange is a half-open [Start,End) slice of the candle series.
type IndexRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r IndexRange) Len() int { return r.End - r.Start }

// PerfStats are the per-fold performance metrics, computed identically for
// the in-sample and out-of-sample windows.
type PerfStats struct {
	Sharpe      float64 `json:"sharpe"`
	Return      float64 `json:"return"`
	MaxDrawdown float64 `json:"max_drawdown"`
	WinRate     float64 `json:"win_rate"`
	Periods     int     `json:"periods"`
	Trades      int     `json:"trades"`
}

// RegimeLabel classifies a fold's test window by trend and volatility.
type RegimeLabel string

const (
	RegimeBullLowVol  RegimeLabel = "bull_low_vol"
	RegimeBullHighVol RegimeLabel = "bull_high_vol"
	RegimeBearLowVol  RegimeLabel = "bear_low_vol"
	RegimeBearHighVol RegimeLabel = "bear_high_vol"
	RegimeSideways    RegimeLabel = "sideways"
)

// ValidationFold is one rolling train/test split with its metrics.
// Immutable once computed; Train.End <= Test.Start always holds.
type ValidationFold struct {
	Index       int         `json:"index"`
	Train       IndexRange  `json:"train_range"`
	Test        IndexRange  `json:"test_range"`
	TrainFrom   time.Time   `json:"train_from"`
	TrainTo     time.Time   `json:"train_to"`
	TestFrom    time.Time   `json:"test_from"`
	TestTo      time.Time   `json:"test_to"`
	InSample    PerfStats   `json:"in_sample_metrics"`
	OutOfSample PerfStats   `json:"out_of_sample_metrics"`
	Regime      RegimeLabel `json:"regime_label"`
}

// SharpeInterval is the 95% confidence interval around the mean OOS Sharpe.
type SharpeInterval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// RegimeSlice breaks aggregate performance out by regime so a strategy that
// only works in one market state cannot hide behind the average.
type RegimeSlice struct {
	Folds           int     `json:"folds"`
	MeanOOSSharpe   float64 `json:"mean_oos_sharpe"`
	MeanOOSReturn   float64 `json:"mean_oos_return"`
	MeanMaxDrawdown float64 `json:"mean_max_drawdown"`
}

// Verdict is the validator's four-way outcome. Indeterminate is a distinct
// state for insufficient samples, never coerced to pass or fail.
type Verdict string

const (
	VerdictPass          Verdict = "pass"
	VerdictFail          Verdict = "fail"
	VerdictMarginal      Verdict = "marginal"
	VerdictIndeterminate Verdict = "indeterminate"
)

// ValidationReport aggregates all folds of one validation run. Persisted
// once as an artifact and never mutated; new runs produce new reports.
type ValidationReport struct {
	ID                 string                      `json:"id"`
	Strategy           string                      `json:"strategy"`
	Ticker             string                      `json:"ticker"`
	Timeframe          string                      `json:"timeframe"`
	From               time.Time                   `json:"from"`
	To                 time.Time                   `json:"to"`
	CreatedAt          time.Time                   `json:"created_at"`
	Folds              []ValidationFold            `json:"folds"`
	MeanOOSSharpe      float64                     `json:"mean_oos_sharpe"`
	SharpeCI           SharpeInterval              `json:"sharpe_confidence_interval"`
	OverfittingScore   float64                     `json:"overfitting_score"`
	ConsistencyPct     float64                     `json:"consistency_pct"`
	MeanOOSMaxDrawdown float64                     `json:"mean_oos_max_drawdown"`
	TotalTrades        int                         `json:"total_trades"`
	RegimeBreakdown    map[RegimeLabel]RegimeSlice `json:"regime_breakdown"`
	Verdict            Verdict                     `json:"verdict"`
	Passed             *bool                       `json:"passed"` // nil when indeterminate
	Deficits           []string                    `json:"deficits,omitempty"`
}
