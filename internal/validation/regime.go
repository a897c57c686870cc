package validation

import (
	"fmt"
	"math"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

// RegimeConfig sets the cutoffs for labeling a test window.
type RegimeConfig struct {
	HighVol  float64 // annualized realized vol at or above this is high-vol
	TrendMin float64 // |net return| below this over the window is sideways
}

func DefaultRegimeConfig() RegimeConfig {
	return RegimeConfig{HighVol: 0.25, TrendMin: 0.03}
}

func (c RegimeConfig) Validate() error {
	if c.HighVol <= 0 {
		return fmt.Errorf("regime high_vol must be positive, got %v", c.HighVol)
	}
	if c.TrendMin <= 0 || c.TrendMin >= 1 {
		return fmt.Errorf("regime trend_min must be in (0,1), got %v", c.TrendMin)
	}
	return nil
}

// ClassifyRegime labels a window by trend direction and realized
// volatility. Windows without a meaningful net move are sideways whatever
// their volatility; a breakdown by regime keeps a strategy that only works
// in one market state from hiding behind the average.
func ClassifyRegime(f Frame, cfg RegimeConfig, periodsPerYear float64) models.RegimeLabel {
	if f.Len() < 2 {
		return models.RegimeSideways
	}

	first := f.Candle(0).Close
	last := f.Candle(f.Len() - 1).Close
	if first <= 0 {
		return models.RegimeSideways
	}
	net := last/first - 1

	if math.Abs(net) < cfg.TrendMin {
		return models.RegimeSideways
	}

	vol := RealizedVol(f.LogReturns(), periodsPerYear)
	high := vol >= cfg.HighVol

	switch {
	case net > 0 && high:
		return models.RegimeBullHighVol
	case net > 0:
		return models.RegimeBullLowVol
	case high:
		return models.RegimeBearHighVol
	default:
		return models.RegimeBearLowVol
	}
}

// RealizedVol is the annualized standard deviation of log returns.
func RealizedVol(logReturns []float64, periodsPerYear float64) float64 {
	if len(logReturns) < 2 {
		return 0
	}
	var sum, sum2 float64
	for _, r := range logReturns {
		sum += r
		sum2 += r * r
	}
	n := float64(len(logReturns))
	m := sum / n
	variance := (sum2 - n*m*m) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * periodsPerYear)
}
