package validation

import (
	"math"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

// ComputeStats turns a per-period return series into window metrics. The
// Sharpe is annualized; the return is compounded over the window; the
// drawdown is the deepest peak-to-trough fraction of the equity curve.
func ComputeStats(returns []float64, trades int, periodsPerYear float64) models.PerfStats {
	return models.PerfStats{
		Sharpe:      AnnualizedSharpe(returns, periodsPerYear),
		Return:      CompoundReturn(returns),
		MaxDrawdown: MaxDrawdown(returns),
		WinRate:     WinRate(returns),
		Periods:     len(returns),
		Trades:      trades,
	}
}

// AnnualizedSharpe is mean/stddev of per-period returns scaled by the
// square root of periods per year. Degenerate series score zero.
func AnnualizedSharpe(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}
	m := mean(returns)
	sd := sampleStd(returns, m)
	if sd == 0 {
		return 0
	}
	return m / sd * math.Sqrt(periodsPerYear)
}

// CompoundReturn is the geometric return over the window.
func CompoundReturn(returns []float64) float64 {
	equity := 1.0
	for _, r := range returns {
		equity *= 1 + r
	}
	return equity - 1
}

// MaxDrawdown walks the compounded equity curve and reports the deepest
// fraction lost from a running peak, in [0,1].
func MaxDrawdown(returns []float64) float64 {
	equity := 1.0
	peak := 1.0
	maxDD := 0.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// WinRate is the share of winning periods among periods with exposure;
// flat (zero-return) periods are excluded from the base.
func WinRate(returns []float64) float64 {
	wins, active := 0, 0
	for _, r := range returns {
		if r == 0 {
			continue
		}
		active++
		if r > 0 {
			wins++
		}
	}
	if active == 0 {
		return 0
	}
	return float64(wins) / float64(active)
}

// SharpeStdErr approximates the standard error of a per-period Sharpe as
// sqrt((1 + 0.25*kurtosis) / N) with excess kurtosis, so a normal return
// distribution reduces to the classic sqrt(1/N).
func SharpeStdErr(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	kurt := excessKurtosis(returns)
	v := (1 + 0.25*kurt) / float64(n)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// SharpeConfidence builds the 95% interval around an annualized Sharpe from
// the pooled per-period return series behind it.
func SharpeConfidence(annualizedSharpe float64, pooled []float64, periodsPerYear float64) models.SharpeInterval {
	se := SharpeStdErr(pooled) * math.Sqrt(periodsPerYear)
	return models.SharpeInterval{
		Low:  annualizedSharpe - 1.96*se,
		High: annualizedSharpe + 1.96*se,
	}
}

// OverfitScore is the normalized Sharpe decay from in-sample to
// out-of-sample, clipped to [0,1]. Values near one mean the edge
// evaporated out of sample.
func OverfitScore(inSampleSharpe, outOfSampleSharpe float64) float64 {
	const eps = 1e-6
	denom := math.Abs(inSampleSharpe)
	if denom < eps {
		denom = eps
	}
	score := (inSampleSharpe - outOfSampleSharpe) / denom
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleStd(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(len(xs)-1))
}

// excessKurtosis is m4/m2^2 - 3; zero for a normal distribution.
func excessKurtosis(xs []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}
	m := mean(xs)
	var m2, m4 float64
	for _, x := range xs {
		d := x - m
		m2 += d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m4 /= n
	if m2 == 0 {
		return 0
	}
	return m4/(m2*m2) - 3
}
