package validation

import (
	"fmt"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

// Thresholds are the verdict cutoffs. Pass requires every pass bar to
// clear; fail trips on any single fail bar; everything between is marginal.
// Sample-size minimums are checked first and win over both.
type Thresholds struct {
	PassMinSharpe      float64
	PassMaxOverfit     float64
	PassMinConsistency float64
	PassMaxDrawdown    float64

	FailMaxSharpe      float64
	FailMinOverfit     float64
	FailMaxConsistency float64
	FailMinDrawdown    float64

	MinFolds  int
	MinTrades int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		PassMinSharpe:      1.0,
		PassMaxOverfit:     0.3,
		PassMinConsistency: 0.6,
		PassMaxDrawdown:    0.15,

		FailMaxSharpe:      0.5,
		FailMinOverfit:     0.6,
		FailMaxConsistency: 0.5,
		FailMinDrawdown:    0.2,

		MinFolds:  5,
		MinTrades: 100,
	}
}

// Validate rejects threshold sets where the marginal band is inverted,
// which would make some results both pass and fail.
func (t Thresholds) Validate() error {
	if t.PassMinSharpe < t.FailMaxSharpe {
		return fmt.Errorf("pass_min_sharpe %.2f below fail_max_sharpe %.2f", t.PassMinSharpe, t.FailMaxSharpe)
	}
	if t.PassMaxOverfit > t.FailMinOverfit {
		return fmt.Errorf("pass_max_overfit %.2f above fail_min_overfit %.2f", t.PassMaxOverfit, t.FailMinOverfit)
	}
	if t.PassMaxOverfit <= 0 || t.FailMinOverfit > 1 {
		return fmt.Errorf("overfit thresholds must sit inside (0,1]")
	}
	if t.PassMinConsistency < t.FailMaxConsistency {
		return fmt.Errorf("pass_min_consistency %.2f below fail_max_consistency %.2f", t.PassMinConsistency, t.FailMaxConsistency)
	}
	if t.PassMinConsistency <= 0 || t.PassMinConsistency > 1 || t.FailMaxConsistency < 0 {
		return fmt.Errorf("consistency thresholds must sit inside [0,1]")
	}
	if t.PassMaxDrawdown > t.FailMinDrawdown {
		return fmt.Errorf("pass_max_drawdown %.2f above fail_min_drawdown %.2f", t.PassMaxDrawdown, t.FailMinDrawdown)
	}
	if t.PassMaxDrawdown <= 0 || t.FailMinDrawdown > 1 {
		return fmt.Errorf("drawdown thresholds must sit inside (0,1]")
	}
	if t.MinFolds < 1 {
		return fmt.Errorf("min_folds must be at least 1, got %d", t.MinFolds)
	}
	if t.MinTrades < 0 {
		return fmt.Errorf("min_trades must not be negative, got %d", t.MinTrades)
	}
	return nil
}

// Aggregate carries the run-level numbers the verdict is judged on.
type Aggregate struct {
	Folds         int
	Trades        int
	MeanOOSSharpe float64
	Overfitting   float64
	Consistency   float64
	MeanOOSMaxDD  float64
}

// Judge maps aggregate results to a verdict. Sample-size shortfalls come
// back indeterminate with a nil passed flag, never coerced either way.
// Marginal and fail verdicts carry the specific bars missed so consumers
// see why, not just a boolean.
func (t Thresholds) Judge(a Aggregate) (models.Verdict, *bool, []string) {
	if a.Folds < t.MinFolds || a.Trades < t.MinTrades {
		var deficits []string
		if a.Folds < t.MinFolds {
			deficits = append(deficits, fmt.Sprintf("insufficient sample: %d folds, need at least %d", a.Folds, t.MinFolds))
		}
		if a.Trades < t.MinTrades {
			deficits = append(deficits, fmt.Sprintf("insufficient sample: %d trades, need at least %d", a.Trades, t.MinTrades))
		}
		return models.VerdictIndeterminate, nil, deficits
	}

	var hard []string
	if a.MeanOOSSharpe < t.FailMaxSharpe {
		hard = append(hard, fmt.Sprintf("mean OOS sharpe %.2f below fail floor %.2f", a.MeanOOSSharpe, t.FailMaxSharpe))
	}
	if a.Overfitting > t.FailMinOverfit {
		hard = append(hard, fmt.Sprintf("overfitting score %.2f above fail ceiling %.2f", a.Overfitting, t.FailMinOverfit))
	}
	if a.Consistency < t.FailMaxConsistency {
		hard = append(hard, fmt.Sprintf("consistency %.0f%% below fail floor %.0f%%", a.Consistency*100, t.FailMaxConsistency*100))
	}
	if a.MeanOOSMaxDD > t.FailMinDrawdown {
		hard = append(hard, fmt.Sprintf("mean OOS max drawdown %.1f%% above fail ceiling %.1f%%", a.MeanOOSMaxDD*100, t.FailMinDrawdown*100))
	}
	if len(hard) > 0 {
		failed := false
		return models.VerdictFail, &failed, hard
	}

	var deficits []string
	if a.MeanOOSSharpe < t.PassMinSharpe {
		deficits = append(deficits, fmt.Sprintf("mean OOS sharpe %.2f below pass bar %.2f", a.MeanOOSSharpe, t.PassMinSharpe))
	}
	if a.Overfitting >= t.PassMaxOverfit {
		deficits = append(deficits, fmt.Sprintf("overfitting score %.2f at or above pass bar %.2f", a.Overfitting, t.PassMaxOverfit))
	}
	if a.Consistency < t.PassMinConsistency {
		deficits = append(deficits, fmt.Sprintf("consistency %.0f%% below pass bar %.0f%%", a.Consistency*100, t.PassMinConsistency*100))
	}
	if a.MeanOOSMaxDD >= t.PassMaxDrawdown {
		deficits = append(deficits, fmt.Sprintf("mean OOS max drawdown %.1f%% at or above pass bar %.1f%%", a.MeanOOSMaxDD*100, t.PassMaxDrawdown*100))
	}
	if len(deficits) > 0 {
		failed := false
		return models.VerdictMarginal, &failed, deficits
	}

	passed := true
	return models.VerdictPass, &passed, nil
}
