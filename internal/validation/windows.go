package validation

import (
	"errors"
	"fmt"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

// ErrInsufficientData marks a series too short to produce a single fold.
// Callers report it as an indeterminate verdict, never as pass or fail.
var ErrInsufficientData = errors.New("insufficient data for walk-forward folds")

// WindowConfig shapes the rolling train/test frame, in periods.
type WindowConfig struct {
	TrainWindow int
	TestWindow  int
	Step        int
}

func (c WindowConfig) Validate() error {
	if c.TrainWindow <= 0 {
		return fmt.Errorf("train_window must be positive, got %d", c.TrainWindow)
	}
	if c.TestWindow <= 1 {
		return fmt.Errorf("test_window must be at least 2 periods, got %d", c.TestWindow)
	}
	if c.Step <= 0 {
		return fmt.Errorf("step must be positive, got %d", c.Step)
	}
	return nil
}

// BuildFolds slides a train+test frame across n periods. Windows are
// half-open index ranges with the test starting exactly where the train
// ends. The frame advances by step, floored at the test width so
// consecutive out-of-sample windows never overlap or reorder.
func BuildFolds(n int, cfg WindowConfig) ([]models.ValidationFold, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stride := cfg.Step
	if stride < cfg.TestWindow {
		stride = cfg.TestWindow
	}

	var folds []models.ValidationFold
	for start := 0; start+cfg.TrainWindow+cfg.TestWindow <= n; start += stride {
		trainEnd := start + cfg.TrainWindow
		folds = append(folds, models.ValidationFold{
			Index: len(folds),
			Train: models.IndexRange{Start: start, End: trainEnd},
			Test:  models.IndexRange{Start: trainEnd, End: trainEnd + cfg.TestWindow},
		})
	}
	if len(folds) == 0 {
		return nil, fmt.Errorf("%w: %d periods cannot fit train=%d plus test=%d",
			ErrInsufficientData, n, cfg.TrainWindow, cfg.TestWindow)
	}
	return folds, nil
}
