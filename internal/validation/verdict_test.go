package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

func TestJudgePass(t *testing.T) {
	t.Parallel()

	verdict, passed, deficits := DefaultThresholds().Judge(Aggregate{
		Folds:         10,
		Trades:        150,
		MeanOOSSharpe: 1.3,
		Overfitting:   0.15,
		Consistency:   0.75,
		MeanOOSMaxDD:  0.09,
	})
	assert.Equal(t, models.VerdictPass, verdict)
	require.NotNil(t, passed)
	assert.True(t, *passed)
	assert.Empty(t, deficits)
}

func TestJudgeIndeterminateSmallSample(t *testing.T) {
	t.Parallel()

	// Strong numbers from 3 folds and 40 trades stay indeterminate; the
	// sample size wins over every other bar.
	verdict, passed, deficits := DefaultThresholds().Judge(Aggregate{
		Folds:         3,
		Trades:        40,
		MeanOOSSharpe: 1.3,
		Overfitting:   0.15,
		Consistency:   0.75,
		MeanOOSMaxDD:  0.09,
	})
	assert.Equal(t, models.VerdictIndeterminate, verdict)
	assert.Nil(t, passed, "indeterminate must never coerce to a boolean")
	require.Len(t, deficits, 2)
	for _, d := range deficits {
		assert.Contains(t, d, "insufficient sample")
	}
}

func TestJudgeMarginalNamesTheDeficit(t *testing.T) {
	t.Parallel()

	verdict, passed, deficits := DefaultThresholds().Judge(Aggregate{
		Folds:         10,
		Trades:        150,
		MeanOOSSharpe: 0.8,
		Overfitting:   0.2,
		Consistency:   0.65,
		MeanOOSMaxDD:  0.12,
	})
	assert.Equal(t, models.VerdictMarginal, verdict)
	require.NotNil(t, passed)
	assert.False(t, *passed)
	require.Len(t, deficits, 1)
	assert.Contains(t, deficits[0], "sharpe", "deficit should name the missed bar")
}

func TestJudgeFailOnAnyHardBar(t *testing.T) {
	t.Parallel()

	healthy := Aggregate{
		Folds:         10,
		Trades:        150,
		MeanOOSSharpe: 1.3,
		Overfitting:   0.15,
		Consistency:   0.75,
		MeanOOSMaxDD:  0.09,
	}
	tests := []struct {
		name   string
		mutate func(*Aggregate)
	}{
		{"sharpe below fail floor", func(a *Aggregate) { a.MeanOOSSharpe = 0.4 }},
		{"overfitting above fail ceiling", func(a *Aggregate) { a.Overfitting = 0.7 }},
		{"consistency below fail floor", func(a *Aggregate) { a.Consistency = 0.4 }},
		{"drawdown above fail ceiling", func(a *Aggregate) { a.MeanOOSMaxDD = 0.25 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := healthy
			tt.mutate(&a)
			verdict, passed, deficits := DefaultThresholds().Judge(a)
			assert.Equal(t, models.VerdictFail, verdict)
			require.NotNil(t, passed)
			assert.False(t, *passed)
			assert.Len(t, deficits, 1, "fail verdict should carry the tripped bar")
		})
	}
}

func TestJudgeBoundaries(t *testing.T) {
	t.Parallel()

	base := Aggregate{Folds: 10, Trades: 150}

	// Pass bars: sharpe and consistency are inclusive, overfit and
	// drawdown are exclusive.
	a := base
	a.MeanOOSSharpe, a.Overfitting, a.Consistency, a.MeanOOSMaxDD = 1.0, 0.29, 0.6, 0.149
	verdict, _, _ := DefaultThresholds().Judge(a)
	assert.Equal(t, models.VerdictPass, verdict)

	a.Overfitting = 0.3
	verdict, _, deficits := DefaultThresholds().Judge(a)
	assert.Equal(t, models.VerdictMarginal, verdict)
	assert.Len(t, deficits, 1)

	a.Overfitting, a.MeanOOSMaxDD = 0.29, 0.15
	verdict, _, _ = DefaultThresholds().Judge(a)
	assert.Equal(t, models.VerdictMarginal, verdict)

	// Fail bars are exclusive: sitting exactly on them is marginal.
	a = base
	a.MeanOOSSharpe, a.Overfitting, a.Consistency, a.MeanOOSMaxDD = 0.5, 0.6, 0.5, 0.2
	verdict, passed, deficits := DefaultThresholds().Judge(a)
	assert.Equal(t, models.VerdictMarginal, verdict)
	require.NotNil(t, passed)
	assert.False(t, *passed)
	assert.Len(t, deficits, 4)
}

func TestThresholdsValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultThresholds().Validate())

	inverted := DefaultThresholds()
	inverted.PassMinSharpe = 0.3 // below the 0.5 fail floor
	assert.Error(t, inverted.Validate())

	inverted = DefaultThresholds()
	inverted.FailMinOverfit = 0.2 // below the 0.3 pass ceiling
	assert.Error(t, inverted.Validate())

	inverted = DefaultThresholds()
	inverted.MinFolds = 0
	assert.Error(t, inverted.Validate())
}
