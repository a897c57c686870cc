package validation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

// frameRecorder tracks every frame length handed to a strategy, so tests
// can prove no fold ever saw data beyond its own windows.
type frameRecorder struct {
	mu       sync.Mutex
	fitLens  []int
	evalLens []int
}

func (r *frameRecorder) addFit(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fitLens = append(r.fitLens, n)
}

func (r *frameRecorder) addEval(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evalLens = append(r.evalLens, n)
}

// stubStrategy emits a fixed alternating return pattern regardless of the
// candles, which makes every aggregate deterministic.
type stubStrategy struct {
	trades int
	rec    *frameRecorder
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) Fit(train Frame) error {
	if s.rec != nil {
		s.rec.addFit(train.Len())
	}
	return nil
}

func (s *stubStrategy) Evaluate(f Frame) ([]float64, int, error) {
	if s.rec != nil {
		s.rec.addEval(f.Len())
	}
	out := make([]float64, f.Len()-1)
	for i := range out {
		if i%2 == 0 {
			out[i] = 0.02
		} else {
			out[i] = -0.005
		}
	}
	return out, s.trades, nil
}

type failingStrategy struct{}

func (failingStrategy) Name() string    { return "stub" }
func (failingStrategy) Fit(Frame) error { return fmt.Errorf("not enough warm-up bars") }
func (failingStrategy) Evaluate(Frame) ([]float64, int, error) {
	return nil, 0, fmt.Errorf("unfitted")
}

func testWindows() WindowConfig {
	return WindowConfig{TrainWindow: 60, TestWindow: 20, Step: 10}
}

func TestRunAggregatesOrderedFolds(t *testing.T) {
	t.Parallel()

	candles := candleSeries(trendWaveCloses(180))
	cfg := DefaultConfig()
	cfg.Windows = testWindows()

	v, err := New(cfg)
	require.NoError(t, err)

	rec := &frameRecorder{}
	factory := func() Strategy { return &stubStrategy{trades: 20, rec: rec} }

	report, err := v.Run(context.Background(), factory, "AAPL", "1d", candles)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "stub", report.Strategy)
	assert.Equal(t, "AAPL", report.Ticker)
	assert.Equal(t, "1d", report.Timeframe)
	assert.Equal(t, candles[0].Bucket, report.From)
	assert.Equal(t, candles[len(candles)-1].Bucket, report.To)
	assert.False(t, report.CreatedAt.IsZero())

	// 60+20 windows over 180 bars with the step floored at 20: six folds.
	require.Len(t, report.Folds, 6)
	known := []models.RegimeLabel{
		models.RegimeBullLowVol, models.RegimeBullHighVol,
		models.RegimeBearLowVol, models.RegimeBearHighVol,
		models.RegimeSideways,
	}
	for i, f := range report.Folds {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, f.Train.End, f.Test.Start)
		assert.Equal(t, candles[f.Train.Start].Bucket, f.TrainFrom)
		assert.Equal(t, candles[f.Train.End-1].Bucket, f.TrainTo)
		assert.Equal(t, candles[f.Test.Start].Bucket, f.TestFrom)
		assert.Equal(t, candles[f.Test.End-1].Bucket, f.TestTo)
		assert.Contains(t, known, f.Regime)
		if i > 0 {
			assert.LessOrEqual(t, report.Folds[i-1].Test.End, f.Test.Start)
		}
	}

	// Every frame the strategy ever saw was exactly one train or one test
	// window, so the metrics cannot have used outside data.
	assert.Len(t, rec.fitLens, 6)
	for _, n := range rec.fitLens {
		assert.Equal(t, 60, n)
	}
	assert.Len(t, rec.evalLens, 12)
	for _, n := range rec.evalLens {
		assert.Contains(t, []int{60, 20}, n)
	}

	// The fixed pattern wins on every fold and decays nowhere.
	assert.Equal(t, 120, report.TotalTrades)
	assert.InDelta(t, 1.0, report.ConsistencyPct, 1e-12)
	assert.Zero(t, report.OverfittingScore)
	assert.Greater(t, report.MeanOOSSharpe, 1.0)
	assert.Less(t, report.MeanOOSMaxDrawdown, 0.15)
	assert.Less(t, report.SharpeCI.Low, report.MeanOOSSharpe)
	assert.Greater(t, report.SharpeCI.High, report.MeanOOSSharpe)

	assert.Equal(t, models.VerdictPass, report.Verdict)
	require.NotNil(t, report.Passed)
	assert.True(t, *report.Passed)
	assert.Empty(t, report.Deficits)

	total := 0
	for _, slice := range report.RegimeBreakdown {
		total += slice.Folds
	}
	assert.Equal(t, 6, total)
}

func TestRunShortSeriesIndeterminate(t *testing.T) {
	t.Parallel()

	candles := candleSeries(trendWaveCloses(70))
	cfg := DefaultConfig()
	cfg.Windows = testWindows()

	v, err := New(cfg)
	require.NoError(t, err)

	report, err := v.Run(context.Background(), func() Strategy { return &stubStrategy{trades: 20} }, "AAPL", "1d", candles)
	require.NoError(t, err, "too little history is a verdict, not a failure")
	require.NotNil(t, report)

	assert.Equal(t, models.VerdictIndeterminate, report.Verdict)
	assert.Nil(t, report.Passed)
	assert.Empty(t, report.Folds)
	require.NotEmpty(t, report.Deficits)
	assert.Contains(t, report.Deficits[0], "insufficient data")
}

func TestRunSkipsFailingFolds(t *testing.T) {
	t.Parallel()

	candles := candleSeries(trendWaveCloses(180))
	cfg := DefaultConfig()
	cfg.Windows = testWindows()
	cfg.Thresholds.MinFolds = 3
	cfg.Thresholds.MinTrades = 60
	cfg.Workers = 1 // sequential, so instances map to folds in order

	v, err := New(cfg)
	require.NoError(t, err)

	// Instance 0 only names the report; instance i+1 runs fold i. Odd
	// instances fail to fit, so folds 0, 2 and 4 are dropped.
	var mu sync.Mutex
	instances := 0
	factory := func() Strategy {
		mu.Lock()
		k := instances
		instances++
		mu.Unlock()
		if k%2 == 1 {
			return failingStrategy{}
		}
		return &stubStrategy{trades: 20}
	}

	report, err := v.Run(context.Background(), factory, "AAPL", "1d", candles)
	require.NoError(t, err)
	require.NotNil(t, report)

	// Dropped folds are skipped outright, never fabricated.
	require.Len(t, report.Folds, 3)
	assert.Equal(t, []int{1, 3, 5}, []int{report.Folds[0].Index, report.Folds[1].Index, report.Folds[2].Index})
	assert.Equal(t, 60, report.TotalTrades)
	assert.NotEqual(t, models.VerdictIndeterminate, report.Verdict)
}

func TestRunCancelledDropsPartialResults(t *testing.T) {
	t.Parallel()

	candles := candleSeries(trendWaveCloses(180))
	cfg := DefaultConfig()
	cfg.Windows = testWindows()

	v, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := v.Run(ctx, func() Strategy { return &stubStrategy{trades: 20} }, "AAPL", "1d", candles)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, report, "partial fold results are dropped, not merged")
}

func TestRunRejectsBadSeries(t *testing.T) {
	t.Parallel()

	candles := candleSeries(trendWaveCloses(180))
	candles[10].Bucket = candles[9].Bucket // duplicate timestamp

	v, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = v.Run(context.Background(), func() Strategy { return &stubStrategy{} }, "AAPL", "1d", candles)
	assert.Error(t, err)
}

func TestRunRequiresFactory(t *testing.T) {
	t.Parallel()

	v, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = v.Run(context.Background(), nil, "AAPL", "1d", candleSeries(trendWaveCloses(400)))
	assert.Error(t, err)
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Workers = -1
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Windows.TestWindow = 1
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Thresholds.PassMinSharpe = 0.1
	_, err = New(cfg)
	assert.Error(t, err)
}
