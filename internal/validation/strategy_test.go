package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

func rangeOf(start, end int) models.IndexRange {
	return models.IndexRange{Start: start, End: end}
}

func trendWaveCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		x := float64(i)
		closes[i] = 100 * math.Exp(0.0008*x+0.05*math.Sin(x/9))
	}
	return closes
}

func TestNewFactory(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"momentum", "gated_ensemble"} {
		factory, err := NewFactory(name, "1d")
		require.NoError(t, err)
		a, b := factory(), factory()
		assert.Equal(t, name, a.Name())
		assert.NotSame(t, a, b, "folds must never share a fitted instance")
	}

	_, err := NewFactory("martingale", "1d")
	assert.Error(t, err)
}

func TestMomentumDeterministic(t *testing.T) {
	t.Parallel()

	frame := NewFrame(candleSeries(trendWaveCloses(400)))
	train, err := frame.Slice(rangeOf(0, 300))
	require.NoError(t, err)
	test, err := frame.Slice(rangeOf(300, 400))
	require.NoError(t, err)

	run := func() ([]float64, int) {
		m := NewMomentum("1d")
		require.NoError(t, m.Fit(train))
		rets, trades, err := m.Evaluate(test)
		require.NoError(t, err)
		return rets, trades
	}

	r1, t1 := run()
	r2, t2 := run()
	assert.Equal(t, r1, r2)
	assert.Equal(t, t1, t2)
	assert.Len(t, r1, test.Len()-1)
}

func TestMomentumUptrendGoesLongOnce(t *testing.T) {
	t.Parallel()

	frame := NewFrame(candleSeries(driftCloses(120, 1.004)))

	m := NewMomentum("1d")
	require.NoError(t, m.Fit(frame))
	rets, trades, err := m.Evaluate(frame)
	require.NoError(t, err)

	assert.Equal(t, 1, trades, "a clean uptrend is one entry, held")
	assert.Greater(t, CompoundReturn(rets), 0.0)
	underlying := frame.SimpleReturns()
	for i, r := range rets {
		assert.True(t, r == 0 || r == underlying[i],
			"long-only exposure earns the bar return or nothing at bar %d", i)
	}
}

func TestMomentumDowntrendStaysFlat(t *testing.T) {
	t.Parallel()

	frame := NewFrame(candleSeries(driftCloses(120, 0.996)))

	m := NewMomentum("1d")
	require.NoError(t, m.Fit(frame))
	rets, trades, err := m.Evaluate(frame)
	require.NoError(t, err)

	assert.Zero(t, trades)
	for _, r := range rets {
		assert.Zero(t, r, "never long into a falling fast average")
	}
}

func TestMomentumWindowErrors(t *testing.T) {
	t.Parallel()

	short := NewFrame(candleSeries(driftCloses(30, 1.001)))
	m := NewMomentum("1d")
	assert.Error(t, m.Fit(short), "train shorter than the widest average must be a data error")

	one := NewFrame(candleSeries([]float64{100}))
	_, _, err := m.Evaluate(one)
	assert.Error(t, err)
}

func TestGatedEnsembleDeterministic(t *testing.T) {
	t.Parallel()

	frame := NewFrame(candleSeries(trendWaveCloses(400)))
	train, err := frame.Slice(rangeOf(0, 300))
	require.NoError(t, err)
	test, err := frame.Slice(rangeOf(300, 400))
	require.NoError(t, err)

	run := func() ([]float64, int) {
		g, err := NewGatedEnsemble("1d")
		require.NoError(t, err)
		require.NoError(t, g.Fit(train))
		rets, trades, err := g.Evaluate(test)
		require.NoError(t, err)
		return rets, trades
	}

	r1, t1 := run()
	r2, t2 := run()
	assert.Equal(t, r1, r2)
	assert.Equal(t, t1, t2)
	require.Len(t, r1, test.Len()-1)

	underlying := test.SimpleReturns()
	for i, r := range r1 {
		assert.True(t, r == 0 || r == underlying[i],
			"long-only exposure earns the bar return or nothing at bar %d", i)
	}
}

func TestGatedEnsembleBuysMomentumBurst(t *testing.T) {
	t.Parallel()

	// Calibrated on a dead-flat window, a +2%/day run saturates the
	// momentum and trend gates and the weighted vote clears its threshold
	// over the mean-reversion dissent.
	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 100
	}
	burst := driftCloses(40, 1.02)

	g, err := NewGatedEnsemble("1d")
	require.NoError(t, err)
	require.NoError(t, g.Fit(NewFrame(candleSeries(flat))))

	rets, trades, err := g.Evaluate(NewFrame(candleSeries(burst)))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, trades, 1)
	assert.Greater(t, CompoundReturn(rets), 0.0)
}

func TestGatedEnsembleFitTooShort(t *testing.T) {
	t.Parallel()

	g, err := NewGatedEnsemble("1d")
	require.NoError(t, err)
	assert.Error(t, g.Fit(NewFrame(candleSeries(driftCloses(10, 1.001)))))
}
