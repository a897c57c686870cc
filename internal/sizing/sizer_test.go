package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

func newTestSizer(t *testing.T, maxPosPct, floor float64) *Sizer {
	t.Helper()
	s, err := NewSizer(models.RiskLimits{
		MaxPositionPct:         maxPosPct,
		MaxDailyLossPct:        0.02,
		MaxDrawdownPct:         0.15,
		MaxConcurrentPositions: 3,
		MaxConsecutiveLosses:   4,
	}, models.SizingPolicy{MinOrderNotional: floor})
	require.NoError(t, err)
	return s
}

func stateWith(equity float64, committed ...float64) models.PortfolioState {
	positions := map[string]models.Position{}
	for i, n := range committed {
		positions[string(rune('A'+i))] = models.Position{Notional: n}
	}
	return models.PortfolioState{Equity: equity, OpenPositions: positions}
}

func TestSizeCapsAtEquityShare(t *testing.T) {
	t.Parallel()

	s := newTestSizer(t, 0.10, 100)
	intent, err := s.Size(models.EnsembleDecision{Action: models.ActionBuy}, stateWith(100_000), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", intent.Ticker)
	assert.Equal(t, models.SideBuy, intent.Side)
	assert.InDelta(t, 10_000, intent.Notional, 1e-9)
	assert.False(t, intent.NoOp())
}

func TestSizeCapsAtAvailableCash(t *testing.T) {
	t.Parallel()

	// 96k of 100k equity already committed leaves 4k of cash, under the
	// 10k equity-share cap.
	s := newTestSizer(t, 0.10, 100)
	intent, err := s.Size(models.EnsembleDecision{Action: models.ActionBuy}, stateWith(100_000, 48_000, 48_000), "MSFT")
	require.NoError(t, err)
	assert.InDelta(t, 4_000, intent.Notional, 1e-9)
}

func TestSizeBelowFloorIsReportedNoOp(t *testing.T) {
	t.Parallel()

	s := newTestSizer(t, 0.10, 500)
	intent, err := s.Size(models.EnsembleDecision{Action: models.ActionBuy}, stateWith(100_000, 99_800), "NVDA")
	require.NoError(t, err)

	// A no-op is still a well-formed intent, not an error and not a
	// rejection.
	assert.True(t, intent.NoOp())
	assert.Equal(t, "NVDA", intent.Ticker)
	assert.InDelta(t, 0, intent.Notional, 1e-12)
}

func TestSizeSellSide(t *testing.T) {
	t.Parallel()

	s := newTestSizer(t, 0.10, 100)
	intent, err := s.Size(models.EnsembleDecision{Action: models.ActionSell}, stateWith(50_000), "TSLA")
	require.NoError(t, err)
	assert.Equal(t, models.SideSell, intent.Side)
	assert.InDelta(t, 5_000, intent.Notional, 1e-9)
}

func TestSizeNeverExceedsPositionCap(t *testing.T) {
	t.Parallel()

	s := newTestSizer(t, 0.25, 0)
	equities := []float64{1_000, 10_000, 123_456.78}
	commits := [][]float64{nil, {100}, {5_000}, {9_000, 900}}
	for _, eq := range equities {
		for _, c := range commits {
			intent, err := s.Size(models.EnsembleDecision{Action: models.ActionBuy}, stateWith(eq, c...), "AAPL")
			require.NoError(t, err)
			assert.LessOrEqual(t, intent.Notional, 0.25*eq+1e-9)
			assert.GreaterOrEqual(t, intent.Notional, 0.0)
		}
	}
}

func TestSizeRejectsUnsizableInput(t *testing.T) {
	t.Parallel()

	s := newTestSizer(t, 0.10, 100)

	_, err := s.Size(models.EnsembleDecision{Action: models.ActionHold}, stateWith(100_000), "AAPL")
	assert.Error(t, err)

	_, err = s.Size(models.EnsembleDecision{Action: models.ActionBuy}, stateWith(0), "AAPL")
	assert.Error(t, err)

	_, err = s.Size(models.EnsembleDecision{Action: models.ActionBuy}, stateWith(100_000), "")
	assert.Error(t, err)
}
