package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

func openFill(ticker string, notional float64, at time.Time) models.ExecutionFill {
	return models.ExecutionFill{
		OrderID: "ord-" + ticker, Ticker: ticker, Side: models.SideBuy,
		Kind: "open", Notional: notional, FilledAt: at,
	}
}

func closeFill(ticker string, pl float64, at time.Time) models.ExecutionFill {
	return models.ExecutionFill{
		OrderID: "ord-" + ticker, Ticker: ticker, Side: models.SideSell,
		Kind: "close", RealizedPL: pl, FilledAt: at,
	}
}

func TestTrackerOpenReservesCash(t *testing.T) {
	t.Parallel()

	tr, err := NewTracker(100_000)
	require.NoError(t, err)
	at := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)

	require.NoError(t, tr.Apply(openFill("AAPL", 10_000, at)))
	st := tr.Snapshot()
	assert.InDelta(t, 100_000, st.Equity, 1e-9)
	assert.Len(t, st.OpenPositions, 1)
	assert.InDelta(t, 90_000, st.AvailableCash(), 1e-9)
}

func TestTrackerCloseRealizesPL(t *testing.T) {
	t.Parallel()

	tr, err := NewTracker(100_000)
	require.NoError(t, err)
	at := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)

	require.NoError(t, tr.Apply(openFill("AAPL", 10_000, at)))
	require.NoError(t, tr.Apply(closeFill("AAPL", 1_500, at.Add(2*time.Hour))))

	st := tr.Snapshot()
	assert.InDelta(t, 101_500, st.Equity, 1e-9)
	assert.InDelta(t, 1_500, st.DailyPL, 1e-9)
	assert.Empty(t, st.OpenPositions)
	assert.Zero(t, st.ConsecutiveLosses)
	assert.InDelta(t, 0, st.CurrentDrawdown, 1e-12) // new equity peak
}

func TestTrackerLossStreakAndDrawdown(t *testing.T) {
	t.Parallel()

	tr, err := NewTracker(100_000)
	require.NoError(t, err)
	at := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)

	for i, pl := range []float64{-2_000, -3_000} {
		require.NoError(t, tr.Apply(openFill("AAPL", 10_000, at)))
		require.NoError(t, tr.Apply(closeFill("AAPL", pl, at.Add(time.Duration(i+1)*time.Minute))))
	}

	st := tr.Snapshot()
	assert.Equal(t, 2, st.ConsecutiveLosses)
	assert.InDelta(t, 95_000, st.Equity, 1e-9)
	assert.InDelta(t, 0.05, st.CurrentDrawdown, 1e-9)

	// A winner resets the streak and shrinks the drawdown.
	require.NoError(t, tr.Apply(openFill("AAPL", 10_000, at)))
	require.NoError(t, tr.Apply(closeFill("AAPL", 4_000, at.Add(10*time.Minute))))
	st = tr.Snapshot()
	assert.Zero(t, st.ConsecutiveLosses)
	assert.InDelta(t, 0.01, st.CurrentDrawdown, 1e-9)
}

func TestTrackerDailyRollover(t *testing.T) {
	t.Parallel()

	tr, err := NewTracker(100_000)
	require.NoError(t, err)
	day1 := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 3, 15, 0, 0, 0, time.UTC)

	require.NoError(t, tr.Apply(openFill("AAPL", 10_000, day1)))
	require.NoError(t, tr.Apply(closeFill("AAPL", -1_000, day1.Add(time.Hour))))
	assert.InDelta(t, -1_000, tr.Snapshot().DailyPL, 1e-9)

	// First fill of the next session starts a fresh daily P&L; the loss
	// streak survives the rollover.
	require.NoError(t, tr.Apply(openFill("MSFT", 5_000, day2)))
	st := tr.Snapshot()
	assert.InDelta(t, 0, st.DailyPL, 1e-9)
	assert.Equal(t, 1, st.ConsecutiveLosses)

	require.NoError(t, tr.Apply(closeFill("MSFT", 250, day2.Add(time.Hour))))
	assert.InDelta(t, 250, tr.Snapshot().DailyPL, 1e-9)
}

func TestTrackerRejectsBadFills(t *testing.T) {
	t.Parallel()

	tr, err := NewTracker(100_000)
	require.NoError(t, err)
	at := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)

	assert.Error(t, tr.Apply(closeFill("GHOST", 100, at)))

	bad := openFill("AAPL", -5, at)
	assert.Error(t, tr.Apply(bad))

	weird := openFill("AAPL", 5, at)
	weird.Kind = "amend"
	assert.Error(t, tr.Apply(weird))

	_, err = NewTracker(0)
	assert.Error(t, err)
}

func TestTrackerSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	tr, err := NewTracker(100_000)
	require.NoError(t, err)
	at := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	require.NoError(t, tr.Apply(openFill("AAPL", 10_000, at)))

	st := tr.Snapshot()
	delete(st.OpenPositions, "AAPL")
	assert.Len(t, tr.Snapshot().OpenPositions, 1)
}
