package gates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

func momentumPolicy(floor float64) models.GatePolicy {
	return models.GatePolicy{Name: "momentum", Source: "momentum", ConfidenceFloor: floor, Weight: 1}
}

func sig(enc models.SignalEncoding, conf float64) models.Signal {
	return models.Signal{
		SourceID:   "momentum",
		Ticker:     "AAPL",
		Timestamp:  time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
		Encoding:   enc,
		Confidence: conf,
	}
}

func TestEvaluateEncodings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		enc  models.SignalEncoding
		conf float64
		want models.VoteKind
	}{
		{"discrete buy", models.BuyHoldSell("buy"), 0.9, models.VoteFor},
		{"discrete sell", models.BuyHoldSell("sell"), 0.9, models.VoteAgainst},
		{"discrete hold", models.BuyHoldSell("hold"), 0.9, models.VoteAgainst},
		{"long label", models.LongNeutralShort("long"), 0.8, models.VoteFor},
		{"short label", models.LongNeutralShort("short"), 0.8, models.VoteAgainst},
		{"neutral label", models.LongNeutralShort("neutral"), 0.8, models.VoteAgainst},
		{"continuous bullish", models.ContinuousScore(0.45, 0.2, -0.2), 0.7, models.VoteFor},
		{"continuous bearish", models.ContinuousScore(-0.45, 0.2, -0.2), 0.7, models.VoteAgainst},
		{"continuous inside band", models.ContinuousScore(0.1, 0.2, -0.2), 0.7, models.VoteAgainst},
		{"continuous at threshold stays neutral", models.ContinuousScore(0.2, 0.2, -0.2), 0.7, models.VoteAgainst},
	}

	ev := NewEvaluator(models.DirectionLong)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			vote, err := ev.Evaluate(sig(tt.enc, tt.conf), momentumPolicy(0.5))
			require.NoError(t, err)
			assert.Equal(t, tt.want, vote.Decision)
			assert.Equal(t, "momentum", vote.GateName)
			assert.InDelta(t, tt.conf, vote.Confidence, 1e-12)
		})
	}
}

func TestEvaluateConfidenceFloor(t *testing.T) {
	t.Parallel()

	ev := NewEvaluator(models.DirectionLong)

	// Below the floor the gate abstains no matter how bullish the signal is.
	vote, err := ev.Evaluate(sig(models.BuyHoldSell("buy"), 0.49), momentumPolicy(0.5))
	require.NoError(t, err)
	assert.Equal(t, models.VoteAbstain, vote.Decision)

	// Exactly at the floor the gate still votes.
	vote, err = ev.Evaluate(sig(models.BuyHoldSell("buy"), 0.5), momentumPolicy(0.5))
	require.NoError(t, err)
	assert.Equal(t, models.VoteFor, vote.Decision)
}

func TestEvaluateShortDirection(t *testing.T) {
	t.Parallel()

	ev := NewEvaluator(models.DirectionShort)

	vote, err := ev.Evaluate(sig(models.LongNeutralShort("short"), 0.9), momentumPolicy(0.5))
	require.NoError(t, err)
	assert.Equal(t, models.VoteFor, vote.Decision)

	vote, err = ev.Evaluate(sig(models.LongNeutralShort("long"), 0.9), momentumPolicy(0.5))
	require.NoError(t, err)
	assert.Equal(t, models.VoteAgainst, vote.Decision)
}

func TestEvaluateDataErrors(t *testing.T) {
	t.Parallel()

	ev := NewEvaluator(models.DirectionLong)

	// Unknown labels abstain and surface the error so the caller can log it.
	vote, err := ev.Evaluate(sig(models.BuyHoldSell("strong_buy"), 0.9), momentumPolicy(0.5))
	assert.Error(t, err)
	assert.Equal(t, models.VoteAbstain, vote.Decision)

	// Confidence outside [0,1] is a contract violation, not a reading.
	vote, err = ev.Evaluate(sig(models.BuyHoldSell("buy"), 1.2), momentumPolicy(0.5))
	assert.Error(t, err)
	assert.Equal(t, models.VoteAbstain, vote.Decision)

	// Inverted continuous thresholds are refused rather than guessed at.
	vote, err = ev.Evaluate(sig(models.ContinuousScore(0.5, -0.2, 0.2), 0.9), momentumPolicy(0.5))
	assert.Error(t, err)
	assert.Equal(t, models.VoteAbstain, vote.Decision)
}

func TestEvaluateDeterminism(t *testing.T) {
	t.Parallel()

	ev := NewEvaluator(models.DirectionLong)
	s := sig(models.ContinuousScore(0.31, 0.2, -0.2), 0.66)

	first, err := ev.Evaluate(s, momentumPolicy(0.5))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := ev.Evaluate(s, momentumPolicy(0.5))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
