package risk

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

// memHaltStore is an in-memory HaltStore for tests.
type memHaltStore struct {
	halted bool
	reason string
	err    error
}

func (s *memHaltStore) Get(ctx context.Context) (bool, string, error) {
	if s.err != nil {
		return false, "", s.err
	}
	return s.halted, s.reason, nil
}

func (s *memHaltStore) Set(ctx context.Context, halted bool, reason string) error {
	if s.err != nil {
		return s.err
	}
	s.halted, s.reason = halted, reason
	return nil
}

func testLimits() models.RiskLimits {
	return models.RiskLimits{
		MaxPositionPct:         0.10,
		MaxDailyLossPct:        0.02,
		MaxDrawdownPct:         0.15,
		MaxConcurrentPositions: 3,
		MaxConsecutiveLosses:   4,
	}
}

func healthyState() models.PortfolioState {
	return models.PortfolioState{
		Equity:            100_000,
		OpenPositions:     map[string]models.Position{},
		DailyPL:           500,
		ConsecutiveLosses: 0,
		CurrentDrawdown:   0.02,
		AsOf:              time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC),
	}
}

func buyDecision() models.EnsembleDecision {
	return models.EnsembleDecision{Action: models.ActionBuy, ConsensusScore: 0.9, WeightedConfidence: 0.85}
}

func newTestManager(t *testing.T, store *memHaltStore) *Manager {
	t.Helper()
	m, err := NewManager(testLimits(), NewHaltSwitch(store))
	require.NoError(t, err)
	return m
}

func TestCheckApprovesHealthyState(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &memHaltStore{})
	verdict, err := m.Check(context.Background(), buyDecision(), healthyState())
	require.NoError(t, err)
	assert.True(t, verdict.Approved)
	assert.Empty(t, verdict.Reason)
}

func TestCheckHaltVetoPrecedence(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &memHaltStore{halted: true, reason: "manual stop"})

	// Halt rejects everything, even states that would otherwise pass and
	// even states that breach later checks: halted is always the reason.
	states := []models.PortfolioState{
		healthyState(),
		{Equity: 100_000, DailyPL: -5_000, CurrentDrawdown: 0.5, ConsecutiveLosses: 10,
			OpenPositions: map[string]models.Position{"AAPL": {}, "MSFT": {}, "NVDA": {}}},
	}
	actions := []models.Action{models.ActionBuy, models.ActionSell, models.ActionHold}
	for _, st := range states {
		for _, a := range actions {
			verdict, err := m.Check(context.Background(), models.EnsembleDecision{Action: a}, st)
			require.NoError(t, err)
			assert.False(t, verdict.Approved)
			assert.Equal(t, models.RejectHalted, verdict.Reason)
			assert.Contains(t, verdict.Detail, "manual stop")
		}
	}
}

func TestCheckHaltStoreFailureFailsClosed(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &memHaltStore{err: fmt.Errorf("connection refused")})
	verdict, err := m.Check(context.Background(), buyDecision(), healthyState())
	assert.Error(t, err)
	assert.False(t, verdict.Approved)
	assert.Equal(t, models.RejectHalted, verdict.Reason)
}

func TestCheckDailyLossLimit(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &memHaltStore{})

	st := healthyState()
	st.DailyPL = -3_000 // -3% of equity against a 2% limit
	verdict, err := m.Check(context.Background(), buyDecision(), st)
	require.NoError(t, err)
	assert.False(t, verdict.Approved)
	assert.Equal(t, models.RejectDailyLoss, verdict.Reason)
	assert.Contains(t, verdict.Detail, "3.00%")
	assert.Contains(t, verdict.Detail, "2.00%")

	// Exactly at the limit is a breach.
	st.DailyPL = -2_000
	verdict, err = m.Check(context.Background(), buyDecision(), st)
	require.NoError(t, err)
	assert.Equal(t, models.RejectDailyLoss, verdict.Reason)

	// Just inside the limit passes.
	st.DailyPL = -1_999
	verdict, err = m.Check(context.Background(), buyDecision(), st)
	require.NoError(t, err)
	assert.True(t, verdict.Approved)
}

func TestCheckOrderShortCircuits(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &memHaltStore{})

	// Every later check would also trip, but daily loss is first in line.
	st := healthyState()
	st.DailyPL = -10_000
	st.CurrentDrawdown = 0.5
	st.ConsecutiveLosses = 99
	st.OpenPositions = map[string]models.Position{
		"AAPL": {}, "MSFT": {}, "NVDA": {}, "AMZN": {},
	}
	verdict, err := m.Check(context.Background(), buyDecision(), st)
	require.NoError(t, err)
	assert.Equal(t, models.RejectDailyLoss, verdict.Reason)
}

func TestCheckRemainingLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*models.PortfolioState)
		want   models.RejectReason
	}{
		{"drawdown at limit", func(s *models.PortfolioState) { s.CurrentDrawdown = 0.15 }, models.RejectDrawdown},
		{"drawdown above limit", func(s *models.PortfolioState) { s.CurrentDrawdown = 0.40 }, models.RejectDrawdown},
		{"position count at limit", func(s *models.PortfolioState) {
			s.OpenPositions = map[string]models.Position{"AAPL": {}, "MSFT": {}, "NVDA": {}}
		}, models.RejectPositionLimit},
		{"loss streak at limit", func(s *models.PortfolioState) { s.ConsecutiveLosses = 4 }, models.RejectLossStreak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := newTestManager(t, &memHaltStore{})
			st := healthyState()
			tt.mutate(&st)
			verdict, err := m.Check(context.Background(), buyDecision(), st)
			require.NoError(t, err)
			assert.False(t, verdict.Approved)
			assert.Equal(t, tt.want, verdict.Reason)
			assert.NotEmpty(t, verdict.Detail)
		})
	}
}

func TestCheckMonotonicity(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &memHaltStore{})
	base := healthyState()
	base.DailyPL = -1_000
	base.CurrentDrawdown = 0.10
	base.ConsecutiveLosses = 2
	base.OpenPositions = map[string]models.Position{"AAPL": {}, "MSFT": {}}

	verdict, err := m.Check(context.Background(), buyDecision(), base)
	require.NoError(t, err)
	require.True(t, verdict.Approved)

	// Improving any dimension of an approved state never flips it to a
	// rejection.
	improvements := []func(*models.PortfolioState){
		func(s *models.PortfolioState) { s.DailyPL = 0 },
		func(s *models.PortfolioState) { s.CurrentDrawdown = 0 },
		func(s *models.PortfolioState) { s.ConsecutiveLosses = 0 },
		func(s *models.PortfolioState) { s.OpenPositions = map[string]models.Position{} },
		func(s *models.PortfolioState) { s.Equity *= 2 },
	}
	for i, improve := range improvements {
		st := base
		st.OpenPositions = map[string]models.Position{"AAPL": {}, "MSFT": {}}
		improve(&st)
		verdict, err := m.Check(context.Background(), buyDecision(), st)
		require.NoError(t, err)
		assert.True(t, verdict.Approved, "improvement %d flipped approval", i)
	}

	// Degrading a rejected state never earns an approval.
	rejected := base
	rejected.CurrentDrawdown = 0.20
	verdict, err = m.Check(context.Background(), buyDecision(), rejected)
	require.NoError(t, err)
	require.False(t, verdict.Approved)

	worse := rejected
	worse.DailyPL = -5_000
	verdict, err = m.Check(context.Background(), buyDecision(), worse)
	require.NoError(t, err)
	assert.False(t, verdict.Approved)
}

func TestHaltSwitchRoundTrip(t *testing.T) {
	t.Parallel()

	hs := NewHaltSwitch(&memHaltStore{})
	ctx := context.Background()

	halted, _, err := hs.IsHalted(ctx)
	require.NoError(t, err)
	assert.False(t, halted)

	require.NoError(t, hs.SetHalted(ctx, true, "fat finger"))
	halted, reason, err := hs.IsHalted(ctx)
	require.NoError(t, err)
	assert.True(t, halted)
	assert.Equal(t, "fat finger", reason)

	require.NoError(t, hs.SetHalted(ctx, false, ""))
	halted, _, err = hs.IsHalted(ctx)
	require.NoError(t, err)
	assert.False(t, halted)

	// Halting without a reason is refused.
	assert.Error(t, hs.SetHalted(ctx, true, ""))
}

func TestNewManagerRejectsBadLimits(t *testing.T) {
	t.Parallel()

	bad := testLimits()
	bad.MaxPositionPct = 0
	_, err := NewManager(bad, NewHaltSwitch(&memHaltStore{}))
	assert.Error(t, err)

	bad = testLimits()
	bad.MaxDailyLossPct = 1.5
	_, err = NewManager(bad, NewHaltSwitch(&memHaltStore{}))
	assert.Error(t, err)

	_, err = NewManager(testLimits(), nil)
	assert.Error(t, err)
}
