package risk

import (
	"context"
	"fmt"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domsvc "github.com/YoByron/trading-sub013/internal/domain/service"
)

// Manager is the circuit breaker between the ensemble and the sizer. The
// checks run in a fixed order and the first limit that trips is the one
// reported; later breaches are not merged into it. Model confidence never
// enters here: a confident ensemble still has to clear every hard limit.
type Manager struct {
	limits models.RiskLimits
	halt   domsvc.HaltController
}

// NewManager validates the limits eagerly so a bad configuration refuses to
// start instead of trading on defaults.
func NewManager(limits models.RiskLimits, halt domsvc.HaltController) (*Manager, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("risk limits: %w", err)
	}
	if halt == nil {
		return nil, fmt.Errorf("halt controller is required")
	}
	return &Manager{limits: limits, halt: halt}, nil
}

var _ domsvc.RiskManager = (*Manager)(nil)

// Limits returns the immutable limits the manager enforces.
func (m *Manager) Limits() models.RiskLimits { return m.limits }

// Check applies the hard limits to one decision. It is evaluated for every
// action including holds, so a halted book rejects everything; it can only
// downgrade, a hold stays a hold regardless of approval.
func (m *Manager) Check(ctx context.Context, decision models.EnsembleDecision, state models.PortfolioState) (models.RiskVerdict, error) {
	halted, haltReason, err := m.halt.IsHalted(ctx)
	if err != nil {
		// Fail closed: an unreachable halt store must never enable trading.
		return models.RiskVerdict{
			Approved: false,
			Reason:   models.RejectHalted,
			Detail:   fmt.Sprintf("halt state unavailable, failing closed: %v", err),
		}, fmt.Errorf("read halt state: %w", err)
	}
	if halted {
		detail := "trading halted"
		if haltReason != "" {
			detail = fmt.Sprintf("trading halted: %s", haltReason)
		}
		return models.RiskVerdict{Approved: false, Reason: models.RejectHalted, Detail: detail}, nil
	}

	if state.Equity <= 0 {
		return models.RiskVerdict{
			Approved: false,
			Reason:   models.RejectDrawdown,
			Detail:   fmt.Sprintf("equity %.2f is not positive", state.Equity),
		}, fmt.Errorf("invalid portfolio state: equity %.2f", state.Equity)
	}

	if lossPct := -state.DailyPL / state.Equity; lossPct >= m.limits.MaxDailyLossPct {
		return models.RiskVerdict{
			Approved: false,
			Reason:   models.RejectDailyLoss,
			Detail: fmt.Sprintf("daily loss %.2f%% breaches limit %.2f%%",
				lossPct*100, m.limits.MaxDailyLossPct*100),
		}, nil
	}

	if state.CurrentDrawdown >= m.limits.MaxDrawdownPct {
		return models.RiskVerdict{
			Approved: false,
			Reason:   models.RejectDrawdown,
			Detail: fmt.Sprintf("drawdown %.2f%% breaches limit %.2f%%",
				state.CurrentDrawdown*100, m.limits.MaxDrawdownPct*100),
		}, nil
	}

	if open := len(state.OpenPositions); open >= m.limits.MaxConcurrentPositions {
		return models.RiskVerdict{
			Approved: false,
			Reason:   models.RejectPositionLimit,
			Detail: fmt.Sprintf("%d open positions at limit %d",
				open, m.limits.MaxConcurrentPositions),
		}, nil
	}

	if state.ConsecutiveLosses >= m.limits.MaxConsecutiveLosses {
		return models.RiskVerdict{
			Approved: false,
			Reason:   models.RejectLossStreak,
			Detail: fmt.Sprintf("%d consecutive losses at limit %d",
				state.ConsecutiveLosses, m.limits.MaxConsecutiveLosses),
		}, nil
	}

	return models.RiskVerdict{Approved: true}, nil
}
