package sizing

import (
	"fmt"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domsvc "github.com/YoByron/trading-sub013/internal/domain/service"
)

// Sizer converts an approved decision into a concrete order intent. The
// notional is capped at the per-position share of equity and at the cash
// actually available; cash below the order floor produces a reported
// zero-notional no-op, never a rejection.
type Sizer struct {
	limits models.RiskLimits
	policy models.SizingPolicy
}

func NewSizer(limits models.RiskLimits, policy models.SizingPolicy) (*Sizer, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("risk limits: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("sizing policy: %w", err)
	}
	return &Sizer{limits: limits, policy: policy}, nil
}

var _ domsvc.PositionSizer = (*Sizer)(nil)

// Size fills ticker, side and notional. Identity fields (IDs, timestamps)
// are stamped by the pipeline that emits the intent.
func (s *Sizer) Size(decision models.EnsembleDecision, state models.PortfolioState, ticker string) (models.OrderIntent, error) {
	if ticker == "" {
		return models.OrderIntent{}, fmt.Errorf("ticker is required")
	}
	var side models.Side
	switch decision.Action {
	case models.ActionBuy:
		side = models.SideBuy
	case models.ActionSell:
		side = models.SideSell
	default:
		return models.OrderIntent{}, fmt.Errorf("action %q is not sizable", decision.Action)
	}
	if state.Equity <= 0 {
		return models.OrderIntent{}, fmt.Errorf("invalid portfolio state: equity %.2f", state.Equity)
	}

	notional := s.limits.MaxPositionPct * state.Equity
	if cash := state.AvailableCash(); cash < notional {
		notional = cash
	}
	if notional < s.policy.MinOrderNotional {
		notional = 0
	}

	return models.OrderIntent{Ticker: ticker, Side: side, Notional: notional}, nil
}
