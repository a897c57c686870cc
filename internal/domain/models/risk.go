package models

import (
	"fmt"
	"time"
)

// RiskLimits are the hard process-wide limits, loaded once at startup and
// immutable for the life of the run. A breached limit only ever moves a
// decision toward hold/rejection.
type RiskLimits struct {
	MaxPositionPct         float64 // fraction of equity per position, (0,1]
	MaxDailyLossPct        float64 // fraction of equity, (0,1]
	MaxDrawdownPct         float64 // fraction below equity peak, (0,1]
	MaxConcurrentPositions int
	MaxConsecutiveLosses   int
}

// Validate fails closed on any limit that makes no sense.
func (l RiskLimits) Validate() error {
	if l.MaxPositionPct <= 0 || l.MaxPositionPct > 1 {
		return fmt.Errorf("max_position_pct must be in (0,1], got %v", l.MaxPositionPct)
	}
	if l.MaxDailyLossPct <= 0 || l.MaxDailyLossPct > 1 {
		return fmt.Errorf("max_daily_loss_pct must be in (0,1], got %v", l.MaxDailyLossPct)
	}
	if l.MaxDrawdownPct <= 0 || l.MaxDrawdownPct > 1 {
		return fmt.Errorf("max_drawdown_pct must be in (0,1], got %v", l.MaxDrawdownPct)
	}
	if l.MaxConcurrentPositions < 1 {
		return fmt.Errorf("max_concurrent_positions must be >= 1, got %d", l.MaxConcurrentPositions)
	}
	if l.MaxConsecutiveLosses < 1 {
		return fmt.Errorf("max_consecutive_losses must be >= 1, got %d", l.MaxConsecutiveLosses)
	}
	return nil
}

type Position struct {
	Ticker   string
	Side     Side
	Notional float64
	OpenedAt time.Time
}

// PortfolioState is a point-in-time snapshot. Only the portfolio tracker
// writes it; gates and the ensemble treat it as read-only.
type PortfolioState struct {
	Equity            float64
	OpenPositions     map[string]Position // keyed by ticker
	DailyPL           float64
	ConsecutiveLosses int
	CurrentDrawdown   float64 // fraction below the equity peak, [0,1]
	AsOf              time.Time
}

// AvailableCash is equity not already committed to open positions.
func (s PortfolioState) AvailableCash() float64 {
	cash := s.Equity
	for _, p := range s.OpenPositions {
		cash -= p.Notional
	}
	if cash < 0 {
		return 0
	}
	return cash
}
