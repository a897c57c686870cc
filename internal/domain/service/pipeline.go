package service

import (
	"context"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

// GateEvaluator evaluates one signal against one gate policy. Pure function
// of its inputs; identical inputs always yield identical votes.
type GateEvaluator interface {
	Evaluate(signal models.Signal, policy models.GatePolicy) (models.GateVote, error)
}

// EnsembleVoter combines gate votes into one decision under the given mode.
type EnsembleVoter interface {
	Vote(votes []models.GateVote, mode models.VoteMode) (models.EnsembleDecision, error)
}

// RiskManager applies the hard limits after voting. It can only downgrade a
// decision, never upgrade one, and reports the first limit that tripped.
type RiskManager interface {
	Check(ctx context.Context, decision models.EnsembleDecision, state models.PortfolioState) (models.RiskVerdict, error)
}

// PositionSizer converts an approved decision plus account state into a
// concrete order intent bounded by the limits.
type PositionSizer interface {
	Size(decision models.EnsembleDecision, state models.PortfolioState, ticker string) (models.OrderIntent, error)
}

// HaltController reads and flips the persisted emergency stop. Settable
// externally; checked before any other risk logic every tick.
type HaltController interface {
	IsHalted(ctx context.Context) (bool, string, error)
	SetHalted(ctx context.Context, halted bool, reason string) error
}
