package gates

import (
	"fmt"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domsvc "github.com/YoByron/trading-sub013/internal/domain/service"
)

// Evaluator normalizes a signal's encoding and votes it against the book
// direction. No side effects; safe for concurrent use across tickers.
type Evaluator struct {
	direction models.Direction
}

func NewEvaluator(direction models.Direction) *Evaluator {
	return &Evaluator{direction: direction}
}

var _ domsvc.GateEvaluator = (*Evaluator)(nil)

// Evaluate turns one signal into a vote. Confidence below the policy floor
// abstains regardless of direction. A malformed encoding or out-of-range
// confidence also abstains, but surfaces the error so the caller logs it
// instead of mistaking it for a legitimate low-confidence reading.
func (e *Evaluator) Evaluate(signal models.Signal, policy models.GatePolicy) (models.GateVote, error) {
	vote := models.GateVote{GateName: policy.Name}

	if signal.Confidence < 0 || signal.Confidence > 1 {
		vote.Decision = models.VoteAbstain
		return vote, fmt.Errorf("gate %s: confidence %.4f outside [0,1]", policy.Name, signal.Confidence)
	}
	vote.Confidence = signal.Confidence

	if signal.Confidence < policy.ConfidenceFloor {
		vote.Decision = models.VoteAbstain
		return vote, nil
	}

	stance, err := signal.Encoding.Stance()
	if err != nil {
		vote.Decision = models.VoteAbstain
		return vote, fmt.Errorf("gate %s: %w", policy.Name, err)
	}

	if supports(stance, e.direction) {
		vote.Decision = models.VoteFor
	} else {
		vote.Decision = models.VoteAgainst
	}
	return vote, nil
}

// supports reports whether a stance backs entering in the given direction.
// Neutral backs neither direction.
func supports(stance models.Stance, dir models.Direction) bool {
	if dir == models.DirectionShort {
		return stance == models.StanceBearish
	}
	return stance == models.StanceBullish
}
