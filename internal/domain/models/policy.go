package models

import "fmt"

// Direction is the book direction a proposal evaluates signals against.
// A gate votes "for" when the signal's stance supports the direction,
// "against" when it opposes or reads neutral, and abstains only when its
// confidence is below the policy floor.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// EntryAction maps a won proposal to its order action.
func (d Direction) EntryAction() Action {
	if d == DirectionShort {
		return ActionSell
	}
	return ActionBuy
}

// EntrySide maps a won proposal to its order side.
func (d Direction) EntrySide() Side {
	if d == DirectionShort {
		return SideSell
	}
	return SideBuy
}

// GatePolicy is one gate's pass/fail policy. Weight only matters in
// weighted mode and is normalized across gates before combination.
type GatePolicy struct {
	Name            string
	Source          string // signal source the gate listens to
	ConfidenceFloor float64
	Weight          float64
}

func (p GatePolicy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("gate name is required")
	}
	if p.ConfidenceFloor < 0 || p.ConfidenceFloor > 1 {
		return fmt.Errorf("gate %s: confidence_floor must be in [0,1], got %v", p.Name, p.ConfidenceFloor)
	}
	if p.Weight < 0 {
		return fmt.Errorf("gate %s: weight must be >= 0, got %v", p.Name, p.Weight)
	}
	return nil
}

// VotingPolicy configures how gate votes combine.
type VotingPolicy struct {
	Mode      VoteMode
	Threshold float64   // winning share required, [0,1]
	Direction Direction // proposal direction for the book
}

func (p VotingPolicy) Validate() error {
	switch p.Mode {
	case ModeMajority, ModeWeighted, ModeUnanimous:
	default:
		return fmt.Errorf("unknown voting mode %q", p.Mode)
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return fmt.Errorf("voting threshold must be in [0,1], got %v", p.Threshold)
	}
	switch p.Direction {
	case DirectionLong, DirectionShort:
	default:
		return fmt.Errorf("unknown direction %q", p.Direction)
	}
	return nil
}

// SizingPolicy bounds order construction.
type SizingPolicy struct {
	MinOrderNotional float64 // below this, emit a reported no-op
}

func (p SizingPolicy) Validate() error {
	if p.MinOrderNotional < 0 {
		return fmt.Errorf("min_order_notional must be >= 0, got %v", p.MinOrderNotional)
	}
	return nil
}
