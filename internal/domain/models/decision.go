package models

import "time"

type VoteKind string

const (
	VoteFor     VoteKind = "for"
	VoteAgainst VoteKind = "against"
	VoteAbstain VoteKind = "abstain"
)

type Action string

const (
	ActionBuy  Action = "buy"
	ActionHold Action = "hold"
	ActionSell Action = "sell"
)

// GateVote is one gate's verdict on one signal.
type GateVote struct {
	GateName   string
	Decision   VoteKind
	Confidence float64 // [0,1]
}

// VoteMode selects how gate votes combine into a decision.
type VoteMode string

const (
	ModeMajority  VoteMode = "majority"
	ModeWeighted  VoteMode = "weighted"
	ModeUnanimous VoteMode = "unanimous"
)

// EnsembleDecision is the combined verdict across all gates for one ticker.
type EnsembleDecision struct {
	Action             Action
	ConsensusScore     float64 // [0,1]
	Votes              map[VoteKind]int
	WeightedConfidence float64
	Unanimous          bool // every non-abstaining vote agreed
	PerGateVotes       map[string]GateVote
}

// RejectReason names the risk check that blocked a decision.
type RejectReason string

const (
	RejectHalted        RejectReason = "halted"
	RejectDailyLoss     RejectReason = "daily_loss_limit"
	RejectDrawdown      RejectReason = "drawdown_limit"
	RejectPositionLimit RejectReason = "position_limit"
	RejectLossStreak    RejectReason = "loss_streak"
)

// RiskVerdict is the circuit breaker's answer for one decision. A rejection
// always carries the first reason that tripped, never a generic one.
type RiskVerdict struct {
	Approved bool
	Reason   RejectReason // empty when approved
	Detail   string       // human-readable, includes the numbers that tripped
}

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderIntent is the sized output of one approved decision. Zero notional
// marks a reported no-op (cash below the order floor), not a rejection.
type OrderIntent struct {
	ID         string    `json:"id"`
	DecisionID string    `json:"decision_id"`
	Ticker     string    `json:"ticker"`
	Side       Side      `json:"side"`
	Notional   float64   `json:"notional"`
	EmittedAt  time.Time `json:"emitted_at"`
}

func (o OrderIntent) NoOp() bool { return o.Notional == 0 }

type SubmitStatus string

const (
	SubmitAccepted SubmitStatus = "submitted"
	SubmitRejected SubmitStatus = "rejected"
	SubmitError    SubmitStatus = "error"
)

// SubmitReceipt is the gateway's answer to one intent. Retry and backoff
// policy live behind the gateway, never here.
type SubmitReceipt struct {
	Status        SubmitStatus `json:"status"`
	BrokerOrderID string       `json:"broker_order_id,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

// ExecutionFill is a confirmation consumed from the execution venue.
type ExecutionFill struct {
	OrderID    string    `json:"order_id"`
	Ticker     string    `json:"ticker"`
	Side       Side      `json:"side"`
	Kind       string    `json:"kind"` // "open" | "close"
	Notional   float64   `json:"notional"`
	Price      float64   `json:"price"`
	RealizedPL float64   `json:"realized_pl"` // set on closing fills
	FilledAt   time.Time `json:"filled_at"`
}

// DecisionRecord is the journal row written for every tick outcome,
// approved, rejected or no-op alike.
type DecisionRecord struct {
	ID                 string       `json:"id"`
	Ticker             string       `json:"ticker"`
	TickAt             time.Time    `json:"tick_at"`
	Action             Action       `json:"action"`
	ConsensusScore     float64      `json:"consensus_score"`
	WeightedConfidence float64      `json:"weighted_confidence"`
	Unanimous          bool         `json:"unanimous"`
	VotesFor           int          `json:"votes_for"`
	VotesAgainst       int          `json:"votes_against"`
	VotesAbstain       int          `json:"votes_abstain"`
	Approved           bool         `json:"approved"`
	RejectReason       RejectReason `json:"reject_reason,omitempty"`
	Detail             string       `json:"detail,omitempty"`
	Notional           float64      `json:"notional"`
	NoOp               bool         `json:"no_op"`
	CreatedAt          time.Time    `json:"created_at"`
}
