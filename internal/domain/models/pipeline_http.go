package models

import "time"

// Requests for pipeline HTTP endpoints. Defined in domain for consistency and reuse.

type EvaluateRequest struct {
	Tickers []string `json:"tickers" validate:"required,min=1,max=64,dive,required"`
	DryRun  bool     `json:"dry_run"`
}

type DecisionsRequest struct {
	Ticker string `query:"ticker" json:"ticker"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type HaltRequest struct {
	Halted bool   `json:"halted"`
	Reason string `json:"reason" validate:"max=256"`
}

// TickOutcome is one ticker's result within an evaluation pass.
type TickOutcome struct {
	Ticker             string           `json:"ticker"`
	DecisionID         string           `json:"decision_id"`
	Action             Action           `json:"action"`
	ConsensusScore     float64          `json:"consensus_score"`
	WeightedConfidence float64          `json:"weighted_confidence"`
	Unanimous          bool             `json:"unanimous"`
	Votes              map[VoteKind]int `json:"votes"`
	Approved           bool             `json:"approved"`
	RejectReason       RejectReason     `json:"reject_reason,omitempty"`
	Detail             string           `json:"detail,omitempty"`
	Notional           float64          `json:"notional"`
	NoOp               bool             `json:"no_op"`
	DryRun             bool             `json:"dry_run"`
	SubmitStatus       SubmitStatus     `json:"submit_status,omitempty"`
	DataErrors         []string         `json:"data_errors,omitempty"`
}

// TickResult aggregates one evaluation pass across all requested tickers.
type TickResult struct {
	At       time.Time     `json:"at"`
	Outcomes []TickOutcome `json:"outcomes"`
}

type ValidationRunRequest struct {
	Ticker      string `json:"ticker" validate:"required"`
	Strategy    string `json:"strategy" default:"momentum" validate:"oneof=momentum gated_ensemble"`
	TF          string `json:"tf" default:"1d" validate:"oneof=1m 5m 1h 1d"`
	From        string `json:"from" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	To          string `json:"to" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	TrainWindow int    `json:"train_window" default:"252" validate:"gte=20,lte=5000"`
	TestWindow  int    `json:"test_window" default:"63" validate:"gte=5,lte=2000"`
	Step        int    `json:"step" default:"21" validate:"gte=1,lte=2000"`
	Async       bool   `json:"async"`
}
