package repository

import (
	"context"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

// SignalStream is a push-style signal source (websocket feed and the like).
type SignalStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, tickers []string) error
	Read(ctx context.Context) (<-chan *models.Signal, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalSource is a pull-style signal source, one per gate category.
// No assumption about internal computation; only the output contract holds.
type SignalSource interface {
	Name() string
	GetSignal(ctx context.Context, ticker string, asOf time.Time) (models.Signal, error)
}

// IntentPublisher hands sized order intents to the trade gateway. The
// pipeline never retries at this boundary.
type IntentPublisher interface {
	Submit(ctx context.Context, intent models.OrderIntent) (models.SubmitReceipt, error)
	Close() error
}

// HaltStore persists the emergency-stop flag across restarts.
type HaltStore interface {
	Get(ctx context.Context) (halted bool, reason string, err error)
	Set(ctx context.Context, halted bool, reason string) error
}

// DecisionJournal records every tick outcome, approved or not.
type DecisionJournal interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Append(ctx context.Context, rec models.DecisionRecord) error
	AppendBatch(ctx context.Context, recs []models.DecisionRecord) error
	Query(ctx context.Context, ticker string, from, to time.Time, limit int) ([]models.DecisionRecord, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// ReportStore persists validation reports as immutable artifacts.
type ReportStore interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, report models.ValidationReport) error
	Get(ctx context.Context, id string) (models.ValidationReport, error)
	Latest(ctx context.Context, ticker, strategy string) (models.ValidationReport, error)
	Close() error
}

type Metrics interface {
	RecordDecision(ticker string, action string)
	RecordRejection(ticker string, reason string)
	RecordGateVote(gate string, vote string)
	RecordNoOp(ticker string)
	RecordError(kind string)
	RecordTickLatency(seconds float64)
	RecordValidationRun(verdict string)
	RecordIntakeDepth(n int)
	RecordFillLatency(seconds float64)
}
