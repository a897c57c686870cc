package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domrepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	"github.com/YoByron/trading-sub013/internal/portfolio"
	pkgkafka "github.com/YoByron/trading-sub013/pkg/kafka"
	applogger "github.com/YoByron/trading-sub013/pkg/logger"
)

// KafkaFillsHandler consumes execution fills and applies them to the
// portfolio tracker. The tracker is the only writer of portfolio state, so
// every fill flows through here regardless of which venue produced it.
type KafkaFillsHandler struct {
	topic   string
	tracker *portfolio.Tracker
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewKafkaFillsHandler(topic string, tracker *portfolio.Tracker, metrics domrepo.Metrics) *KafkaFillsHandler {
	return &KafkaFillsHandler{topic: topic, tracker: tracker, metrics: metrics}
}

// SetLogger injects a structured logger.
func (h *KafkaFillsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *KafkaFillsHandler) Topic() string { return h.topic }

func (h *KafkaFillsHandler) Handle(ctx context.Context, b []byte) error {
	var fill models.ExecutionFill
	if err := json.Unmarshal(b, &fill); err != nil {
		h.metrics.RecordError("fills_unmarshal")
		return err
	}
	if !fill.FilledAt.IsZero() {
		h.metrics.RecordFillLatency(time.Since(fill.FilledAt).Seconds())
	}

	if err := h.tracker.Apply(fill); err != nil {
		h.metrics.RecordError("fills_apply")
		if h.l != nil {
			h.l.Error("fill apply failed",
				applogger.String("order_id", fill.OrderID),
				applogger.String("ticker", fill.Ticker),
				applogger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
				applogger.Error(err),
			)
		}
		return err
	}

	if h.l != nil {
		h.l.Info("fill applied",
			applogger.String("order_id", fill.OrderID),
			applogger.String("ticker", fill.Ticker),
			applogger.String("kind", fill.Kind),
			applogger.Float64("notional", fill.Notional),
			applogger.Float64("realized_pl", fill.RealizedPL),
			applogger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
		)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaFillsHandler)(nil)
