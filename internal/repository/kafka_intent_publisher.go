package repository

import (
	"context"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	"github.com/YoByron/trading-sub013/internal/domain/repository"
	pkgkafka "github.com/YoByron/trading-sub013/pkg/kafka"
)

// KafkaIntentPublisher implements IntentPublisher over Kafka. Intents are
// keyed by ticker so per-ticker order survives partitioning. The broker
// order id comes back later on the fills topic, never here.
type KafkaIntentPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaIntentPublisher creates a Kafka intent publisher.
func NewKafkaIntentPublisher(producer *pkgkafka.Producer, topic string) repository.IntentPublisher {
	return &KafkaIntentPublisher{producer: producer, topic: topic}
}

func (p *KafkaIntentPublisher) Submit(ctx context.Context, intent models.OrderIntent) (models.SubmitReceipt, error) {
	if err := p.producer.Publish(ctx, p.topic, []byte(intent.Ticker), intent); err != nil {
		return models.SubmitReceipt{Status: models.SubmitError, Reason: err.Error()}, err
	}
	return models.SubmitReceipt{Status: models.SubmitAccepted}, nil
}

func (p *KafkaIntentPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
