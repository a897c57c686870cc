package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueueService is the producer-side surface. Consumers take the concrete
// queue so they can register jobs and manage worker lifecycle.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// QueueConfig tunes the worker pool and retry policy.
type QueueConfig struct {
	Workers    int
	QueueSize  int
	RetryLimit int
	RetryDelay time.Duration
}

// Message is the envelope stored on the wire. Attempts counts deliveries
// so the retry limit survives process restarts.
type Message struct {
	ID        string
	Type      string
	Payload   interface{}
	Attempts  int
	Timestamp time.Time
}

// ParsePayload recovers a typed payload from a message. Payloads that
// crossed Redis arrive as generic JSON shapes; payloads published and
// consumed in the same process arrive as the original value.
func ParsePayload[T any](payload interface{}) (*T, error) {
	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		var result T
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &result, nil
	case []byte:
		var result T
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &result, nil
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("remarshal payload: %w", err)
		}
		var result T
		if err := json.Unmarshal(b, &result); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
}
