package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Publisher ships aggregated log batches to a broker topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type AggregateConfig struct {
	FlushInterval  time.Duration // max time an entry sits before shipping
	CountThreshold int           // max distinct entries held before an early flush
	Topic          string
	Publisher      Publisher
}

// AggregateEntry is one deduplicated log line with its repeat count. A
// rejection storm that logs the same reason every tick ships as a single
// counted entry per flush window.
type AggregateEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

type Aggregator struct {
	cfg     *AggregateConfig
	entries map[string]*AggregateEntry
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewAggregator(cfg *AggregateConfig) *Aggregator {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Aggregator{
		cfg:     cfg,
		entries: make(map[string]*AggregateEntry),
		ctx:     ctx,
		cancel:  cancel,
	}

	a.wg.Add(1)
	go a.loop()

	return a
}

func (a *Aggregator) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		a.entries[key] = &AggregateEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(a.entries) >= a.cfg.CountThreshold {
		a.flushLocked()
	}
}

// entryKey hashes everything that makes a log line distinct, so identical
// lines collapse and near-identical ones (different ticker, say) do not.
func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller}

	b, _ := json.Marshal(data)
	return fmt.Sprintf("%x", sha256.Sum256(b))
}

func (a *Aggregator) loop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.mu.Lock()
			a.flushLocked()
			a.mu.Unlock()
		case <-a.ctx.Done():
			// Final flush before shutdown.
			a.mu.Lock()
			a.flushLocked()
			a.mu.Unlock()
			return
		}
	}
}

func (a *Aggregator) flushLocked() {
	if len(a.entries) == 0 {
		return
	}

	batch := make([]AggregateEntry, 0, len(a.entries))
	for _, e := range a.entries {
		batch = append(batch, *e)
	}
	a.entries = make(map[string]*AggregateEntry)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := a.cfg.Publisher.PublishMessage(ctx, a.cfg.Topic, batch); err != nil {
			fmt.Printf("failed to ship aggregated logs: %v\n", err)
		}
	}()
}

func (a *Aggregator) Close() {
	a.cancel()
	a.wg.Wait()
}
