package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	drepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	mid "github.com/YoByron/trading-sub013/internal/middleware"
)

// SignalBook keeps the latest signal per (source, ticker). The stream side
// writes it; pull-mode gates read it at tick time through a BookSource.
type SignalBook struct {
	mu      sync.RWMutex
	entries map[string]models.Signal
}

func NewSignalBook() *SignalBook {
	return &SignalBook{entries: make(map[string]models.Signal)}
}

func bookKey(sourceID, ticker string) string { return sourceID + "|" + ticker }

// Process stores the signal as the latest for its source and ticker. An
// older timestamp never overwrites a newer one; out-of-order frames happen
// after reconnects.
func (b *SignalBook) Process(_ context.Context, s *models.Signal) error {
	if s == nil {
		return fmt.Errorf("signal nil")
	}
	key := bookKey(s.SourceID, s.Ticker)
	b.mu.Lock()
	if cur, ok := b.entries[key]; !ok || !s.Timestamp.Before(cur.Timestamp) {
		b.entries[key] = *s
	}
	b.mu.Unlock()
	return nil
}

// Latest returns the newest signal seen for the source and ticker.
func (b *SignalBook) Latest(sourceID, ticker string) (models.Signal, bool) {
	b.mu.RLock()
	s, ok := b.entries[bookKey(sourceID, ticker)]
	b.mu.RUnlock()
	return s, ok
}

// BookSource exposes one stream source's book entries through the pull
// interface, so streamed gates and HTTP gates look identical to the
// pipeline. A missing or stale entry is a data error: the gate abstains
// and the error surfaces, which is exactly what a dead feed should do.
type BookSource struct {
	name   string
	book   *SignalBook
	source string
	maxAge time.Duration
}

func NewBookSource(name string, book *SignalBook, source string, maxAge time.Duration) *BookSource {
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &BookSource{name: name, book: book, source: source, maxAge: maxAge}
}

func (s *BookSource) Name() string { return s.name }

func (s *BookSource) GetSignal(_ context.Context, ticker string, asOf time.Time) (models.Signal, error) {
	sig, ok := s.book.Latest(s.source, ticker)
	if !ok {
		return models.Signal{}, fmt.Errorf("no signal from %s for %s", s.source, ticker)
	}
	if age := asOf.Sub(sig.Timestamp); age > s.maxAge {
		return models.Signal{}, fmt.Errorf("signal from %s for %s is stale: age %s exceeds %s", s.source, ticker, age.Round(time.Second), s.maxAge)
	}
	return sig, nil
}

var _ drepo.SignalSource = (*BookSource)(nil)

// SignalCollector pumps the websocket stream through the intake into the
// signal book.
type SignalCollector struct {
	stream  drepo.SignalStream
	book    *SignalBook
	metrics drepo.Metrics
	intake  *mid.SignalIntake
	tickers []string
}

// NewSignalCollector creates a new SignalCollector instance.
func NewSignalCollector(stream drepo.SignalStream, book *SignalBook, metrics drepo.Metrics, intake *mid.SignalIntake, tickers []string) *SignalCollector {
	return &SignalCollector{stream: stream, book: book, metrics: metrics, intake: intake, tickers: tickers}
}

// IsConnected returns true if the signal stream is connected.
func (c *SignalCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *SignalCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx, c.tickers); err != nil {
		return err
	}
	if c.intake != nil {
		c.intake.Start(ctx)
	}
	sigCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, sigCh, errCh)
	return nil
}

func (c *SignalCollector) consume(ctx context.Context, sigCh <-chan *models.Signal, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case s := <-sigCh:
			if s == nil {
				continue
			}
			if c.intake != nil {
				_ = c.intake.Process(ctx, s)
			} else {
				_ = c.book.Process(ctx, s)
			}
		}
	}
}

// Shutdown stops the intake and closes the stream.
func (c *SignalCollector) Shutdown(ctx context.Context) error {
	if c.intake != nil {
		c.intake.Stop()
	}
	return c.stream.Close()
}
