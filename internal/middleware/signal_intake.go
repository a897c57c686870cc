package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domrepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	applogger "github.com/YoByron/trading-sub013/pkg/logger"
)

// Proc is the minimal processor interface the intake needs.
type Proc interface {
	Process(ctx context.Context, s *models.Signal) error
}

// SignalIntake sits between the signal stream and the decision pipeline.
// It validates, throttles per ticker, optionally transforms, and buffers
// when downstream is unavailable.
type SignalIntake struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.Signal
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-ticker last accepted time
	// simple format transform hook (optional)
	transform func(*models.Signal) *models.Signal
	// metrics
	throttleWarn func(string)
	l            *applogger.Logger
}

type IntakeOption func(*SignalIntake)

// WithMaxRPS sets the max signals per second per ticker.
func WithMaxRPS(n int) IntakeOption {
	return func(p *SignalIntake) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) IntakeOption {
	return func(p *SignalIntake) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook to normalize incoming signals.
func WithTransform(fn func(*models.Signal) *models.Signal) IntakeOption {
	return func(p *SignalIntake) { p.transform = fn }
}

// NewSignalIntake creates a new intake.
func NewSignalIntake(proc Proc, metrics domrepo.Metrics, opts ...IntakeOption) *SignalIntake {
	p := &SignalIntake{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per ticker
		bufSize:  1000, // default buffer
		bufCh:    make(chan *models.Signal, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.Signal, p.bufSize)
	}
	p.throttleWarn = func(ticker string) { p.metrics.RecordError("intake_throttle_" + ticker) }
	return p
}

// SetLogger attaches the process logger.
func (p *SignalIntake) SetLogger(l *applogger.Logger) { p.l = l }

// Start launches background flushing of buffered signals.
func (p *SignalIntake) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case s := <-p.bufCh:
				if s == nil {
					continue
				}
				if err := p.proc.Process(ctx, s); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("intake_flush")
					if p.l != nil {
						p.l.Warn("intake flush retry",
							applogger.String("ticker", s.Ticker),
							applogger.Error(err),
						)
					}
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- s:
					default:
						p.metrics.RecordError("intake_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
				p.metrics.RecordIntakeDepth(len(p.bufCh))
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *SignalIntake) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards a signal downstream, buffering on errors.
func (p *SignalIntake) Process(ctx context.Context, s *models.Signal) error {
	start := time.Now()
	if err := validateSignal(s); err != nil {
		p.metrics.RecordError("intake_validate")
		return err
	}
	if p.transform != nil {
		s = p.transform(s)
		if err := validateSignal(s); err != nil {
			p.metrics.RecordError("intake_transform_invalid")
			return err
		}
	}
	if !p.allow(s.Ticker, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("intake_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(s.Ticker)
		}
		return nil
	}

	if err := p.proc.Process(ctx, s); err != nil {
		p.metrics.RecordError("intake_process")
		// buffer non-blocking
		select {
		case p.bufCh <- s:
			p.metrics.RecordIntakeDepth(len(p.bufCh))
		default:
			p.metrics.RecordError("intake_buffer_full")
		}
		return fmt.Errorf("intake downstream: %w", err)
	}
	return nil
}

func validateSignal(s *models.Signal) error {
	if s == nil {
		return fmt.Errorf("signal nil")
	}
	if s.Ticker == "" {
		return fmt.Errorf("ticker empty")
	}
	if s.SourceID == "" {
		return fmt.Errorf("source empty")
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence %.4f outside [0,1]", s.Confidence)
	}
	return nil
}

func (p *SignalIntake) allow(ticker string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	// simple throttle: ensure at most maxRPS per second
	last := p.lastSeen[ticker]
	if last.IsZero() {
		p.lastSeen[ticker] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[ticker] = now
	return true
}
