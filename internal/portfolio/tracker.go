package portfolio

import (
	"fmt"
	"sync"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
)

// Tracker owns the portfolio state. Every mutation funnels through Apply,
// driven by the single fills-consumer goroutine; the pipeline and handlers
// only ever read copies via Snapshot.
type Tracker struct {
	mu    sync.RWMutex
	state models.PortfolioState
	peak  float64
	day   time.Time // UTC date the daily P&L belongs to
}

func NewTracker(initialEquity float64) (*Tracker, error) {
	if initialEquity <= 0 {
		return nil, fmt.Errorf("initial equity must be positive, got %v", initialEquity)
	}
	return &Tracker{
		state: models.PortfolioState{
			Equity:        initialEquity,
			OpenPositions: map[string]models.Position{},
		},
		peak: initialEquity,
	}, nil
}

// Snapshot returns a point-in-time copy safe to read concurrently.
func (t *Tracker) Snapshot() models.PortfolioState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := t.state
	out.OpenPositions = make(map[string]models.Position, len(t.state.OpenPositions))
	for k, v := range t.state.OpenPositions {
		out.OpenPositions[k] = v
	}
	out.AsOf = time.Now().UTC()
	return out
}

// Apply folds one execution confirmation into the state. Opening fills add
// exposure; closing fills realize P&L, roll the loss streak and refresh the
// drawdown off the equity peak. The daily P&L resets when the fill lands on
// a new UTC day.
func (t *Tracker) Apply(fill models.ExecutionFill) error {
	if fill.Notional < 0 {
		return fmt.Errorf("fill %s: negative notional %.2f", fill.OrderID, fill.Notional)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	day := fill.FilledAt.UTC().Truncate(24 * time.Hour)
	if !t.day.IsZero() && day.After(t.day) {
		t.state.DailyPL = 0
	}
	if day.After(t.day) {
		t.day = day
	}

	switch fill.Kind {
	case "open":
		pos := t.state.OpenPositions[fill.Ticker]
		pos.Ticker = fill.Ticker
		pos.Side = fill.Side
		pos.Notional += fill.Notional
		if pos.OpenedAt.IsZero() {
			pos.OpenedAt = fill.FilledAt
		}
		t.state.OpenPositions[fill.Ticker] = pos

	case "close":
		if _, ok := t.state.OpenPositions[fill.Ticker]; !ok {
			return fmt.Errorf("fill %s: no open position for %s", fill.OrderID, fill.Ticker)
		}
		delete(t.state.OpenPositions, fill.Ticker)
		t.state.Equity += fill.RealizedPL
		t.state.DailyPL += fill.RealizedPL
		if fill.RealizedPL < 0 {
			t.state.ConsecutiveLosses++
		} else {
			t.state.ConsecutiveLosses = 0
		}
		if t.state.Equity > t.peak {
			t.peak = t.state.Equity
		}
		if t.peak > 0 {
			t.state.CurrentDrawdown = (t.peak - t.state.Equity) / t.peak
		}

	default:
		return fmt.Errorf("fill %s: unknown kind %q", fill.OrderID, fill.Kind)
	}

	return nil
}

// ResetDaily zeroes the daily P&L, for schedulers that roll the day
// explicitly instead of waiting for the first fill of the new session.
func (t *Tracker) ResetDaily() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.DailyPL = 0
}
