package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domrepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	"github.com/YoByron/trading-sub013/internal/portfolio"
	"github.com/YoByron/trading-sub013/internal/risk"
	"github.com/YoByron/trading-sub013/pkg/cache"
	xhttp "github.com/YoByron/trading-sub013/pkg/http"
	"github.com/YoByron/trading-sub013/pkg/util"
)

// OpsUseCase serves the read and control surface of the pipeline: journal
// queries, latest-decision snapshots, portfolio state, and the halt switch.
type OpsUseCase struct {
	journal   domrepo.DecisionJournal
	snapshots cache.Service
	tracker   *portfolio.Tracker
	halt      *risk.HaltSwitch
	tickers   []string // configured defaults for latest-decision lookups
}

func NewOpsUseCase(
	journal domrepo.DecisionJournal,
	tracker *portfolio.Tracker,
	halt *risk.HaltSwitch,
	tickers []string,
) *OpsUseCase {
	return &OpsUseCase{
		journal: journal,
		tracker: tracker,
		halt:    halt,
		tickers: tickers,
	}
}

// SetSnapshotCache enables latest-decision reads from the cache written by
// the pipeline. Without it lookups fall back to the journal.
func (uc *OpsUseCase) SetSnapshotCache(c cache.Service) { uc.snapshots = c }

type DecisionsResult struct {
	Ticker    string                 `json:"ticker"`
	From      time.Time              `json:"from"`
	To        time.Time              `json:"to"`
	Count     int                    `json:"count"`
	Decisions []models.DecisionRecord `json:"decisions"`
}

// Decisions pages through the journal for one ticker, newest first.
func (uc *OpsUseCase) Decisions(ctx context.Context, req models.DecisionsRequest) (*DecisionsResult, error) {
	if req.Ticker == "" {
		return nil, xhttp.BadRequestError("ticker required")
	}
	to := util.ParseTimeDefault(req.To, time.Now().UTC())
	from := util.ParseTimeDefault(req.From, to.Add(-24*time.Hour))
	if from.After(to) {
		return nil, xhttp.BadRequestError("from must be <= to")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	recs, err := uc.journal.Query(ctx, req.Ticker, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	return &DecisionsResult{
		Ticker:    req.Ticker,
		From:      from,
		To:        to,
		Count:     len(recs),
		Decisions: recs,
	}, nil
}

// LatestDecisions returns the most recent decision per ticker. Tickers
// without any decision yet are simply absent from the result.
func (uc *OpsUseCase) LatestDecisions(ctx context.Context, tickers []string) (map[string]models.DecisionRecord, error) {
	if len(tickers) == 0 {
		tickers = uc.tickers
	}
	if len(tickers) == 0 {
		return map[string]models.DecisionRecord{}, nil
	}

	if uc.snapshots != nil {
		keys := make([]string, len(tickers))
		for i, t := range tickers {
			keys[i] = cache.GenerateKey("decisions:latest", t)
		}
		byKey, err := cache.MGetTyped[models.DecisionRecord](ctx, uc.snapshots, keys...)
		if err != nil {
			return nil, fmt.Errorf("read decision snapshots: %w", err)
		}
		out := make(map[string]models.DecisionRecord, len(byKey))
		for i, t := range tickers {
			if rec, ok := byKey[keys[i]]; ok {
				out[t] = rec
			}
		}
		return out, nil
	}

	// No snapshot cache wired; fall back to a bounded journal scan.
	to := time.Now().UTC()
	from := to.Add(-7 * 24 * time.Hour)
	out := make(map[string]models.DecisionRecord, len(tickers))
	for _, t := range tickers {
		recs, err := uc.journal.Query(ctx, t, from, to, 1)
		if err != nil {
			return nil, fmt.Errorf("query latest decision for %s: %w", t, err)
		}
		if len(recs) > 0 {
			out[t] = recs[0]
		}
	}
	return out, nil
}

type PositionView struct {
	Ticker   string    `json:"ticker"`
	Side     string    `json:"side"`
	Notional float64   `json:"notional"`
	OpenedAt time.Time `json:"opened_at"`
}

type PositionsResult struct {
	Equity            float64        `json:"equity"`
	AvailableCash     float64        `json:"available_cash"`
	DailyPL           float64        `json:"daily_pl"`
	ConsecutiveLosses int            `json:"consecutive_losses"`
	CurrentDrawdown   float64        `json:"current_drawdown"`
	AsOf              time.Time      `json:"as_of"`
	Positions         []PositionView `json:"positions"`
}

// Positions snapshots the tracked portfolio.
func (uc *OpsUseCase) Positions(ctx context.Context) (*PositionsResult, error) {
	state := uc.tracker.Snapshot()
	views := make([]PositionView, 0, len(state.OpenPositions))
	for _, p := range state.OpenPositions {
		views = append(views, PositionView{
			Ticker:   p.Ticker,
			Side:     string(p.Side),
			Notional: p.Notional,
			OpenedAt: p.OpenedAt,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Ticker < views[j].Ticker })

	return &PositionsResult{
		Equity:            state.Equity,
		AvailableCash:     state.AvailableCash(),
		DailyPL:           state.DailyPL,
		ConsecutiveLosses: state.ConsecutiveLosses,
		CurrentDrawdown:   state.CurrentDrawdown,
		AsOf:              state.AsOf,
		Positions:         views,
	}, nil
}

type HaltStatus struct {
	Halted    bool      `json:"halted"`
	Reason    string    `json:"reason,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// HaltStatus reads the persistent halt flag. A store error surfaces as an
// error; the risk layer independently fails closed on the same condition.
func (uc *OpsUseCase) HaltStatus(ctx context.Context) (*HaltStatus, error) {
	halted, reason, err := uc.halt.IsHalted(ctx)
	if err != nil {
		return nil, xhttp.UnavailableError(fmt.Sprintf("halt state unavailable: %v", err))
	}
	return &HaltStatus{Halted: halted, Reason: reason, CheckedAt: time.Now().UTC()}, nil
}

// SetHalt flips the halt switch. Halting requires a reason; resuming
// clears it.
func (uc *OpsUseCase) SetHalt(ctx context.Context, halted bool, reason string) (*HaltStatus, error) {
	if halted && reason == "" {
		return nil, xhttp.BadRequestError("halting requires a reason")
	}
	if !halted {
		reason = ""
	}
	if err := uc.halt.SetHalted(ctx, halted, reason); err != nil {
		return nil, xhttp.UnavailableError(fmt.Sprintf("halt state not persisted: %v", err))
	}
	return &HaltStatus{Halted: halted, Reason: reason, CheckedAt: time.Now().UTC()}, nil
}

// Health pings the journal backend. The HTTP layer folds in liveness of
// the feed separately.
func (uc *OpsUseCase) Health(ctx context.Context) error {
	if err := uc.journal.Health(ctx); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}
