package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domrepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	domsvc "github.com/YoByron/trading-sub013/internal/domain/service"
	"github.com/YoByron/trading-sub013/internal/portfolio"
	"github.com/YoByron/trading-sub013/pkg/cache"
	applogger "github.com/YoByron/trading-sub013/pkg/logger"
	"github.com/YoByron/trading-sub013/pkg/util"
)

// GateBinding pairs one gate's policy with the signal source that feeds it.
type GateBinding struct {
	Policy models.GatePolicy
	Source domrepo.SignalSource
}

// DecisionPipeline runs the per-tick decision sequence: fetch signals,
// evaluate gates, combine votes, apply risk limits, size and submit.
// Signal fetch and gate evaluation fan out per ticker; risk, sizing and
// submission run serialized so every check sees a portfolio state no other
// ticker is mutating mid-tick.
type DecisionPipeline struct {
	gates     []GateBinding
	evaluator domsvc.GateEvaluator
	voter     domsvc.EnsembleVoter
	mode      models.VoteMode
	risk      domsvc.RiskManager
	sizer     domsvc.PositionSizer
	tracker   *portfolio.Tracker
	publisher domrepo.IntentPublisher
	journal   domrepo.DecisionJournal
	snapshots cache.Service // latest-decision snapshots, optional
	metrics   domrepo.Metrics
	l         *applogger.Logger
	dryRun    bool

	mu          sync.Mutex // guards the serialized phase
	lastTickDay string
}

type PipelineConfig struct {
	Gates     []GateBinding
	Evaluator domsvc.GateEvaluator
	Voter     domsvc.EnsembleVoter
	Mode      models.VoteMode
	Risk      domsvc.RiskManager
	Sizer     domsvc.PositionSizer
	Tracker   *portfolio.Tracker
	Publisher domrepo.IntentPublisher
	Journal   domrepo.DecisionJournal
	Metrics   domrepo.Metrics
	DryRun    bool
}

func NewDecisionPipeline(cfg PipelineConfig) (*DecisionPipeline, error) {
	if len(cfg.Gates) == 0 {
		return nil, fmt.Errorf("at least one gate binding is required")
	}
	for _, g := range cfg.Gates {
		if g.Source == nil {
			return nil, fmt.Errorf("gate %s has no signal source", g.Policy.Name)
		}
	}
	if cfg.Evaluator == nil || cfg.Voter == nil || cfg.Risk == nil || cfg.Sizer == nil {
		return nil, fmt.Errorf("evaluator, voter, risk and sizer are required")
	}
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("portfolio tracker is required")
	}
	if cfg.Journal == nil {
		return nil, fmt.Errorf("decision journal is required")
	}
	if cfg.Metrics == nil {
		return nil, fmt.Errorf("metrics recorder is required")
	}
	return &DecisionPipeline{
		gates:     cfg.Gates,
		evaluator: cfg.Evaluator,
		voter:     cfg.Voter,
		mode:      cfg.Mode,
		risk:      cfg.Risk,
		sizer:     cfg.Sizer,
		tracker:   cfg.Tracker,
		publisher: cfg.Publisher,
		journal:   cfg.Journal,
		metrics:   cfg.Metrics,
		dryRun:    cfg.DryRun,
	}, nil
}

// SetLogger injects a structured logger.
func (p *DecisionPipeline) SetLogger(l *applogger.Logger) { p.l = l }

// SetSnapshotCache enables latest-decision snapshots in the given cache.
func (p *DecisionPipeline) SetSnapshotCache(c cache.Service) { p.snapshots = c }

type tickEval struct {
	ticker     string
	decision   models.EnsembleDecision
	dataErrors []string
	voteErr    error
}

// Tick evaluates all tickers once. dryRun true suppresses submission for
// this pass regardless of the pipeline default.
func (p *DecisionPipeline) Tick(ctx context.Context, tickers []string, dryRun bool) (*models.TickResult, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers to evaluate")
	}
	start := time.Now()
	asOf := start.UTC()
	dryRun = dryRun || p.dryRun

	// Phase 1: per-ticker gate evaluation and vote combination, in parallel.
	// Everything here is pure with respect to the portfolio.
	evals := make([]tickEval, len(tickers))
	var wg sync.WaitGroup
	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			ev := tickEval{ticker: ticker}
			votes, dataErrors := p.evaluateGates(ctx, ticker, asOf)
			ev.dataErrors = dataErrors
			ev.decision, ev.voteErr = p.voter.Vote(votes, p.mode)
			evals[i] = ev
		}(i, ticker)
	}
	wg.Wait()

	// Phase 2: risk, sizing and submission, serialized in request order.
	p.mu.Lock()
	p.rollDailyLocked(asOf)
	res := &models.TickResult{At: asOf, Outcomes: make([]models.TickOutcome, 0, len(tickers))}
	recs := make([]models.DecisionRecord, 0, len(tickers))
	for _, ev := range evals {
		outcome, rec := p.applyDecision(ctx, ev, asOf, dryRun)
		res.Outcomes = append(res.Outcomes, outcome)
		recs = append(recs, rec)
	}
	p.mu.Unlock()

	if err := p.journal.AppendBatch(ctx, recs); err != nil {
		p.metrics.RecordError("journal_append")
		if p.l != nil {
			p.l.Error("decision journal append failed", applogger.Int("records", len(recs)), applogger.Error(err))
		}
	}
	p.snapshotLatest(ctx, recs)

	p.metrics.RecordTickLatency(time.Since(start).Seconds())
	return res, nil
}

// evaluateGates fetches every gate's signal and votes it, fanning out one
// goroutine per gate. Votes come back in gate order; fetch and evaluation
// errors abstain that gate and surface in the returned error list.
func (p *DecisionPipeline) evaluateGates(ctx context.Context, ticker string, asOf time.Time) ([]models.GateVote, []string) {
	type item struct {
		idx  int
		vote models.GateVote
		err  error
	}
	ch := make(chan item, len(p.gates))
	var wg sync.WaitGroup
	for i, g := range p.gates {
		wg.Add(1)
		go func(i int, g GateBinding) {
			defer wg.Done()
			sig, err := g.Source.GetSignal(ctx, ticker, asOf)
			if err != nil {
				ch <- item{i, models.GateVote{GateName: g.Policy.Name, Decision: models.VoteAbstain}, fmt.Errorf("gate %s: %w", g.Policy.Name, err)}
				return
			}
			vote, err := p.evaluator.Evaluate(sig, g.Policy)
			ch <- item{i, vote, err}
		}(i, g)
	}
	go func() { wg.Wait(); close(ch) }()

	votes := make([]models.GateVote, len(p.gates))
	var dataErrors []string
	for it := range ch {
		votes[it.idx] = it.vote
		p.metrics.RecordGateVote(it.vote.GateName, string(it.vote.Decision))
		if it.err != nil {
			p.metrics.RecordError("gate_data")
			if p.l != nil {
				p.l.Warn("gate data error",
					applogger.String("ticker", ticker),
					applogger.String("gate", it.vote.GateName),
					applogger.Error(it.err),
				)
			}
			dataErrors = append(dataErrors, it.err.Error())
		}
	}
	sort.Strings(dataErrors)
	return votes, dataErrors
}

// applyDecision runs the serialized tail of one ticker's tick. Caller holds p.mu.
func (p *DecisionPipeline) applyDecision(ctx context.Context, ev tickEval, asOf time.Time, dryRun bool) (models.TickOutcome, models.DecisionRecord) {
	id := util.NewID()
	out := models.TickOutcome{
		Ticker:     ev.ticker,
		DecisionID: id,
		Action:     models.ActionHold,
		DryRun:     dryRun,
		DataErrors: ev.dataErrors,
	}

	if ev.voteErr != nil {
		// A combine failure is a configuration or programming error, not a
		// market condition. Journal it as an errored hold.
		p.metrics.RecordError("ensemble_vote")
		if p.l != nil {
			p.l.Error("ensemble vote failed", applogger.String("ticker", ev.ticker), applogger.Error(ev.voteErr))
		}
		out.Detail = ev.voteErr.Error()
		return out, p.record(id, out, asOf)
	}

	dec := ev.decision
	out.Action = dec.Action
	out.ConsensusScore = dec.ConsensusScore
	out.WeightedConfidence = dec.WeightedConfidence
	out.Unanimous = dec.Unanimous
	out.Votes = dec.Votes

	state := p.tracker.Snapshot()
	verdict, err := p.risk.Check(ctx, dec, state)
	if err != nil {
		p.metrics.RecordError("risk_check")
		if p.l != nil {
			p.l.Error("risk check error, failing closed", applogger.String("ticker", ev.ticker), applogger.Error(err))
		}
	}
	out.Approved = verdict.Approved
	out.RejectReason = verdict.Reason
	out.Detail = verdict.Detail

	if !verdict.Approved {
		if dec.Action != models.ActionHold {
			p.metrics.RecordRejection(ev.ticker, string(verdict.Reason))
		}
		p.metrics.RecordDecision(ev.ticker, string(dec.Action))
		return out, p.record(id, out, asOf)
	}

	if dec.Action == models.ActionHold {
		p.metrics.RecordDecision(ev.ticker, string(dec.Action))
		return out, p.record(id, out, asOf)
	}

	intent, err := p.sizer.Size(dec, state, ev.ticker)
	if err != nil {
		p.metrics.RecordError("sizing")
		if p.l != nil {
			p.l.Error("sizing failed", applogger.String("ticker", ev.ticker), applogger.Error(err))
		}
		out.Detail = joinDetail(out.Detail, err.Error())
		p.metrics.RecordDecision(ev.ticker, string(dec.Action))
		return out, p.record(id, out, asOf)
	}

	out.Notional = intent.Notional
	out.NoOp = intent.NoOp()
	if intent.NoOp() {
		// Cash below the order floor: reported no-op, not a rejection.
		p.metrics.RecordNoOp(ev.ticker)
		p.metrics.RecordDecision(ev.ticker, string(dec.Action))
		return out, p.record(id, out, asOf)
	}

	intent.ID = util.NewID()
	intent.DecisionID = id
	intent.EmittedAt = time.Now().UTC()

	if dryRun {
		out.SubmitStatus = ""
	} else if p.publisher != nil {
		receipt, err := p.publisher.Submit(ctx, intent)
		out.SubmitStatus = receipt.Status
		if err != nil {
			p.metrics.RecordError("submit")
			if p.l != nil {
				p.l.Error("intent submit failed",
					applogger.String("ticker", ev.ticker),
					applogger.String("intent_id", intent.ID),
					applogger.Error(err),
				)
			}
			out.Detail = joinDetail(out.Detail, receipt.Reason)
		} else if p.l != nil {
			p.l.Info("intent submitted",
				applogger.String("ticker", ev.ticker),
				applogger.String("intent_id", intent.ID),
				applogger.String("side", string(intent.Side)),
				applogger.Float64("notional", intent.Notional),
			)
		}
	}

	p.metrics.RecordDecision(ev.ticker, string(dec.Action))
	return out, p.record(id, out, asOf)
}

func (p *DecisionPipeline) record(id string, out models.TickOutcome, asOf time.Time) models.DecisionRecord {
	rec := models.DecisionRecord{
		ID:                 id,
		Ticker:             out.Ticker,
		TickAt:             asOf,
		Action:             out.Action,
		ConsensusScore:     out.ConsensusScore,
		WeightedConfidence: out.WeightedConfidence,
		Unanimous:          out.Unanimous,
		Approved:           out.Approved,
		RejectReason:       out.RejectReason,
		Detail:             out.Detail,
		Notional:           out.Notional,
		NoOp:               out.NoOp,
		CreatedAt:          time.Now().UTC(),
	}
	if out.Votes != nil {
		rec.VotesFor = out.Votes[models.VoteFor]
		rec.VotesAgainst = out.Votes[models.VoteAgainst]
		rec.VotesAbstain = out.Votes[models.VoteAbstain]
	}
	return rec
}

// snapshotLatest mirrors the newest record per ticker into the cache for
// cheap dashboard reads. Best effort; the journal stays the source of truth.
func (p *DecisionPipeline) snapshotLatest(ctx context.Context, recs []models.DecisionRecord) {
	if p.snapshots == nil || len(recs) == 0 {
		return
	}
	values := make(map[string]interface{}, len(recs))
	for _, rec := range recs {
		values[cache.GenerateKey("decisions:latest", rec.Ticker)] = rec
	}
	if err := p.snapshots.MSet(ctx, values, 0); err != nil {
		p.metrics.RecordError("snapshot_cache")
		if p.l != nil {
			p.l.Warn("latest-decision snapshot failed", applogger.Error(err))
		}
	}
}

// rollDailyLocked resets the daily P&L counters when the tick crosses a UTC
// day boundary. Caller holds p.mu.
func (p *DecisionPipeline) rollDailyLocked(asOf time.Time) {
	day := asOf.Format("2006-01-02")
	if p.lastTickDay != "" && p.lastTickDay != day {
		p.tracker.ResetDaily()
		if p.l != nil {
			p.l.Info("daily counters reset", applogger.String("day", day))
		}
	}
	p.lastTickDay = day
}

func joinDetail(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return strings.Join([]string{a, b}, "; ")
}
