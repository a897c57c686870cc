package validation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	applogger "github.com/YoByron/trading-sub013/pkg/logger"
	"github.com/YoByron/trading-sub013/pkg/util"
)

// Config shapes one walk-forward run. Window sizes are in periods of the
// run's timeframe.
type Config struct {
	Windows    WindowConfig
	Regime     RegimeConfig
	Thresholds Thresholds
	Workers    int // 0 means GOMAXPROCS-sized pool
}

func DefaultConfig() Config {
	return Config{
		Windows:    WindowConfig{TrainWindow: 252, TestWindow: 63, Step: 21},
		Regime:     DefaultRegimeConfig(),
		Thresholds: DefaultThresholds(),
	}
}

func (c Config) Validate() error {
	if err := c.Windows.Validate(); err != nil {
		return err
	}
	if err := c.Regime.Validate(); err != nil {
		return err
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// Validator runs rolling-origin walk-forward evaluation over a candle
// series and judges the pooled out-of-sample results.
type Validator struct {
	cfg Config
	l   *applogger.Logger
}

func New(cfg Config) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validator config: %w", err)
	}
	return &Validator{cfg: cfg}, nil
}

// SetLogger injects a structured logger.
func (v *Validator) SetLogger(l *applogger.Logger) { v.l = l }

type foldOutcome struct {
	fold    models.ValidationFold
	oosRets []float64
	err     error
}

// Run slides the train/test frame across the series, evaluates each fold on
// its own strategy instance, and aggregates the verdict. A series too short
// for a single fold comes back as an indeterminate report, not an error.
// Cancellation between folds drops all partial results and returns the
// context's error.
func (v *Validator) Run(ctx context.Context, factory Factory, ticker, tf string, candles []models.Candle) (*models.ValidationReport, error) {
	if factory == nil {
		return nil, fmt.Errorf("strategy factory is required")
	}
	if err := ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("candle series: %w", err)
	}

	started := time.Now()
	report := &models.ValidationReport{
		ID:        util.NewID(),
		Strategy:  factory().Name(),
		Ticker:    ticker,
		Timeframe: tf,
		From:      candles[0].Bucket,
		To:        candles[len(candles)-1].Bucket,
		CreatedAt: started.UTC(),
	}

	folds, err := BuildFolds(len(candles), v.cfg.Windows)
	if errors.Is(err, ErrInsufficientData) {
		// Too little history is an answer, not a failure.
		report.Verdict = models.VerdictIndeterminate
		report.Deficits = []string{err.Error()}
		if v.l != nil {
			v.l.Warn("walk-forward run indeterminate",
				applogger.String("report_id", report.ID),
				applogger.String("ticker", ticker),
				applogger.Int("periods", len(candles)),
				applogger.Error(err),
			)
		}
		return report, nil
	}
	if err != nil {
		return nil, err
	}

	frame := NewFrame(candles)
	ppy := PeriodsPerYear(tf)

	workers := v.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(folds) {
		workers = len(folds)
	}
	if v.l != nil {
		v.l.Info("walk-forward run started",
			applogger.String("report_id", report.ID),
			applogger.String("strategy", report.Strategy),
			applogger.String("ticker", ticker),
			applogger.String("tf", tf),
			applogger.Int("folds", len(folds)),
			applogger.Int("workers", workers),
		)
	}

	jobs := make(chan models.ValidationFold)
	results := make(chan foldOutcome, len(folds))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fold := range jobs {
				results <- v.runFold(factory(), frame, fold, ppy)
			}
		}()
	}

feed:
	for _, fold := range folds {
		select {
		case jobs <- fold:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	go func() { wg.Wait(); close(results) }()

	done := make([]models.ValidationFold, 0, len(folds))
	oosByFold := make(map[int][]float64, len(folds))
	for out := range results {
		if out.err != nil {
			// Data errors skip the fold; they never fabricate metrics.
			if v.l != nil {
				v.l.Warn("walk-forward fold skipped",
					applogger.String("report_id", report.ID),
					applogger.Int("fold", out.fold.Index),
					applogger.Error(out.err),
				)
			}
			continue
		}
		done = append(done, out.fold)
		oosByFold[out.fold.Index] = out.oosRets
	}
	if err := ctx.Err(); err != nil {
		if v.l != nil {
			v.l.Warn("walk-forward run cancelled",
				applogger.String("report_id", report.ID),
				applogger.Int("folds_completed", len(done)),
			)
		}
		return nil, err
	}

	sort.Slice(done, func(i, j int) bool { return done[i].Index < done[j].Index })
	report.Folds = done

	pooled := make([]float64, 0, len(done)*v.cfg.Windows.TestWindow)
	var sumOOS, sumIS, sumDD float64
	positive, trades := 0, 0
	for _, f := range done {
		sumOOS += f.OutOfSample.Sharpe
		sumIS += f.InSample.Sharpe
		sumDD += f.OutOfSample.MaxDrawdown
		if f.OutOfSample.Sharpe > 0 {
			positive++
		}
		trades += f.OutOfSample.Trades
		pooled = append(pooled, oosByFold[f.Index]...)
	}
	if n := float64(len(done)); n > 0 {
		report.MeanOOSSharpe = sumOOS / n
		report.OverfittingScore = OverfitScore(sumIS/n, report.MeanOOSSharpe)
		report.ConsistencyPct = float64(positive) / n
		report.MeanOOSMaxDrawdown = sumDD / n
		report.TotalTrades = trades
		report.SharpeCI = SharpeConfidence(report.MeanOOSSharpe, pooled, ppy)
		report.RegimeBreakdown = regimeBreakdown(done)
	}

	report.Verdict, report.Passed, report.Deficits = v.cfg.Thresholds.Judge(Aggregate{
		Folds:         len(done),
		Trades:        trades,
		MeanOOSSharpe: report.MeanOOSSharpe,
		Overfitting:   report.OverfittingScore,
		Consistency:   report.ConsistencyPct,
		MeanOOSMaxDD:  report.MeanOOSMaxDrawdown,
	})

	if v.l != nil {
		v.l.Info("walk-forward run finished",
			applogger.String("report_id", report.ID),
			applogger.String("verdict", string(report.Verdict)),
			applogger.Int("folds", len(done)),
			applogger.Int("skipped", len(folds)-len(done)),
			applogger.Any("mean_oos_sharpe", report.MeanOOSSharpe),
			applogger.Duration("duration_ms", time.Since(started)),
		)
	}
	return report, nil
}

// runFold fits and scores one fold on a fresh strategy instance. The train
// and test frames are disjoint views; the strategy never sees data outside
// the frame handed to it.
func (v *Validator) runFold(s Strategy, frame Frame, fold models.ValidationFold, ppy float64) foldOutcome {
	train, err := frame.Slice(fold.Train)
	if err != nil {
		return foldOutcome{fold: fold, err: err}
	}
	test, err := frame.Slice(fold.Test)
	if err != nil {
		return foldOutcome{fold: fold, err: err}
	}

	if err := s.Fit(train); err != nil {
		return foldOutcome{fold: fold, err: fmt.Errorf("fit: %w", err)}
	}
	isRets, isTrades, err := s.Evaluate(train)
	if err != nil {
		return foldOutcome{fold: fold, err: fmt.Errorf("in-sample evaluate: %w", err)}
	}
	oosRets, oosTrades, err := s.Evaluate(test)
	if err != nil {
		return foldOutcome{fold: fold, err: fmt.Errorf("out-of-sample evaluate: %w", err)}
	}

	fold.TrainFrom, fold.TrainTo = train.From(), train.To()
	fold.TestFrom, fold.TestTo = test.From(), test.To()
	fold.InSample = ComputeStats(isRets, isTrades, ppy)
	fold.OutOfSample = ComputeStats(oosRets, oosTrades, ppy)
	fold.Regime = ClassifyRegime(test, v.cfg.Regime, ppy)
	return foldOutcome{fold: fold, oosRets: oosRets}
}

func regimeBreakdown(folds []models.ValidationFold) map[models.RegimeLabel]models.RegimeSlice {
	if len(folds) == 0 {
		return nil
	}
	type acc struct {
		n               int
		sharpe, ret, dd float64
	}
	accs := make(map[models.RegimeLabel]*acc)
	for _, f := range folds {
		a := accs[f.Regime]
		if a == nil {
			a = &acc{}
			accs[f.Regime] = a
		}
		a.n++
		a.sharpe += f.OutOfSample.Sharpe
		a.ret += f.OutOfSample.Return
		a.dd += f.OutOfSample.MaxDrawdown
	}
	out := make(map[models.RegimeLabel]models.RegimeSlice, len(accs))
	for label, a := range accs {
		n := float64(a.n)
		out[label] = models.RegimeSlice{
			Folds:           a.n,
			MeanOOSSharpe:   a.sharpe / n,
			MeanOOSReturn:   a.ret / n,
			MeanMaxDrawdown: a.dd / n,
		}
	}
	return out
}
