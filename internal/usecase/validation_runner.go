package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domrepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	"github.com/YoByron/trading-sub013/internal/validation"
	"github.com/YoByron/trading-sub013/pkg/cache"
	"github.com/YoByron/trading-sub013/pkg/config"
	xhttp "github.com/YoByron/trading-sub013/pkg/http"
	applogger "github.com/YoByron/trading-sub013/pkg/logger"
	"github.com/YoByron/trading-sub013/pkg/queue"
	"github.com/YoByron/trading-sub013/pkg/util"
)

// runLockTTL bounds how long a crashed run can keep a ticker locked.
const runLockTTL = 10 * time.Minute

const validationRunJobType = "validation.run"

// ValidationRunner coordinates a walk-forward run end to end: it loads the
// candle history, holds a per-ticker lock so overlapping runs do not
// duplicate work, executes the validator, and persists the report.
type ValidationRunner struct {
	history domrepo.HistoryStore
	reports domrepo.ReportStore
	locks   cache.Service
	metrics domrepo.Metrics
	base    validation.Config
	jobs    queue.QueueService
	l       *applogger.Logger
}

// NewValidationRunner builds a runner from the configured validation
// defaults. The base config is checked once here so a bad deployment
// fails at startup rather than on the first request.
func NewValidationRunner(
	history domrepo.HistoryStore,
	reports domrepo.ReportStore,
	metrics domrepo.Metrics,
	cfg *config.Config,
) (*ValidationRunner, error) {
	base := validation.Config{
		Windows: validation.WindowConfig{
			TrainWindow: cfg.Validation.TrainWindow,
			TestWindow:  cfg.Validation.TestWindow,
			Step:        cfg.Validation.Step,
		},
		Regime: validation.RegimeConfig{
			HighVol:  cfg.Validation.Regime.HighVol,
			TrendMin: cfg.Validation.Regime.TrendMin,
		},
		Thresholds: validation.Thresholds{
			PassMinSharpe:      cfg.Validation.Thresholds.PassMinSharpe,
			PassMaxOverfit:     cfg.Validation.Thresholds.PassMaxOverfit,
			PassMinConsistency: cfg.Validation.Thresholds.PassMinConsistency,
			PassMaxDrawdown:    cfg.Validation.Thresholds.PassMaxDrawdown,
			FailMaxSharpe:      cfg.Validation.Thresholds.FailMaxSharpe,
			FailMinOverfit:     cfg.Validation.Thresholds.FailMinOverfit,
			FailMaxConsistency: cfg.Validation.Thresholds.FailMaxConsistency,
			FailMinDrawdown:    cfg.Validation.Thresholds.FailMinDrawdown,
			MinFolds:           cfg.Validation.MinFolds,
			MinTrades:          cfg.Validation.MinTrades,
		},
		Workers: cfg.Validation.Workers,
	}
	if _, err := validation.New(base); err != nil {
		return nil, fmt.Errorf("validation config: %w", err)
	}
	return &ValidationRunner{
		history: history,
		reports: reports,
		metrics: metrics,
		base:    base,
	}, nil
}

func (r *ValidationRunner) SetLogger(l *applogger.Logger) {
	if l != nil {
		r.l = l
	}
}

// SetLockCache enables the per-ticker run lock. Without it runs are
// unguarded, which is fine for single-process use such as the CLI.
func (r *ValidationRunner) SetLockCache(c cache.Service) { r.locks = c }

// SetQueue enables async runs via the job queue.
func (r *ValidationRunner) SetQueue(q queue.QueueService) { r.jobs = q }

// Run executes one walk-forward validation synchronously and persists the
// resulting report. Window fields in the request override the configured
// defaults; zero values keep them.
func (r *ValidationRunner) Run(ctx context.Context, req models.ValidationRunRequest) (*models.ValidationReport, error) {
	tf := domrepo.NormalizeTimeframe(req.TF)

	from, ok := util.ParseTime(req.From)
	if !ok {
		return nil, xhttp.BadRequestError("from must be RFC3339 or unix seconds")
	}
	to, ok := util.ParseTime(req.To)
	if !ok {
		return nil, xhttp.BadRequestError("to must be RFC3339 or unix seconds")
	}
	if !from.Before(to) {
		return nil, xhttp.BadRequestError("from must be before to")
	}
	from, to = util.AlignFromTo(from, to, string(tf))

	cfg := r.base
	if req.TrainWindow > 0 {
		cfg.Windows.TrainWindow = req.TrainWindow
	}
	if req.TestWindow > 0 {
		cfg.Windows.TestWindow = req.TestWindow
	}
	if req.Step > 0 {
		cfg.Windows.Step = req.Step
	}

	factory, err := validation.NewFactory(req.Strategy, string(tf))
	if err != nil {
		return nil, xhttp.BadRequestError(err.Error())
	}
	v, err := validation.New(cfg)
	if err != nil {
		return nil, xhttp.BadRequestError(err.Error())
	}
	v.SetLogger(r.l)

	if r.locks != nil {
		lockKey := cache.GenerateKey("validation:lock", req.Ticker)
		got, err := r.locks.TryLock(ctx, lockKey, runLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !got {
			return nil, xhttp.ConflictError(fmt.Sprintf("validation run already in progress for %s", req.Ticker))
		}
		defer func() {
			// Unlock on a fresh context so a cancelled request still releases.
			if uerr := r.locks.Unlock(context.Background(), lockKey); uerr != nil && r.l != nil {
				r.l.Warn("release run lock", applogger.String("ticker", req.Ticker), applogger.Error(uerr))
			}
		}()
	}

	candles, err := r.history.GetCandles(ctx, req.Ticker, from, to, tf)
	if err != nil {
		r.metrics.RecordError("history_read")
		return nil, fmt.Errorf("load candles: %w", err)
	}
	if len(candles) == 0 {
		return nil, xhttp.NotFoundErrorf("no %s candles for %s in requested range", tf, req.Ticker)
	}

	report, err := v.Run(ctx, factory, req.Ticker, string(tf), candles)
	if err != nil {
		r.metrics.RecordError("validation_run")
		return nil, fmt.Errorf("walk-forward run: %w", err)
	}

	if err := r.reports.Save(ctx, *report); err != nil {
		// Reports are immutable artifacts keyed by fresh IDs, so the
		// caller can simply rerun; nothing partial is left behind.
		r.metrics.RecordError("report_save")
		return nil, fmt.Errorf("save report: %w", err)
	}
	r.metrics.RecordValidationRun(string(report.Verdict))

	if r.l != nil {
		r.l.Info("validation report saved",
			applogger.String("report_id", report.ID),
			applogger.String("ticker", report.Ticker),
			applogger.String("strategy", report.Strategy),
			applogger.String("verdict", string(report.Verdict)),
			applogger.Int("folds", len(report.Folds)),
		)
	}
	return report, nil
}

// Enqueue hands the request to the job queue for a background run.
func (r *ValidationRunner) Enqueue(ctx context.Context, req models.ValidationRunRequest) error {
	if r.jobs == nil {
		return xhttp.UnavailableError("async validation runs are not configured")
	}
	if err := r.jobs.PublishMessage(ctx, validationRunJobType, req); err != nil {
		r.metrics.RecordError("validation_enqueue")
		return fmt.Errorf("enqueue validation run: %w", err)
	}
	return nil
}

// GetReport loads one persisted report by id.
func (r *ValidationRunner) GetReport(ctx context.Context, id string) (*models.ValidationReport, error) {
	if id == "" {
		return nil, xhttp.BadRequestError("report id required")
	}
	report, err := r.reports.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, xhttp.NotFoundErrorf("report %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// LatestReport loads the most recent report for a ticker and strategy.
func (r *ValidationRunner) LatestReport(ctx context.Context, ticker, strategy string) (*models.ValidationReport, error) {
	if ticker == "" {
		return nil, xhttp.BadRequestError("ticker required")
	}
	if strategy == "" {
		strategy = "momentum"
	}
	report, err := r.reports.Latest(ctx, ticker, strategy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, xhttp.NotFoundErrorf("no reports for %s/%s", ticker, strategy)
	}
	if err != nil {
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return &report, nil
}

// ValidationRunJob adapts the runner to the queue worker loop.
type ValidationRunJob struct {
	runner *ValidationRunner
}

func NewValidationRunJob(r *ValidationRunner) *ValidationRunJob {
	return &ValidationRunJob{runner: r}
}

func (j *ValidationRunJob) Name() string { return "validation_run" }

func (j *ValidationRunJob) Type() string { return validationRunJobType }

// Handle runs a queued validation. Errors bubble up so the queue retry
// policy applies; a rerun produces a new report and overwrites nothing.
func (j *ValidationRunJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.ValidationRunRequest](payload)
	if err != nil {
		return fmt.Errorf("decode validation run payload: %w", err)
	}
	_, err = j.runner.Run(ctx, *req)
	return err
}

var _ queue.Job = (*ValidationRunJob)(nil)
