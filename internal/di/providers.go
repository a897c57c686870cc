package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/YoByron/trading-sub013/internal/domain/models"
	domrepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	domsvc "github.com/YoByron/trading-sub013/internal/domain/service"
	"github.com/YoByron/trading-sub013/internal/ensemble"
	"github.com/YoByron/trading-sub013/internal/gates"
	"github.com/YoByron/trading-sub013/internal/handler/api"
	mid "github.com/YoByron/trading-sub013/internal/middleware"
	"github.com/YoByron/trading-sub013/internal/portfolio"
	internalrepo "github.com/YoByron/trading-sub013/internal/repository"
	"github.com/YoByron/trading-sub013/internal/risk"
	icache "github.com/YoByron/trading-sub013/internal/service/cache"
	"github.com/YoByron/trading-sub013/internal/service/feed"
	"github.com/YoByron/trading-sub013/internal/services/signals"
	"github.com/YoByron/trading-sub013/internal/sizing"
	"github.com/YoByron/trading-sub013/internal/usecase"
	pkgcache "github.com/YoByron/trading-sub013/pkg/cache"
	pkgch "github.com/YoByron/trading-sub013/pkg/clickhouse"
	"github.com/YoByron/trading-sub013/pkg/config"
	xhttp "github.com/YoByron/trading-sub013/pkg/http"
	pkgkafka "github.com/YoByron/trading-sub013/pkg/kafka"
	applogger "github.com/YoByron/trading-sub013/pkg/logger"
	"github.com/YoByron/trading-sub013/pkg/metrics"
	"github.com/YoByron/trading-sub013/pkg/queue"
	"github.com/YoByron/trading-sub013/pkg/server"
)

// ProvideLogger creates the process logger. Production gets structured
// JSON; everything else gets a readable console at debug level.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: "debug", Format: "console", Output: "stdout"}
	if cfg.Environment == "production" {
		lc.Level = "info"
		lc.Format = "json"
	}
	l, err := applogger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// schema the stores expect.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	db := cfg.ClickHouse.Database
	candles := func(tf string) string {
		return fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s.candles_%s (bucket DateTime, symbol String, open Float64, high Float64, low Float64, close Float64, vol Float64) ENGINE=MergeTree ORDER BY (symbol, bucket)",
			db, tf,
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		candles("1m"),
		candles("5m"),
		candles("1h"),
		candles("1d"),
		fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s.decisions (id String, ticker String, tick_at DateTime, action String, consensus_score Float64, weighted_confidence Float64, unanimous Bool, votes_for Int32, votes_against Int32, votes_abstain Int32, approved Bool, reject_reason String, detail String, notional Float64, no_op Bool, created_at DateTime) ENGINE=MergeTree ORDER BY (ticker, tick_at)",
			db,
		),
		fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s.validation_reports (id String, ticker String, strategy String, timeframe String, from_at DateTime, to_at DateTime, created_at DateTime, verdict String, mean_oos_sharpe Float64, overfitting_score Float64, consistency_pct Float64, folds Int32, report String) ENGINE=MergeTree ORDER BY (ticker, strategy, created_at)",
			db,
		),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideRedisCache connects the shared Redis cache.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr %q: %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}

	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService exposes the Redis cache behind the service interface.
func ProvideCacheService(rc *pkgcache.RedisCache) pkgcache.Service { return rc }

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the fills consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideHistoryStore creates the ClickHouse candle reader.
func ProvideHistoryStore(chClient *pkgch.Client, l *applogger.Logger) domrepo.HistoryStore {
	store := internalrepo.NewCHHistoryStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideDecisionJournal creates the ClickHouse decision journal.
func ProvideDecisionJournal(chClient *pkgch.Client, cfg *config.Config) domrepo.DecisionJournal {
	return internalrepo.NewCHDecisionJournal(chClient.DB(), cfg.ClickHouse.Database+".decisions")
}

// ProvideReportStore creates the ClickHouse validation report store.
func ProvideReportStore(chClient *pkgch.Client, cfg *config.Config) domrepo.ReportStore {
	return internalrepo.NewCHReportStore(chClient.DB(), cfg.ClickHouse.Database+".validation_reports")
}

// ProvideHaltStore persists the halt flag in Redis.
func ProvideHaltStore(svc pkgcache.Service, cfg *config.Config) domrepo.HaltStore {
	return internalrepo.NewRedisHaltStore(svc, cfg.Halt.Key)
}

// ProvideHaltSwitch creates the emergency stop controller.
func ProvideHaltSwitch(store domrepo.HaltStore) *risk.HaltSwitch {
	return risk.NewHaltSwitch(store)
}

// ProvideRiskLimits maps config onto the domain limits shared by the risk
// manager and the sizer.
func ProvideRiskLimits(cfg *config.Config) models.RiskLimits {
	return models.RiskLimits{
		MaxPositionPct:         cfg.Risk.MaxPositionPct,
		MaxDailyLossPct:        cfg.Risk.MaxDailyLossPct,
		MaxDrawdownPct:         cfg.Risk.MaxDrawdownPct,
		MaxConcurrentPositions: cfg.Risk.MaxOpenPositions,
		MaxConsecutiveLosses:   cfg.Risk.MaxLossStreak,
	}
}

// ProvideRiskManager creates the pre-trade circuit breaker.
func ProvideRiskManager(limits models.RiskLimits, halt *risk.HaltSwitch) (domsvc.RiskManager, error) {
	m, err := risk.NewManager(limits, halt)
	if err != nil {
		return nil, fmt.Errorf("risk manager: %w", err)
	}
	return m, nil
}

// ProvideSizer creates the position sizer.
func ProvideSizer(limits models.RiskLimits, cfg *config.Config) (domsvc.PositionSizer, error) {
	s, err := sizing.NewSizer(limits, models.SizingPolicy{MinOrderNotional: cfg.Sizing.MinOrderNotional})
	if err != nil {
		return nil, fmt.Errorf("sizer: %w", err)
	}
	return s, nil
}

// ProvideTracker creates the portfolio tracker seeded with starting equity.
func ProvideTracker(cfg *config.Config) (*portfolio.Tracker, error) {
	t, err := portfolio.NewTracker(cfg.Risk.InitialEquity)
	if err != nil {
		return nil, fmt.Errorf("portfolio tracker: %w", err)
	}
	return t, nil
}

// ProvideEvaluator creates the gate evaluator.
func ProvideEvaluator(cfg *config.Config) domsvc.GateEvaluator {
	return gates.NewEvaluator(models.Direction(cfg.Pipeline.Direction))
}

// ProvideVoter creates the ensemble voter over the configured gates.
func ProvideVoter(cfg *config.Config) (domsvc.EnsembleVoter, error) {
	policies := make([]models.GatePolicy, len(cfg.Gates))
	for i, g := range cfg.Gates {
		policies[i] = models.GatePolicy{
			Name:            g.Name,
			Source:          g.Source,
			ConfidenceFloor: g.ConfidenceFloor,
			Weight:          g.Weight,
		}
	}
	v, err := ensemble.NewVoter(models.VotingPolicy{
		Mode:      models.VoteMode(cfg.Ensemble.Mode),
		Threshold: cfg.Ensemble.Threshold,
		Direction: models.Direction(cfg.Pipeline.Direction),
	}, policies)
	if err != nil {
		return nil, fmt.Errorf("voter: %w", err)
	}
	return v, nil
}

// ProvideSignalBook creates the shared latest-signal book fed by the stream.
func ProvideSignalBook() *usecase.SignalBook {
	return usecase.NewSignalBook()
}

// ProvideGateBindings resolves every configured gate to a signal source.
// Source names route by prefix: local.* compute from stored candles,
// stream.* read the live book, anything else is an HTTP signal endpoint.
func ProvideGateBindings(
	cfg *config.Config,
	history domrepo.HistoryStore,
	book *usecase.SignalBook,
	rc *pkgcache.RedisCache,
) ([]usecase.GateBinding, error) {
	tf := domrepo.NormalizeTimeframe(cfg.Pipeline.Timeframe)
	bindings := make([]usecase.GateBinding, 0, len(cfg.Gates))

	for _, g := range cfg.Gates {
		policy := models.GatePolicy{
			Name:            g.Name,
			Source:          g.Source,
			ConfidenceFloor: g.ConfidenceFloor,
			Weight:          g.Weight,
		}

		var src domrepo.SignalSource
		switch {
		case g.Source == "local.momentum":
			src = signals.NewMomentumSource(g.Name, history, tf, 0)
		case strings.HasPrefix(g.Source, "local."):
			return nil, fmt.Errorf("gate %s: unknown local source %q", g.Name, g.Source)
		case strings.HasPrefix(g.Source, "stream."):
			src = usecase.NewBookSource(g.Name, book, strings.TrimPrefix(g.Source, "stream."), 0)
		default:
			if cfg.Signals.ServiceURL == "" {
				return nil, fmt.Errorf("gate %s: source %q needs signals.service_url", g.Name, g.Source)
			}
			http := signals.NewHTTPSignalSource(cfg, g.Name, g.Source)
			if cfg.Signals.CacheTTL > 0 {
				src = signals.NewCachedSource(http, icache.NewRedisBytesCache(rc.Client()), cfg.Signals.CacheTTL)
			} else {
				src = http
			}
		}
		bindings = append(bindings, usecase.GateBinding{Policy: policy, Source: src})
	}
	return bindings, nil
}

// ProvideIntentPublisher hands approved intents to Kafka.
func ProvideIntentPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.IntentPublisher {
	return internalrepo.NewKafkaIntentPublisher(producer, cfg.Kafka.IntentsTopic)
}

// ProvideDecisionPipeline assembles the per-tick decision flow.
func ProvideDecisionPipeline(
	cfg *config.Config,
	bindings []usecase.GateBinding,
	evaluator domsvc.GateEvaluator,
	voter domsvc.EnsembleVoter,
	riskMgr domsvc.RiskManager,
	sizer domsvc.PositionSizer,
	tracker *portfolio.Tracker,
	publisher domrepo.IntentPublisher,
	journal domrepo.DecisionJournal,
	m domrepo.Metrics,
	svc pkgcache.Service,
	l *applogger.Logger,
) (*usecase.DecisionPipeline, error) {
	p, err := usecase.NewDecisionPipeline(usecase.PipelineConfig{
		Gates:     bindings,
		Evaluator: evaluator,
		Voter:     voter,
		Mode:      models.VoteMode(cfg.Ensemble.Mode),
		Risk:      riskMgr,
		Sizer:     sizer,
		Tracker:   tracker,
		Publisher: publisher,
		Journal:   journal,
		Metrics:   m,
		DryRun:    cfg.Pipeline.DryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("decision pipeline: %w", err)
	}
	p.SetLogger(l)
	p.SetSnapshotCache(svc)
	return p, nil
}

// ProvideSignalStream creates the websocket feed, or nil when disabled.
func ProvideSignalStream(cfg *config.Config) domrepo.SignalStream {
	if !cfg.Feed.Enabled {
		return nil
	}
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideSignalCollector wires the stream through the intake middleware
// into the book. Nil when the feed is disabled.
func ProvideSignalCollector(
	stream domrepo.SignalStream,
	book *usecase.SignalBook,
	m domrepo.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.SignalCollector {
	if stream == nil {
		return nil
	}
	intake := mid.NewSignalIntake(book, m,
		mid.WithMaxRPS(20),
		mid.WithBufferSize(1000),
	)
	intake.SetLogger(l)
	return usecase.NewSignalCollector(stream, book, m, intake, cfg.Pipeline.Tickers)
}

// ProvideFillsHandler consumes execution fills into the tracker.
func ProvideFillsHandler(cfg *config.Config, tracker *portfolio.Tracker, m domrepo.Metrics, l *applogger.Logger) *usecase.KafkaFillsHandler {
	h := usecase.NewKafkaFillsHandler(cfg.Kafka.FillsTopic, tracker, m)
	h.SetLogger(l)
	return h
}

// ProvideJobQueue creates the Redis job queue for async validation runs.
// One queue both publishes and drains, so a queued run survives a restart
// of the instance that accepted it.
func ProvideJobQueue(l *applogger.Logger, rc *pkgcache.RedisCache) *queue.RedisQueue {
	return queue.NewRedisQueue(l,
		&queue.QueueConfig{Workers: 2, QueueSize: 64, RetryLimit: 3, RetryDelay: 30 * time.Second},
		rc.Client(),
		queue.ModeProducerConsumer,
	)
}

// ProvideValidationRunner assembles the walk-forward run coordinator and
// registers its job on the queue.
func ProvideValidationRunner(
	history domrepo.HistoryStore,
	reports domrepo.ReportStore,
	m domrepo.Metrics,
	cfg *config.Config,
	svc pkgcache.Service,
	jobs *queue.RedisQueue,
	l *applogger.Logger,
) (*usecase.ValidationRunner, error) {
	runner, err := usecase.NewValidationRunner(history, reports, m, cfg)
	if err != nil {
		return nil, err
	}
	runner.SetLogger(l)
	runner.SetLockCache(svc)
	runner.SetQueue(jobs)
	jobs.RegisterJob(usecase.NewValidationRunJob(runner))
	return runner, nil
}

// ProvideOpsUseCase assembles the read and control surface.
func ProvideOpsUseCase(
	journal domrepo.DecisionJournal,
	tracker *portfolio.Tracker,
	halt *risk.HaltSwitch,
	cfg *config.Config,
	svc pkgcache.Service,
) *usecase.OpsUseCase {
	ops := usecase.NewOpsUseCase(journal, tracker, halt, cfg.Pipeline.Tickers)
	ops.SetSnapshotCache(svc)
	return ops
}

// ProvideRouter composes the HTTP handlers.
func ProvideRouter(
	l *applogger.Logger,
	pipeline *usecase.DecisionPipeline,
	ops *usecase.OpsUseCase,
	runner *usecase.ValidationRunner,
) xhttp.Handler {
	return api.NewRouter(
		api.NewPipelineEchoHandler(l, pipeline, ops),
		api.NewValidationEchoHandler(l, runner),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	pipeline *usecase.DecisionPipeline,
	collector *usecase.SignalCollector,
	consumer *pkgkafka.Consumer,
	fills *usecase.KafkaFillsHandler,
	jobs *queue.RedisQueue,
	journal domrepo.DecisionJournal,
	reports domrepo.ReportStore,
	chClient *pkgch.Client,
	rc *pkgcache.RedisCache,
	producer *pkgkafka.Producer,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TracingHook()))
	}
	app := server.New(cfg, l, pipeline, collector, consumer, fills, jobs, journal, reports, chClient, rc, producer)
	app.SetHTTPHandler(handler)
	return app
}
