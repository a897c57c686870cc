package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "github.com/YoByron/trading-sub013/internal/domain/repository"
	"github.com/YoByron/trading-sub013/internal/usecase"
	pkgcache "github.com/YoByron/trading-sub013/pkg/cache"
	pkgch "github.com/YoByron/trading-sub013/pkg/clickhouse"
	"github.com/YoByron/trading-sub013/pkg/config"
	xhttp "github.com/YoByron/trading-sub013/pkg/http"
	pkgkafka "github.com/YoByron/trading-sub013/pkg/kafka"
	applogger "github.com/YoByron/trading-sub013/pkg/logger"
	"github.com/YoByron/trading-sub013/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	l         *applogger.Logger
	pipeline  *usecase.DecisionPipeline
	collector *usecase.SignalCollector
	consumer  *pkgkafka.Consumer
	fills     *usecase.KafkaFillsHandler
	jobs      *queue.RedisQueue
	journal   domrepo.DecisionJournal
	reports   domrepo.ReportStore
	chClient  *pkgch.Client
	redis     *pkgcache.RedisCache
	producer  *pkgkafka.Producer

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
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
	redis *pkgcache.RedisCache,
	producer *pkgkafka.Producer,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		pipeline:  pipeline,
		collector: collector,
		consumer:  consumer,
		fills:     fills,
		jobs:      jobs,
		journal:   journal,
		reports:   reports,
		chClient:  chClient,
		redis:     redis,
		producer:  producer,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.l

	// Prove storage is reachable before any loop starts.
	initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
	defer initCancel()
	if err := a.journal.Init(initCtx); err != nil {
		l.Error("decision journal init", applogger.Error(err))
		return err
	}
	if err := a.reports.Init(initCtx); err != nil {
		l.Error("report store init", applogger.Error(err))
		return err
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(l, 2*time.Second),
	)

	// Start signal collector when the feed is enabled
	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("signal collector start error", applogger.Error(err))
			return err
		}
		l.Info("signal collector started", applogger.Strings("tickers", a.cfg.Pipeline.Tickers))
	}

	// Start fills consumer if configured
	if a.consumer != nil && a.fills != nil {
		a.consumer.RegisterHandler(a.fills)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.fills.Topic()))
	}

	// Start job queue workers for async validation runs
	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
			return err
		}
		l.Info("job queue started")
	}

	// Start the decision tick loop
	if a.cfg.Pipeline.TickInterval > 0 && len(a.cfg.Pipeline.Tickers) > 0 {
		go a.tickLoop(ctx)
		l.Info("decision loop started",
			applogger.Strings("tickers", a.cfg.Pipeline.Tickers),
			applogger.Duration("interval", a.cfg.Pipeline.TickInterval),
			applogger.Bool("dry_run", a.cfg.Pipeline.DryRun),
		)
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// tickLoop runs one evaluation pass per interval until the context ends.
// The first pass runs right away rather than waiting a full interval.
func (a *App) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Pipeline.TickInterval)
	defer ticker.Stop()

	for {
		a.runTick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) runTick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, a.cfg.Pipeline.TickInterval)
	defer cancel()

	res, err := a.pipeline.Tick(tickCtx, a.cfg.Pipeline.Tickers, a.cfg.Pipeline.DryRun)
	if err != nil {
		a.l.Error("decision tick error", applogger.Error(err))
		return
	}
	a.l.Info("decision tick complete", applogger.Int("outcomes", len(res.Outcomes)))
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	l := a.l

	// Stop collector (intake + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(context.Background()); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Stop job queue workers
	if a.jobs != nil {
		if err := a.jobs.Stop(shutdownCtx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			l.Warn("journal close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}

	log.Printf("shutdown complete")
	return nil
}
