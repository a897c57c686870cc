package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YoByron/trading-sub013/internal/di"
	"github.com/YoByron/trading-sub013/internal/domain/models"
	"github.com/YoByron/trading-sub013/internal/usecase"
	"github.com/YoByron/trading-sub013/pkg/config"
)

// Offline walk-forward validation. Runs one strategy over stored history,
// persists the report, and prints it to stdout. Exit code 0 means pass,
// 2 marginal, 3 indeterminate, 1 fail or error.
func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	ticker := flag.String("ticker", "", "ticker to validate (required)")
	strategy := flag.String("strategy", "momentum", "strategy: momentum or gated_ensemble")
	tf := flag.String("tf", "", "candle timeframe (defaults to pipeline.timeframe)")
	from := flag.String("from", "", "history start, RFC3339 or unix seconds (required)")
	to := flag.String("to", "", "history end, RFC3339 or unix seconds (default now)")
	train := flag.Int("train", 0, "train window override, periods")
	test := flag.Int("test", 0, "test window override, periods")
	step := flag.Int("step", 0, "fold step override, periods")
	flag.Parse()

	if *ticker == "" || *from == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *tf == "" {
		*tf = cfg.Pipeline.Timeframe
	}
	if *to == "" {
		*to = time.Now().UTC().Format(time.RFC3339)
	}

	l, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	chClient, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		log.Fatalf("clickhouse init failed: %v", err)
	}
	defer chClient.Close()

	history := di.ProvideHistoryStore(chClient, l)
	reports := di.ProvideReportStore(chClient, cfg)
	metrics := di.ProvideMetrics()

	runner, err := usecase.NewValidationRunner(history, reports, metrics, cfg)
	if err != nil {
		log.Fatalf("validation runner init failed: %v", err)
	}
	runner.SetLogger(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx, models.ValidationRunRequest{
		Ticker:      *ticker,
		Strategy:    *strategy,
		TF:          *tf,
		From:        *from,
		To:          *to,
		TrainWindow: *train,
		TestWindow:  *test,
		Step:        *step,
	})
	if err != nil {
		log.Fatalf("validation run failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("encode report: %v", err)
	}

	switch report.Verdict {
	case models.VerdictPass:
		os.Exit(0)
	case models.VerdictMarginal:
		os.Exit(2)
	case models.VerdictIndeterminate:
		os.Exit(3)
	default:
		os.Exit(1)
	}
}
