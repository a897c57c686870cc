package main

import (
	"flag"
	"log"
	"os"

	"github.com/YoByron/trading-sub013/internal/di"
	"github.com/YoByron/trading-sub013/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s tickers=%v ensemble=%s", cfg.Environment, cfg.Pipeline.Tickers, cfg.Ensemble.Mode)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: connected and schema ready - db: %s\n", cfg.ClickHouse.Database)
	log.Printf("kafka: connected brokers=%v intents=%s fills=%s", cfg.Kafka.Brokers, cfg.Kafka.IntentsTopic, cfg.Kafka.FillsTopic)

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
