package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// GateConfig configures one signal gate in the ensemble.
type GateConfig struct {
	Name            string  `yaml:"name"`
	Source          string  `yaml:"source"`
	ConfidenceFloor float64 `yaml:"confidence_floor" default:"0.2"`
	Weight          float64 `yaml:"weight" default:"1.0"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Pipeline struct {
		Tickers      []string      `yaml:"tickers"`
		Timeframe    string        `yaml:"timeframe" default:"1d"`
		TickInterval time.Duration `yaml:"tick_interval" default:"24h"`
		Direction    string        `yaml:"direction" default:"long"`
		DryRun       bool          `yaml:"dry_run"`
	} `yaml:"pipeline"`
	Gates    []GateConfig `yaml:"gates"`
	Ensemble struct {
		Mode      string  `yaml:"mode" default:"weighted"`
		Threshold float64 `yaml:"threshold" default:"0.5"`
	} `yaml:"ensemble"`
	Risk struct {
		MaxDailyLossPct  float64 `yaml:"max_daily_loss_pct" default:"0.02"`
		MaxDrawdownPct   float64 `yaml:"max_drawdown_pct" default:"0.1"`
		MaxOpenPositions int     `yaml:"max_open_positions" default:"5"`
		MaxLossStreak    int     `yaml:"max_loss_streak" default:"4"`
		MaxPositionPct   float64 `yaml:"max_position_pct" default:"0.1"`
		InitialEquity    float64 `yaml:"initial_equity" default:"100000"`
	} `yaml:"risk"`
	Sizing struct {
		MinOrderNotional float64 `yaml:"min_order_notional" default:"100"`
	} `yaml:"sizing"`
	Halt struct {
		// Key is stored under the cache prefix, so the default lands on
		// tradepipe:halted in Redis where operators expect it.
		Key string `yaml:"key" default:"halted"`
	} `yaml:"halt"`
	Validation struct {
		TrainWindow int `yaml:"train_window" default:"252"`
		TestWindow  int `yaml:"test_window" default:"63"`
		Step        int `yaml:"step" default:"21"`
		MinFolds    int `yaml:"min_folds" default:"5"`
		MinTrades   int `yaml:"min_trades" default:"100"`
		Workers     int `yaml:"workers"`
		Regime      struct {
			HighVol  float64 `yaml:"high_vol" default:"0.25"`
			TrendMin float64 `yaml:"trend_min" default:"0.03"`
		} `yaml:"regime"`
		Thresholds struct {
			PassMinSharpe      float64 `yaml:"pass_min_sharpe" default:"1.0"`
			PassMaxOverfit     float64 `yaml:"pass_max_overfit" default:"0.3"`
			PassMinConsistency float64 `yaml:"pass_min_consistency" default:"0.6"`
			PassMaxDrawdown    float64 `yaml:"pass_max_drawdown" default:"0.15"`
			FailMaxSharpe      float64 `yaml:"fail_max_sharpe" default:"0.5"`
			FailMinOverfit     float64 `yaml:"fail_min_overfit" default:"0.6"`
			FailMaxConsistency float64 `yaml:"fail_max_consistency" default:"0.5"`
			FailMinDrawdown    float64 `yaml:"fail_min_drawdown" default:"0.2"`
		} `yaml:"thresholds"`
	} `yaml:"validation"`
	Kafka struct {
		Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
		IntentsTopic string   `yaml:"intents_topic" default:"trade.intents"`
		FillsTopic   string   `yaml:"fills_topic" default:"trade.fills"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"tradepipe-fills"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"tradepipe"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Feed struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url" default:"ws://localhost:8090/stream"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"3s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"feed"`
	Signals struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout" default:"5s"`
		CacheTTL   time.Duration `yaml:"cache_ttl" default:"30s"`
	} `yaml:"signals"`
}

// Load reads, defaults, parses and validates a YAML configuration file.
// Any invalid value refuses to start; there are no ad hoc fallbacks past
// this point.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("default config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("TICKERS"); v != "" {
		c.Pipeline.Tickers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Pipeline.Tickers) == 0 {
		return fmt.Errorf("pipeline.tickers cannot be empty")
	}
	switch c.Pipeline.Timeframe {
	case "1m", "5m", "1h", "1d":
	default:
		return fmt.Errorf("pipeline.timeframe must be one of 1m, 5m, 1h, 1d, got '%s'", c.Pipeline.Timeframe)
	}
	if c.Pipeline.Direction != "long" && c.Pipeline.Direction != "short" {
		return fmt.Errorf("pipeline.direction must be 'long' or 'short', got '%s'", c.Pipeline.Direction)
	}
	if c.Pipeline.TickInterval <= 0 {
		return fmt.Errorf("pipeline.tick_interval must be positive")
	}

	if len(c.Gates) == 0 {
		return fmt.Errorf("at least one gate is required")
	}
	seen := make(map[string]bool, len(c.Gates))
	for i, g := range c.Gates {
		if g.Name == "" {
			return fmt.Errorf("gates[%d].name is required", i)
		}
		if seen[g.Name] {
			return fmt.Errorf("gates[%d]: duplicate gate name '%s'", i, g.Name)
		}
		seen[g.Name] = true
		if g.Source == "" {
			return fmt.Errorf("gate '%s': source is required", g.Name)
		}
		if g.ConfidenceFloor < 0 || g.ConfidenceFloor > 1 {
			return fmt.Errorf("gate '%s': confidence_floor must be within [0,1], got %v", g.Name, g.ConfidenceFloor)
		}
		if g.Weight <= 0 {
			return fmt.Errorf("gate '%s': weight must be positive, got %v", g.Name, g.Weight)
		}
	}

	switch c.Ensemble.Mode {
	case "majority", "weighted", "unanimous":
	default:
		return fmt.Errorf("ensemble.mode must be majority, weighted or unanimous, got '%s'", c.Ensemble.Mode)
	}
	if c.Ensemble.Threshold <= 0 || c.Ensemble.Threshold >= 1 {
		return fmt.Errorf("ensemble.threshold must be within (0,1), got %v", c.Ensemble.Threshold)
	}

	for name, pct := range map[string]float64{
		"risk.max_daily_loss_pct": c.Risk.MaxDailyLossPct,
		"risk.max_drawdown_pct":   c.Risk.MaxDrawdownPct,
		"risk.max_position_pct":   c.Risk.MaxPositionPct,
	} {
		if pct <= 0 || pct > 1 {
			return fmt.Errorf("%s must be within (0,1], got %v", name, pct)
		}
	}
	if c.Risk.MaxOpenPositions < 1 {
		return fmt.Errorf("risk.max_open_positions must be at least 1, got %d", c.Risk.MaxOpenPositions)
	}
	if c.Risk.MaxLossStreak < 1 {
		return fmt.Errorf("risk.max_loss_streak must be at least 1, got %d", c.Risk.MaxLossStreak)
	}
	if c.Risk.InitialEquity <= 0 {
		return fmt.Errorf("risk.initial_equity must be positive, got %v", c.Risk.InitialEquity)
	}
	if c.Sizing.MinOrderNotional < 0 {
		return fmt.Errorf("sizing.min_order_notional must not be negative, got %v", c.Sizing.MinOrderNotional)
	}

	if c.Validation.TrainWindow <= 0 || c.Validation.TestWindow <= 1 || c.Validation.Step <= 0 {
		return fmt.Errorf("validation windows must be positive (test at least 2 periods)")
	}
	if c.Validation.MinFolds < 1 || c.Validation.MinTrades < 0 {
		return fmt.Errorf("validation sample minimums out of range")
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.Kafka.IntentsTopic == "" || c.Kafka.FillsTopic == "" {
		return fmt.Errorf("kafka.intents_topic and kafka.fills_topic are required")
	}

	if c.Feed.Enabled && c.Feed.APIKey == "" {
		return fmt.Errorf("feed.api_key is required when the feed is enabled")
	}
	return nil
}
