package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
environment: test
pipeline:
  tickers: [AAPL, MSFT]
gates:
  - name: momentum
    source: model-svc
    confidence_floor: 0.3
    weight: 0.5
  - name: sentiment
    source: model-svc
ensemble:
  mode: weighted
  threshold: 0.5
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", c.Server.Port)
	}
	if c.Validation.TrainWindow != 252 || c.Validation.TestWindow != 63 || c.Validation.Step != 21 {
		t.Fatalf("unexpected validation window defaults: %+v", c.Validation)
	}
	if c.Risk.MaxDailyLossPct != 0.02 {
		t.Fatalf("expected default daily loss 0.02, got %v", c.Risk.MaxDailyLossPct)
	}
	if got := c.Gates[1].ConfidenceFloor; got != 0.2 {
		t.Fatalf("expected gate floor default 0.2, got %v", got)
	}
	if got := c.Gates[0].ConfidenceFloor; got != 0.3 {
		t.Fatalf("explicit gate floor overridden: %v", got)
	}
	if len(c.Kafka.Brokers) != 1 || c.Kafka.Brokers[0] != "localhost:9092" {
		t.Fatalf("unexpected broker default: %v", c.Kafka.Brokers)
	}
}

func TestLoadFailsClosed(t *testing.T) {
	cases := map[string]string{
		"missing environment": `
pipeline:
  tickers: [AAPL]
gates:
  - {name: g, source: s}
`,
		"no tickers": `
environment: test
gates:
  - {name: g, source: s}
`,
		"no gates": `
environment: test
pipeline:
  tickers: [AAPL]
gates: []
`,
		"bad ensemble mode": `
environment: test
pipeline:
  tickers: [AAPL]
gates:
  - {name: g, source: s}
ensemble:
  mode: plurality
`,
		"negative gate weight": `
environment: test
pipeline:
  tickers: [AAPL]
gates:
  - {name: g, source: s, weight: -1}
`,
		"daily loss above one": `
environment: test
pipeline:
  tickers: [AAPL]
gates:
  - {name: g, source: s}
risk:
  max_daily_loss_pct: 1.5
`,
		"feed enabled without key": `
environment: test
pipeline:
  tickers: [AAPL]
gates:
  - {name: g, source: s}
feed:
  enabled: true
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("TICKERS", "NVDA,TSLA")
	t.Setenv("REDIS_ADDR", "redis:6380")

	c, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Pipeline.Tickers) != 2 || c.Pipeline.Tickers[0] != "NVDA" {
		t.Fatalf("env ticker override not applied: %v", c.Pipeline.Tickers)
	}
	if c.Redis.Addr != "redis:6380" {
		t.Fatalf("env redis override not applied: %v", c.Redis.Addr)
	}
}
