package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.CacheTTL() != time.Hour {
		t.Errorf("cache TTL = %v, want 1h", cfg.CacheTTL())
	}
	if cfg.RateWindow() != time.Minute {
		t.Errorf("rate window = %v, want 1m", cfg.RateWindow())
	}
	if cfg.BackoffBase() != time.Second {
		t.Errorf("backoff base = %v, want 1s", cfg.BackoffBase())
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  host: 127.0.0.1
  port: 8080
storage:
  path: test.db
cache:
  ttl_sec: 60
queue:
  concurrency: 2
  rate_limit: 5
  rate_window_sec: 1
pipeline:
  max_retries: 3
  backoff_base_ms: 100
  build_delay_ms: 10
dex:
  quote_latency_ms: 1
  failure_rate: 0.5
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Queue.Concurrency != 2 {
		t.Errorf("concurrency = %d, want 2", cfg.Queue.Concurrency)
	}
	if cfg.Dex.FailureRate != 0.5 {
		t.Errorf("failure rate = %v, want 0.5", cfg.Dex.FailureRate)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"empty storage path", func(c *Config) { c.Storage.Path = "" }},
		{"zero cache ttl", func(c *Config) { c.Cache.TTLSec = 0 }},
		{"zero concurrency", func(c *Config) { c.Queue.Concurrency = 0 }},
		{"zero rate limit", func(c *Config) { c.Queue.RateLimit = 0 }},
		{"negative retries", func(c *Config) { c.Pipeline.MaxRetries = -1 }},
		{"failure rate above one", func(c *Config) { c.Dex.FailureRate = 1.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("QUEUE_CONCURRENCY", "3")

	cfg := Default()
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999 from env", cfg.Server.Port)
	}
	if cfg.Queue.Concurrency != 3 {
		t.Errorf("concurrency = %d, want 3 from env", cfg.Queue.Concurrency)
	}
}
