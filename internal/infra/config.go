package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting for the service. Values are loaded
// from YAML first, then deploy-specific fields may be overridden
// through environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Host           string   `yaml:"host"`
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Cache struct {
		TTLSec int `yaml:"ttl_sec"`
	} `yaml:"cache"`

	Queue struct {
		Concurrency   int `yaml:"concurrency"`
		RateLimit     int `yaml:"rate_limit"`
		RateWindowSec int `yaml:"rate_window_sec"`
	} `yaml:"queue"`

	Pipeline struct {
		MaxRetries    int `yaml:"max_retries"`
		BackoffBaseMS int `yaml:"backoff_base_ms"`
		BuildDelayMS  int `yaml:"build_delay_ms"`
	} `yaml:"pipeline"`

	Dex struct {
		QuoteLatencyMS    int     `yaml:"quote_latency_ms"`
		ExecutionMinMS    int     `yaml:"execution_min_ms"`
		ExecutionJitterMS int     `yaml:"execution_jitter_ms"`
		FailureRate       float64 `yaml:"failure_rate"`
	} `yaml:"dex"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with production defaults. Used as the
// base when no config file is present and as a starting point in tests.
func Default() *Config {
	var cfg Config
	cfg.App.Name = "dexflow"
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 3000
	cfg.Storage.Path = "data/dexflow.db"
	cfg.Cache.TTLSec = 3600
	cfg.Queue.Concurrency = 10
	cfg.Queue.RateLimit = 100
	cfg.Queue.RateWindowSec = 60
	cfg.Pipeline.MaxRetries = 3
	cfg.Pipeline.BackoffBaseMS = 1000
	cfg.Pipeline.BuildDelayMS = 500
	cfg.Dex.QuoteLatencyMS = 200
	cfg.Dex.ExecutionMinMS = 2000
	cfg.Dex.ExecutionJitterMS = 1000
	cfg.Dex.FailureRate = 0.05
	cfg.Logging.Level = "info"
	overrideWithEnv(&cfg)
	return &cfg
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	if c.Cache.TTLSec <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("queue concurrency must be positive")
	}
	if c.Queue.RateLimit <= 0 || c.Queue.RateWindowSec <= 0 {
		return fmt.Errorf("queue rate limit and window must be positive")
	}
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.Dex.FailureRate < 0 || c.Dex.FailureRate > 1 {
		return fmt.Errorf("dex failure rate must be within [0, 1]")
	}
	return nil
}

// CacheTTL returns the active-order cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSec) * time.Second
}

// RateWindow returns the queue rate-limit window as a duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.Queue.RateWindowSec) * time.Second
}

// BackoffBase returns the unit delay the exponential backoff scales from.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Pipeline.BackoffBaseMS) * time.Millisecond
}

// BuildDelay returns the simulated transaction build delay.
func (c *Config) BuildDelay() time.Duration {
	return time.Duration(c.Pipeline.BuildDelayMS) * time.Millisecond
}

// overrideWithEnv overrides settings when environment variables exist.
func overrideWithEnv(cfg *Config) {
	if host := os.Getenv("DEXFLOW_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if path := os.Getenv("DEXFLOW_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if n := os.Getenv("QUEUE_CONCURRENCY"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			cfg.Queue.Concurrency = v
		}
	}
	if n := os.Getenv("QUEUE_RATE_LIMIT"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			cfg.Queue.RateLimit = v
		}
	}
	if level := os.Getenv("DEXFLOW_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
