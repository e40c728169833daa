package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/fetch-pool/pkg/dispatch"
	"github.com/Sternrassler/fetch-pool/pkg/fetch"
	"github.com/Sternrassler/fetch-pool/pkg/logging"
	"gopkg.in/yaml.v3"
)

// appConfig is the driver configuration. Values come from an optional YAML
// file named by FETCH_CONFIG, then environment variables override them.
type appConfig struct {
	Concurrency int          `yaml:"concurrency"`
	Fetch       fetch.Config `yaml:"fetch"`
	Log         logConfig    `yaml:"log"`

	// RedisURL selects Redis stats; either redis://host:port/db or host:port.
	RedisURL    string `yaml:"redis_url"`
	StatsPrefix string `yaml:"stats_prefix"`

	// MetricsDump prints the fetchpool_* metrics to stderr after the batch.
	MetricsDump bool `yaml:"metrics_dump"`
	// MetricsAddr serves /metrics on this address while the batch runs.
	MetricsAddr string `yaml:"metrics_addr"`
}

type logConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Pretty  bool   `yaml:"pretty"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		Concurrency: dispatch.DefaultConcurrency,
		Fetch:       fetch.DefaultConfig(),
		Log: logConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// loadConfig builds the configuration from defaults, the YAML file and env.
func loadConfig(getenv func(string) string) (appConfig, error) {
	cfg := defaultAppConfig()

	if path := getEnv(getenv, "FETCH_CONFIG", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if v := getEnv(getenv, "FETCH_CONCURRENCY", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("FETCH_CONCURRENCY: %w", err)
		}
		cfg.Concurrency = n
	}
	if v := getEnv(getenv, "FETCH_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("FETCH_TIMEOUT: %w", err)
		}
		cfg.Fetch.Timeout = d
	}
	cfg.Fetch.UserAgent = getEnv(getenv, "FETCH_USER_AGENT", cfg.Fetch.UserAgent)

	if v := getEnv(getenv, "LOG_ENABLED", ""); v != "" {
		cfg.Log.Enabled = logging.ParseEnabled(v)
	}
	cfg.Log.Level = getEnv(getenv, "LOG_LEVEL", cfg.Log.Level)
	if v := getEnv(getenv, "LOG_PRETTY", ""); v != "" {
		cfg.Log.Pretty = logging.ParseEnabled(v)
	}

	cfg.RedisURL = getEnv(getenv, "REDIS_URL", cfg.RedisURL)
	cfg.StatsPrefix = getEnv(getenv, "STATS_PREFIX", cfg.StatsPrefix)
	if v := getEnv(getenv, "METRICS_DUMP", ""); v != "" {
		cfg.MetricsDump = logging.ParseEnabled(v)
	}
	cfg.MetricsAddr = getEnv(getenv, "METRICS_ADDR", cfg.MetricsAddr)

	if cfg.Concurrency < 0 {
		return cfg, fmt.Errorf("concurrency must be >= 0 (got %d)", cfg.Concurrency)
	}
	return cfg, nil
}

func (c appConfig) loggerConfig() logging.Config {
	return logging.Config{
		Level:   logging.LogLevel(c.Log.Level),
		Pretty:  c.Log.Pretty,
		Enabled: c.Log.Enabled,
	}
}

func getEnv(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}
