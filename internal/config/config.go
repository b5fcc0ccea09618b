// Package config loads engine configuration from a YAML file with
// environment variable overrides. Every value has a default, so an
// empty file (or no file at all) yields a runnable in-memory setup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Feed modes.
const (
	FeedHTTP   = "http"
	FeedWS     = "ws"
	FeedStatic = "static"
)

// Config is the root configuration.
type Config struct {
	TickInterval time.Duration `yaml:"tickInterval"`
	MetricsAddr  string        `yaml:"metricsAddr"`
	LogLevel     string        `yaml:"logLevel"`

	Storage StorageConfig `yaml:"storage"`
	Feed    FeedConfig    `yaml:"feed"`
	Assets  []AssetConfig `yaml:"assets"`
}

// StorageConfig selects and configures the persistence backends.
type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend     string `yaml:"backend"`
	PostgresDSN string `yaml:"postgresDsn"`
	// ClickhouseDSN enables risk-score history storage when set.
	ClickhouseDSN string `yaml:"clickhouseDsn"`
}

// FeedConfig selects the risk feed transport.
type FeedConfig struct {
	// Mode is "http", "ws" or "static".
	Mode            string        `yaml:"mode"`
	Endpoint        string        `yaml:"endpoint"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// AssetConfig describes one scored asset for the risk-score producer.
type AssetConfig struct {
	ID     string `yaml:"id"`
	Symbol string `yaml:"symbol"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TickInterval: time.Minute,
		MetricsAddr:  ":9090",
		LogLevel:     "info",
		Storage:      StorageConfig{Backend: BackendMemory},
		Feed:         FeedConfig{Mode: FeedStatic},
		Assets: []AssetConfig{
			{ID: "BTC", Symbol: "BTCUSDT"},
			{ID: "ETH", Symbol: "ETHUSDT"},
			{ID: "SOL", Symbol: "SOLUSDT"},
			{ID: "XRP", Symbol: "XRPUSDT"},
		},
	}
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result. A missing file is an error; an empty path means
// defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays ENGINE_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ENGINE_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TickInterval = d
		}
	}
	if v := os.Getenv("ENGINE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("ENGINE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ENGINE_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("ENGINE_POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("ENGINE_CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("ENGINE_FEED_MODE"); v != "" {
		cfg.Feed.Mode = v
	}
	if v := os.Getenv("ENGINE_FEED_ENDPOINT"); v != "" {
		cfg.Feed.Endpoint = v
	}
	if v := os.Getenv("ENGINE_FEED_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Feed.RefreshInterval = d
		}
	}
}

func (c Config) validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tickInterval must be positive, got %s", c.TickInterval)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres backend requires postgresDsn")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Feed.Mode {
	case FeedStatic:
	case FeedHTTP, FeedWS:
		if c.Feed.Endpoint == "" {
			return fmt.Errorf("%s feed requires an endpoint", c.Feed.Mode)
		}
	default:
		return fmt.Errorf("unknown feed mode %q", c.Feed.Mode)
	}

	for i, a := range c.Assets {
		if a.ID == "" {
			return fmt.Errorf("assets[%d]: id is required", i)
		}
	}
	return nil
}
