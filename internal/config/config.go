// Package config loads the service configuration from YAML with
// environment-variable overrides for deployment-sensitive values.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML duration strings like "30m" or "1h30m". Bare
// integers are taken as nanoseconds for compatibility with time.Duration's
// native representation.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	Graph struct {
		Endpoint   string   `yaml:"endpoint"`
		Timeout    Duration `yaml:"timeout"`
		MaxRetries int      `yaml:"max_retries"`
	} `yaml:"graph"`

	Feed struct {
		Endpoint     string   `yaml:"endpoint"`
		PingInterval Duration `yaml:"ping_interval"`
	} `yaml:"feed"`

	MarketDepth struct {
		Enabled bool   `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"market_depth"`

	Storage struct {
		// Backend selects the snapshot store: memory, file or postgres.
		Backend     string `yaml:"backend"`
		FileRoot    string `yaml:"file_root"`
		PostgresDSN string `yaml:"postgres_dsn"`
		// ClickhouseDSN enables the swap archive when set.
		ClickhouseDSN string `yaml:"clickhouse_dsn"`
	} `yaml:"storage"`

	Universe struct {
		MinVolumeUSD float64 `yaml:"min_volume_usd"`
		PageSize     int     `yaml:"page_size"`
		MaxPages     int     `yaml:"max_pages"`
	} `yaml:"universe"`

	Pools struct {
		MinVolumeUSD float64 `yaml:"min_volume_usd"`
		PageSize     int     `yaml:"page_size"`
		MaxPages     int     `yaml:"max_pages"`
	} `yaml:"pools"`

	History struct {
		RetentionRaw    Duration `yaml:"retention_raw"`
		RetentionRecent Duration `yaml:"retention_recent"`
		ActivityWindow  Duration `yaml:"activity_window"`
		GoodTraders     []string `yaml:"good_traders"`
	} `yaml:"history"`

	Scoring struct {
		// Weights overrides the default metric weights by name.
		Weights map[string]float64 `yaml:"weights"`
	} `yaml:"scoring"`

	Pipeline struct {
		RefreshInterval Duration `yaml:"refresh_interval"`
		SummaryInterval Duration `yaml:"summary_interval"`
		ArchiveInterval Duration `yaml:"archive_interval"`
	} `yaml:"pipeline"`
}

// Load reads and parses a YAML configuration file, applies defaults and
// environment overrides, then validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Pipeline.RefreshInterval == 0 {
		c.Pipeline.RefreshInterval = Duration(time.Hour)
	}
	if c.Pipeline.SummaryInterval == 0 {
		c.Pipeline.SummaryInterval = Duration(5 * time.Minute)
	}
	if c.Pipeline.ArchiveInterval == 0 {
		c.Pipeline.ArchiveInterval = Duration(time.Minute)
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DEXSIGNAL_GRAPH_ENDPOINT"); v != "" {
		c.Graph.Endpoint = v
	}
	if v := os.Getenv("DEXSIGNAL_FEED_ENDPOINT"); v != "" {
		c.Feed.Endpoint = v
	}
	if v := os.Getenv("DEXSIGNAL_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("DEXSIGNAL_CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("DEXSIGNAL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DEXSIGNAL_GOOD_TRADERS"); v != "" {
		c.History.GoodTraders = strings.Split(v, ",")
	}
}

// Validate checks the configuration for required and coherent values.
func (c *Config) Validate() error {
	if c.Graph.Endpoint == "" {
		return fmt.Errorf("graph.endpoint is required")
	}
	switch c.Storage.Backend {
	case "memory":
	case "file":
		if c.Storage.FileRoot == "" {
			return fmt.Errorf("storage.file_root is required for the file backend")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be 'memory', 'file' or 'postgres', got '%s'", c.Storage.Backend)
	}
	if c.MarketDepth.Enabled && c.MarketDepth.BaseURL == "" {
		return fmt.Errorf("market_depth.base_url is required when market depth is enabled")
	}
	return nil
}
