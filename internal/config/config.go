// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Search   SearchConfig   `mapstructure:"search"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	DB       DBConfig       `mapstructure:"db"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SearchConfig governs result collection.
type SearchConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	PageSize     int    `mapstructure:"page_size"`
	PageDelaySec int    `mapstructure:"page_delay_seconds"`
	MaxResults   int    `mapstructure:"max_results"`
	MaxPages     int    `mapstructure:"max_pages"`
}

// FetchConfig configures the headless browser.
type FetchConfig struct {
	UserAgent     string   `mapstructure:"user_agent"`
	NavTimeoutSec int      `mapstructure:"nav_timeout_seconds"`
	FrameMarkers  []string `mapstructure:"frame_markers"`
}

// PipelineConfig governs per-candidate processing.
type PipelineConfig struct {
	DelaySeconds int `mapstructure:"delay_seconds"`
}

// DBConfig controls access to the extraction store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ArchiveConfig selects the optional raw-document archive backend.
type ArchiveConfig struct {
	// Backend is "none", "local" or "gcs".
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// MetricsConfig controls the optional metrics listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. An empty path skips the
// config file and relies on defaults and KNITCRAWL_* variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KNITCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.base_url", "https://search.naver.com/search.naver")
	v.SetDefault("search.page_size", 10)
	v.SetDefault("search.page_delay_seconds", 1)
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.max_pages", 3)
	v.SetDefault("fetch.user_agent", "knitcrawl/1.0 (+https://github.com/haeun-dev/knitcrawl)")
	v.SetDefault("fetch.nav_timeout_seconds", 30)
	v.SetDefault("pipeline.delay_seconds", 1)
	v.SetDefault("db.table", "extractions")
	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("logging.development", true)

	// Keys with no meaningful default still need registering, or
	// AutomaticEnv will not surface them through Unmarshal.
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 0)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("archive.dir", "")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits. A missing store
// DSN is fatal here, before any network activity happens.
func (c Config) Validate() error {
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("search.page_size must be > 0")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0")
	}
	if c.Search.MaxPages <= 0 {
		return fmt.Errorf("search.max_pages must be > 0")
	}
	if c.Fetch.NavTimeoutSec <= 0 {
		return fmt.Errorf("fetch.nav_timeout_seconds must be > 0")
	}
	switch c.Archive.Backend {
	case "", "none":
	case "local":
		if c.Archive.Dir == "" {
			return fmt.Errorf("archive.dir is required for the local backend")
		}
	case "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown archive.backend %q", c.Archive.Backend)
	}
	return nil
}

// NavTimeout converts the fetch timeout config into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Fetch.NavTimeoutSec) * time.Second
}

// PageDelay converts the search pacing config into a duration.
func (c Config) PageDelay() time.Duration {
	return time.Duration(c.Search.PageDelaySec) * time.Second
}

// CandidateDelay converts the pipeline pacing config into a duration.
func (c Config) CandidateDelay() time.Duration {
	return time.Duration(c.Pipeline.DelaySeconds) * time.Second
}
