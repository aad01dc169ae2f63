// Package config defines the top-level configuration for the MEV analytics
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MEVLENS_* environment
// variables.
type Config struct {
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Detection DetectionConfig `toml:"detection"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Caching is optional; leave
// Enabled false to run straight against the stores.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// FactorWeightsConfig holds the multi-factor confidence weights. The five
// weights must sum to 1.
type FactorWeightsConfig struct {
	Gas        float64 `toml:"gas"`
	Timing     float64 `toml:"timing"`
	Volume     float64 `toml:"volume"`
	Liquidity  float64 `toml:"liquidity"`
	Historical float64 `toml:"historical"`
}

// DetectionConfig holds detector tuning parameters.
type DetectionConfig struct {
	MinNetProfitUSD   float64             `toml:"min_net_profit_usd"`
	MinSpreadPct      float64             `toml:"min_spread_pct"`
	ArbDepthPct       float64             `toml:"arb_depth_pct"`
	ArbGasEstimateUSD float64             `toml:"arb_gas_estimate_usd"`
	FeePctPerLeg      float64             `toml:"fee_pct_per_leg"`
	EnhancedScoring   bool                `toml:"enhanced_scoring"`
	AdaptiveThreshold bool                `toml:"adaptive_threshold"`
	Weights           FactorWeightsConfig `toml:"weights"`
}

// PipelineConfig holds scan-loop and archival parameters.
type PipelineConfig struct {
	Chains               []string `toml:"chains"`
	ScanInterval         duration `toml:"scan_interval"`
	BlocksPerScan        int64    `toml:"blocks_per_scan"`
	ArchiveCron          string   `toml:"archive_cron"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "mevlens",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "mevlens-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Detection: DetectionConfig{
			MinNetProfitUSD:   100,
			MinSpreadPct:      0.5,
			ArbDepthPct:       0.01,
			ArbGasEstimateUSD: 25,
			FeePctPerLeg:      0.3,
			EnhancedScoring:   true,
			AdaptiveThreshold: true,
			Weights: FactorWeightsConfig{
				Gas:        0.25,
				Timing:     0.20,
				Volume:     0.20,
				Liquidity:  0.20,
				Historical: 0.15,
			},
		},
		Pipeline: PipelineConfig{
			Chains:               []string{"ethereum"},
			ScanInterval:         duration{time.Minute},
			BlocksPerScan:        25,
			ArchiveCron:          "0 3 1 * *",
			ArchiveRetentionDays: 90,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":   true,
	"rollup": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, rollup, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3 is only needed when the archive cron is set.
	if c.Pipeline.ArchiveCron != "" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when pipeline.archive_cron is set")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when pipeline.archive_cron is set")
		}
	}

	// Detection
	if c.Detection.MinNetProfitUSD < 0 {
		errs = append(errs, "detection: min_net_profit_usd must be >= 0")
	}
	if c.Detection.MinSpreadPct <= 0 {
		errs = append(errs, "detection: min_spread_pct must be > 0")
	}
	if c.Detection.ArbDepthPct <= 0 || c.Detection.ArbDepthPct > 1 {
		errs = append(errs, "detection: arb_depth_pct must be in (0, 1]")
	}
	w := c.Detection.Weights
	sum := w.Gas + w.Timing + w.Volume + w.Liquidity + w.Historical
	if sum < 0.999 || sum > 1.001 {
		errs = append(errs, fmt.Sprintf("detection: weights must sum to 1, got %f", sum))
	}

	// Pipeline
	if len(c.Pipeline.Chains) == 0 {
		errs = append(errs, "pipeline: at least one chain must be configured")
	}
	if c.Pipeline.ScanInterval.Duration <= 0 {
		errs = append(errs, "pipeline: scan_interval must be > 0")
	}
	if c.Pipeline.BlocksPerScan < 1 {
		errs = append(errs, "pipeline: blocks_per_scan must be >= 1")
	}
	if c.Pipeline.ArchiveRetentionDays < 0 {
		errs = append(errs, "pipeline: archive_retention_days must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
