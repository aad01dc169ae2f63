package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MEVLENS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MEVLENS_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "MEVLENS_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MEVLENS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MEVLENS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MEVLENS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MEVLENS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MEVLENS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MEVLENS_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MEVLENS_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MEVLENS_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MEVLENS_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MEVLENS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MEVLENS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MEVLENS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MEVLENS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MEVLENS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MEVLENS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MEVLENS_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MEVLENS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MEVLENS_S3_REGION")
	setStr(&cfg.S3.Bucket, "MEVLENS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MEVLENS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MEVLENS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MEVLENS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MEVLENS_S3_FORCE_PATH_STYLE")

	// ── Detection ──
	setFloat64(&cfg.Detection.MinNetProfitUSD, "MEVLENS_DETECTION_MIN_NET_PROFIT_USD")
	setFloat64(&cfg.Detection.MinSpreadPct, "MEVLENS_DETECTION_MIN_SPREAD_PCT")
	setFloat64(&cfg.Detection.ArbDepthPct, "MEVLENS_DETECTION_ARB_DEPTH_PCT")
	setFloat64(&cfg.Detection.ArbGasEstimateUSD, "MEVLENS_DETECTION_ARB_GAS_ESTIMATE_USD")
	setFloat64(&cfg.Detection.FeePctPerLeg, "MEVLENS_DETECTION_FEE_PCT_PER_LEG")
	setBool(&cfg.Detection.EnhancedScoring, "MEVLENS_DETECTION_ENHANCED_SCORING")
	setBool(&cfg.Detection.AdaptiveThreshold, "MEVLENS_DETECTION_ADAPTIVE_THRESHOLD")

	// ── Pipeline ──
	setStringSlice(&cfg.Pipeline.Chains, "MEVLENS_PIPELINE_CHAINS")
	setDuration(&cfg.Pipeline.ScanInterval, "MEVLENS_PIPELINE_SCAN_INTERVAL")
	setInt64(&cfg.Pipeline.BlocksPerScan, "MEVLENS_PIPELINE_BLOCKS_PER_SCAN")
	setStr(&cfg.Pipeline.ArchiveCron, "MEVLENS_PIPELINE_ARCHIVE_CRON")
	setInt(&cfg.Pipeline.ArchiveRetentionDays, "MEVLENS_PIPELINE_ARCHIVE_RETENTION_DAYS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MEVLENS_MODE")
	setStr(&cfg.LogLevel, "MEVLENS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
