package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/mevlens/mevlens/internal/blob/s3"
	"github.com/mevlens/mevlens/internal/cache/redis"
	"github.com/mevlens/mevlens/internal/config"
	"github.com/mevlens/mevlens/internal/domain"
	"github.com/mevlens/mevlens/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	OpportunityStore domain.OpportunityStore
	BotStore         domain.BotStore
	AttributionStore domain.AttributionStore
	TrendStore       domain.TrendStore
	AccuracyStore    domain.AccuracyStore

	// ChainData reads the indexed chain tables written by the external
	// indexer.
	ChainData domain.BlockDataProvider

	// Caches (nil when Redis is disabled)
	OpportunityCache domain.OpportunityCache
	TrendCache       domain.TrendCache

	// Blob storage (nil when S3 is not wired)
	BlobWriter       domain.BlobWriter
	BlobReader       domain.BlobReader
	SnapshotArchiver domain.SnapshotArchiver
}

// needsS3 reports whether the mode runs the archival cron.
func needsS3(mode string) bool {
	switch mode {
	case "scan", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (every mode persists or reads aggregates) ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.OpportunityStore = postgres.NewOpportunityStore(pool)
	deps.BotStore = postgres.NewBotStore(pool)
	deps.AttributionStore = postgres.NewAttributionStore(pool)
	deps.TrendStore = postgres.NewTrendStore(pool)
	deps.AccuracyStore = postgres.NewAccuracyStore(pool)
	deps.ChainData = postgres.NewChainDataStore(pool)

	// --- Redis (optional read-through caches) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.OpportunityCache = redis.NewOpportunityCache(redisClient)
		deps.TrendCache = redis.NewTrendCache(redisClient)
	} else {
		logger.Info("redis disabled, running without caches")
	}

	// --- S3 blob storage (only for modes that archive) ---
	if needsS3(cfg.Mode) && cfg.Pipeline.ArchiveCron != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.SnapshotArchiver = s3blob.NewArchiver(deps.BlobWriter, deps.BlobReader, deps.AttributionStore)
	}

	return deps, cleanup, nil
}
