package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/fundrail/fundrail/internal/blob/s3"
	"github.com/fundrail/fundrail/internal/cache/redis"
	"github.com/fundrail/fundrail/internal/config"
	"github.com/fundrail/fundrail/internal/domain"
	"github.com/fundrail/fundrail/internal/ledger/escrow"
	"github.com/fundrail/fundrail/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	CampaignStore domain.CampaignStore
	TierStore     domain.TierStore
	PledgeStore   domain.PledgeStore
	BackerStore   domain.BackerStore
	AuditStore    domain.AuditStore

	// Caches
	CampaignCache domain.CampaignCache
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	// Settlement ledger
	LedgerReader domain.LedgerReader

	// Blob storage (nil in sync mode)
	MediaStore domain.MediaStore

	// Raw clients kept for health checks.
	PG    *postgres.Client
	Redis *redis.Client
	S3    *s3blob.Client
}

// needsS3 returns true for modes that serve media endpoints.
func needsS3(mode string) bool {
	switch mode {
	case "serve", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function to call on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PG = pgClient
	deps.CampaignStore = postgres.NewCampaignStore(pool)
	deps.TierStore = postgres.NewTierStore(pool)
	deps.PledgeStore = postgres.NewPledgeStore(pool)
	deps.BackerStore = postgres.NewBackerStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
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

	cacheTTL := time.Duration(0)
	if cfg.Redis.CacheTTLMinutes > 0 {
		cacheTTL = time.Duration(cfg.Redis.CacheTTLMinutes) * time.Minute
	}

	deps.Redis = redisClient
	deps.CampaignCache = redis.NewCampaignCache(redisClient, cacheTTL)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Settlement ledger ---
	reader, err := escrow.NewReader(ctx, cfg.Chain.RPCURL, cfg.Chain.EscrowAddress, cfg.Chain.RequestTimeout.Duration, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: escrow reader: %w", err)
	}
	closers = append(closers, reader.Close)
	deps.LedgerReader = reader

	// --- S3 media storage (only for modes that serve media) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			PublicBaseURL:  cfg.S3.PublicBaseURL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.S3 = s3Client
		deps.MediaStore = s3blob.NewMediaStore(s3Client)
	}

	return deps, cleanup, nil
}
