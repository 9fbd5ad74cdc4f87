package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FUNDRAIL_* environment variable overrides, and
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

// applyEnvOverrides reads well-known FUNDRAIL_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "FUNDRAIL_CHAIN_RPC_URL")
	setStr(&cfg.Chain.EscrowAddress, "FUNDRAIL_CHAIN_ESCROW_ADDRESS")
	setInt64(&cfg.Chain.ChainID, "FUNDRAIL_CHAIN_ID")

	// ── Database ──
	setStr(&cfg.Database.DSN, "FUNDRAIL_DATABASE_DSN")
	setStr(&cfg.Database.Host, "FUNDRAIL_DATABASE_HOST")
	setInt(&cfg.Database.Port, "FUNDRAIL_DATABASE_PORT")
	setStr(&cfg.Database.Database, "FUNDRAIL_DATABASE_NAME")
	setStr(&cfg.Database.User, "FUNDRAIL_DATABASE_USER")
	setStr(&cfg.Database.Password, "FUNDRAIL_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "FUNDRAIL_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "FUNDRAIL_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "FUNDRAIL_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "FUNDRAIL_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FUNDRAIL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FUNDRAIL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FUNDRAIL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FUNDRAIL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FUNDRAIL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FUNDRAIL_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "FUNDRAIL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FUNDRAIL_S3_REGION")
	setStr(&cfg.S3.Bucket, "FUNDRAIL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FUNDRAIL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FUNDRAIL_S3_SECRET_KEY")
	setStr(&cfg.S3.PublicBaseURL, "FUNDRAIL_S3_PUBLIC_BASE_URL")
	setBool(&cfg.S3.ForcePathStyle, "FUNDRAIL_S3_FORCE_PATH_STYLE")

	// ── Pledge ──
	setInt64(&cfg.Pledge.MinContributionUSDC, "FUNDRAIL_PLEDGE_MIN_CONTRIBUTION_USDC")
	setInt(&cfg.Pledge.RateLimitPerMinute, "FUNDRAIL_PLEDGE_RATE_LIMIT_PER_MINUTE")

	// ── Sync ──
	setInt(&cfg.Sync.BatchSize, "FUNDRAIL_SYNC_BATCH_SIZE")

	// ── Server ──
	setInt(&cfg.Server.Port, "FUNDRAIL_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "FUNDRAIL_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "FUNDRAIL_MODE")
	setStr(&cfg.LogLevel, "FUNDRAIL_LOG_LEVEL")
}

// setStr overwrites dst when the environment variable is set and non-empty.
func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt overwrites dst when the environment variable parses as an int.
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// setInt64 overwrites dst when the environment variable parses as an int64.
func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

// setBool overwrites dst when the environment variable parses as a bool.
func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
