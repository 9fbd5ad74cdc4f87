// Package config defines the top-level configuration for the fundrail
// backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fundrail/fundrail/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FUNDRAIL_* environment
// variables.
type Config struct {
	Chain    ChainConfig    `toml:"chain"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Pledge   PledgeConfig   `toml:"pledge"`
	Sync     SyncConfig     `toml:"sync"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ChainConfig holds settlement ledger access parameters.
type ChainConfig struct {
	RPCURL         string   `toml:"rpc_url"`
	EscrowAddress  string   `toml:"escrow_address"`
	ChainID        int64    `toml:"chain_id"`
	RequestTimeout duration `toml:"request_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// CacheTTLMinutes overrides the default campaign cache TTL.
	CacheTTLMinutes int `toml:"cache_ttl_minutes"`
}

// S3Config holds S3-compatible object storage parameters for campaign media.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	PublicBaseURL  string `toml:"public_base_url"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PledgeConfig holds pledge admission parameters.
type PledgeConfig struct {
	// MinContributionUSDC is the platform-wide floor in atomic USDC units;
	// campaigns may set a higher per-campaign minimum.
	MinContributionUSDC int64 `toml:"min_contribution_usdc"`
	// RateLimitPerMinute caps pledge submissions per client IP.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
}

// SyncConfig holds reconciliation worker parameters.
type SyncConfig struct {
	Interval duration `toml:"interval"`
	// LockTTL bounds how long a worker may hold a per-campaign sync lock.
	LockTTL duration `toml:"lock_ttl"`
	// BatchSize is the number of unresolved campaigns fetched per pass.
	BatchSize int `toml:"batch_size"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
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
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:         "https://sepolia.base.org",
			ChainID:        84532,
			RequestTimeout: duration{15 * time.Second},
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "fundrail",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "fundrail-media",
			ForcePathStyle: true,
		},
		Pledge: PledgeConfig{
			MinContributionUSDC: domain.DefaultMinContribution,
			RateLimitPerMinute:  30,
		},
		Sync: SyncConfig{
			Interval:  duration{2 * time.Minute},
			LockTTL:   duration{30 * time.Second},
			BatchSize: 100,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true,
	"sync":  true,
	"full":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, sync, full)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must be set")
	}
	if c.Chain.EscrowAddress == "" {
		errs = append(errs, "chain: escrow_address must be set")
	} else if !common.IsHexAddress(c.Chain.EscrowAddress) {
		errs = append(errs, fmt.Sprintf("chain: escrow_address %q is not a valid hex address", c.Chain.EscrowAddress))
	}

	if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.Database == "" || c.Database.User == "") {
		errs = append(errs, "database: either dsn or host/database/user must be set")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must be set")
	}

	if c.Pledge.MinContributionUSDC <= 0 {
		errs = append(errs, "pledge: min_contribution_usdc must be positive")
	}

	if c.Sync.Interval.Duration <= 0 {
		errs = append(errs, "sync: interval must be positive")
	}
	if c.Sync.BatchSize <= 0 {
		errs = append(errs, "sync: batch_size must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
