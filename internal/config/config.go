// Package config defines the top-level configuration for the cropshield fund
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration. Fields are populated from a TOML file and
// then optionally overridden by CROPSHIELD_* environment variables.
type Config struct {
	Season   SeasonConfig   `toml:"season"`
	Wallet   WalletConfig   `toml:"wallet"`
	Chain    ChainConfig    `toml:"chain"`
	Oracle   OracleConfig   `toml:"oracle"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// SeasonConfig holds the fund's season terms. All amounts are base units of
// the pool asset.
type SeasonConfig struct {
	// Window is the length of one phase window; a season spans four of them.
	Window duration `toml:"window"`

	// PayoutMultiplier scales a season's premium into its payout per unit.
	PayoutMultiplier int64 `toml:"payout_multiplier"`

	// TriggerThreshold is the strict upper bound the oracle value must fall
	// below for claims to pay out.
	TriggerThreshold int64 `toml:"trigger_threshold"`

	// InitialPremium is the premium per unit for the first season.
	InitialPremium int64 `toml:"initial_premium"`

	// Admin is the account allowed to roll seasons and advance phases.
	Admin string `toml:"admin"`

	// ArchiveEnabled uploads a season snapshot to object storage at rollover.
	ArchiveEnabled bool `toml:"archive_enabled"`
}

// WalletConfig holds the operator wallet credentials.
type WalletConfig struct {
	PrivateKey  string `toml:"private_key"`
	WalletPath  string `toml:"wallet_path"`
	KeyPassword string `toml:"key_password"`
}

// ChainConfig selects the asset-ledger backend and its chain parameters.
type ChainConfig struct {
	// Backend is "memory" for the in-process ledger or "evm" for ERC-20.
	Backend string `toml:"backend"`

	RPCURL       string `toml:"rpc_url"`
	ChainID      int64  `toml:"chain_id"`
	TokenAddress string `toml:"token_address"`
	FeedAddress  string `toml:"feed_address"`

	// PoolAccount names the pool on the memory backend; the evm backend
	// derives it from the operator wallet.
	PoolAccount string `toml:"pool_account"`
}

// OracleConfig tunes the background oracle poller.
type OracleConfig struct {
	PollInterval duration `toml:"poll_interval"`
	CacheTTL     duration `toml:"cache_ttl"`
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	AdminToken  string   `toml:"admin_token"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so the TOML decoder accepts strings like
// "72h" or "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config with sensible local-development values. The TOML
// file and environment overrides are applied on top of it.
func Defaults() Config {
	return Config{
		Season: SeasonConfig{
			Window:           duration{28 * 24 * time.Hour},
			PayoutMultiplier: 4,
			TriggerThreshold: 100,
			InitialPremium:   1_000_000, // 1 token at 6 decimals
			Admin:            "",
			ArchiveEnabled:   false,
		},
		Chain: ChainConfig{
			Backend:     "memory",
			ChainID:     137,
			PoolAccount: "pool",
		},
		Oracle: OracleConfig{
			PollInterval: duration{time.Minute},
			CacheTTL:     duration{5 * time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "cropshield",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "cropshield-archive",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Events: []string{"claim_made", "new_season_started", "phase_advanced", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":   true,
	"simulate": true,
	"full":     true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the Config for invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, simulate, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Season terms.
	if c.Season.Window.Duration <= 0 {
		errs = append(errs, "season: window must be positive")
	}
	if c.Season.PayoutMultiplier <= 0 {
		errs = append(errs, "season: payout_multiplier must be positive")
	}
	if c.Season.TriggerThreshold <= 0 {
		errs = append(errs, "season: trigger_threshold must be positive")
	}
	if c.Season.InitialPremium <= 0 {
		errs = append(errs, "season: initial_premium must be positive")
	}
	if c.Season.Admin == "" {
		errs = append(errs, "season: admin account must be set")
	}

	// Chain backend.
	switch strings.ToLower(c.Chain.Backend) {
	case "memory":
		if c.Chain.PoolAccount == "" {
			errs = append(errs, "chain: pool_account is required for the memory backend")
		}
	case "evm":
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain: rpc_url is required for the evm backend")
		}
		if c.Chain.TokenAddress == "" {
			errs = append(errs, "chain: token_address is required for the evm backend")
		}
		if c.Chain.FeedAddress == "" {
			errs = append(errs, "chain: feed_address is required for the evm backend")
		}
		if c.Wallet.PrivateKey == "" && c.Wallet.WalletPath == "" {
			errs = append(errs, "wallet: either private_key or wallet_path must be set for the evm backend")
		}
		if c.Wallet.WalletPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when wallet_path is set")
		}
	default:
		errs = append(errs, fmt.Sprintf("chain: unknown backend %q (valid: memory, evm)", c.Chain.Backend))
	}

	// Oracle poller.
	if c.Oracle.PollInterval.Duration <= 0 {
		errs = append(errs, "oracle: poll_interval must be positive")
	}

	// Postgres.
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

	// Redis.
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 is only required when season archiving is on.
	if c.Season.ArchiveEnabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archiving is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archiving is enabled")
		}
	}

	// Server.
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
