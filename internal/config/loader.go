package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path, merges it on top of the built-in
// defaults, applies CROPSHIELD_* environment overrides, and returns the
// result. The caller is expected to invoke Validate afterwards.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env if present; silently ignore when missing.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides overwrites config fields from well-known CROPSHIELD_*
// environment variables, so operators can inject secrets at deploy time
// without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Season ──
	setDuration(&cfg.Season.Window, "CROPSHIELD_SEASON_WINDOW")
	setInt64(&cfg.Season.PayoutMultiplier, "CROPSHIELD_SEASON_PAYOUT_MULTIPLIER")
	setInt64(&cfg.Season.TriggerThreshold, "CROPSHIELD_SEASON_TRIGGER_THRESHOLD")
	setInt64(&cfg.Season.InitialPremium, "CROPSHIELD_SEASON_INITIAL_PREMIUM")
	setStr(&cfg.Season.Admin, "CROPSHIELD_SEASON_ADMIN")
	setBool(&cfg.Season.ArchiveEnabled, "CROPSHIELD_SEASON_ARCHIVE_ENABLED")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "CROPSHIELD_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.WalletPath, "CROPSHIELD_WALLET_PATH")
	setStr(&cfg.Wallet.KeyPassword, "CROPSHIELD_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.Backend, "CROPSHIELD_CHAIN_BACKEND")
	setStr(&cfg.Chain.RPCURL, "CROPSHIELD_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "CROPSHIELD_CHAIN_ID")
	setStr(&cfg.Chain.TokenAddress, "CROPSHIELD_CHAIN_TOKEN_ADDRESS")
	setStr(&cfg.Chain.FeedAddress, "CROPSHIELD_CHAIN_FEED_ADDRESS")
	setStr(&cfg.Chain.PoolAccount, "CROPSHIELD_CHAIN_POOL_ACCOUNT")

	// ── Oracle ──
	setDuration(&cfg.Oracle.PollInterval, "CROPSHIELD_ORACLE_POLL_INTERVAL")
	setDuration(&cfg.Oracle.CacheTTL, "CROPSHIELD_ORACLE_CACHE_TTL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "CROPSHIELD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CROPSHIELD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CROPSHIELD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CROPSHIELD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CROPSHIELD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CROPSHIELD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CROPSHIELD_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CROPSHIELD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CROPSHIELD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CROPSHIELD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CROPSHIELD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROPSHIELD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROPSHIELD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CROPSHIELD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CROPSHIELD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CROPSHIELD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "CROPSHIELD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CROPSHIELD_S3_REGION")
	setStr(&cfg.S3.Bucket, "CROPSHIELD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CROPSHIELD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CROPSHIELD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CROPSHIELD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CROPSHIELD_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CROPSHIELD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CROPSHIELD_SERVER_PORT")
	setStr(&cfg.Server.AdminToken, "CROPSHIELD_SERVER_ADMIN_TOKEN")
	setStringSlice(&cfg.Server.CORSOrigins, "CROPSHIELD_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CROPSHIELD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CROPSHIELD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CROPSHIELD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CROPSHIELD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CROPSHIELD_MODE")
	setStr(&cfg.LogLevel, "CROPSHIELD_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and non-empty.

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
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
