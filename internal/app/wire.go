package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cropshield/cropshield/internal/asset"
	s3blob "github.com/cropshield/cropshield/internal/blob/s3"
	"github.com/cropshield/cropshield/internal/cache/redis"
	"github.com/cropshield/cropshield/internal/chain"
	"github.com/cropshield/cropshield/internal/config"
	"github.com/cropshield/cropshield/internal/crypto"
	"github.com/cropshield/cropshield/internal/domain"
	"github.com/cropshield/cropshield/internal/ledger"
	"github.com/cropshield/cropshield/internal/notify"
	"github.com/cropshield/cropshield/internal/oracle"
	"github.com/cropshield/cropshield/internal/service"
	"github.com/cropshield/cropshield/internal/store/postgres"
)

// Dependencies bundles everything the operating modes need. Wire constructs
// it; the returned cleanup function tears it down.
type Dependencies struct {
	// Core ledger
	Engine *ledger.Engine
	Clock  *ledger.OffsetClock
	Assets domain.AssetLedger
	Oracle domain.TriggerOracle

	// The settable oracle, non-nil only on the memory backend.
	StaticOracle *oracle.Static

	// The in-process asset ledger, non-nil only on the memory backend.
	MemoryAssets *asset.Ledger

	// Stores
	SeasonStore domain.SeasonStore
	PolicyStore domain.PolicyStore
	VaultStore  domain.VaultStore
	AuditStore  domain.AuditStore

	// Redis
	RedisClient  *redis.Client
	ReadingCache domain.ReadingCache
	LockManager  domain.LockManager
	SignalBus    domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   service.SeasonArchiver

	// Postgres, kept for health checks.
	PgClient *postgres.Client

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres reports whether the mode persists state.
func needsPostgres(mode string) bool {
	switch mode {
	case "server", "full":
		return true
	default:
		return false
	}
}

// needsRedis reports whether the mode uses caching, locking, or pub/sub.
func needsRedis(mode string) bool {
	return needsPostgres(mode)
}

// Wire constructs concrete implementations from the configuration. Simulate
// mode gets an engine over in-process fakes and skips all infrastructure.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Clock: ledger.NewOffsetClock(nil)}

	// --- Asset ledger and oracle backend ---
	backend := strings.ToLower(cfg.Chain.Backend)
	if mode == "simulate" {
		// Simulation never touches a chain.
		backend = "memory"
	}

	poolAccount := cfg.Chain.PoolAccount
	switch backend {
	case "memory":
		mem := asset.New(cfg.Chain.PoolAccount)
		deps.MemoryAssets = mem
		deps.Assets = mem

		static := oracle.NewStatic(cfg.Season.TriggerThreshold)
		deps.StaticOracle = static
		deps.Oracle = static
	case "evm":
		keyHex, err := crypto.ResolveKey(crypto.KeySource{
			RawHex:     cfg.Wallet.PrivateKey,
			WalletPath: cfg.Wallet.WalletPath,
			Password:   cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
		}

		client, err := chain.Dial(ctx, chain.ClientConfig{
			RPCURL:        cfg.Chain.RPCURL,
			ChainID:       cfg.Chain.ChainID,
			PrivateKeyHex: keyHex,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain: %w", err)
		}
		closers = append(closers, client.Close)

		erc20, err := chain.NewERC20Ledger(client, cfg.Chain.TokenAddress)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: erc20 ledger: %w", err)
		}
		deps.Assets = erc20
		poolAccount = client.PoolAccount()

		agg, err := chain.NewAggregatorOracle(client, cfg.Chain.FeedAddress)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: aggregator oracle: %w", err)
		}
		deps.Oracle = agg
	default:
		cleanup()
		return nil, nil, fmt.Errorf("wire: unknown chain backend %q", cfg.Chain.Backend)
	}

	engine, err := ledger.New(ledger.Config{
		Window:           cfg.Season.Window.Duration,
		PayoutMultiplier: cfg.Season.PayoutMultiplier,
		TriggerThreshold: cfg.Season.TriggerThreshold,
		Admin:            cfg.Season.Admin,
		PoolAccount:      poolAccount,
		InitialPremium:   cfg.Season.InitialPremium,
	}, deps.Clock, deps.Assets, deps.Oracle, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: engine: %w", err)
	}
	deps.Engine = engine

	// --- PostgreSQL ---
	if needsPostgres(mode) {
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
		deps.PgClient = pgClient
		deps.SeasonStore = postgres.NewSeasonStore(pool)
		deps.PolicyStore = postgres.NewPolicyStore(pool)
		deps.VaultStore = postgres.NewVaultStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	}

	// --- Redis ---
	if needsRedis(mode) {
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

		deps.RedisClient = redisClient
		deps.ReadingCache = redis.NewReadingCache(redisClient, cfg.Oracle.CacheTTL.Duration)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 (only when season archiving is on) ---
	if cfg.Season.ArchiveEnabled && needsPostgres(mode) {
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

		writer := s3blob.NewWriter(s3Client)
		deps.BlobWriter = writer
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			writer,
			deps.SeasonStore,
			deps.PolicyStore,
			deps.VaultStore,
			deps.AuditStore,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
