package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cropshield/cropshield/internal/server"
	"github.com/cropshield/cropshield/internal/server/handler"
	"github.com/cropshield/cropshield/internal/server/ws"
	"github.com/cropshield/cropshield/internal/service"
)

// services bundles the three domain services built on top of the engine.
type services struct {
	seasons  *service.SeasonService
	policies *service.PolicyService
	vault    *service.VaultService
}

func (a *App) buildServices(deps *Dependencies) *services {
	recorder := service.NewRecorder(deps.AuditStore, deps.SignalBus, deps.Notifier, a.logger)
	return &services{
		seasons: service.NewSeasonService(
			deps.Engine, deps.SeasonStore, deps.LockManager, recorder,
			deps.Archiver, a.cfg.Season.Window.Duration, a.logger,
		),
		policies: service.NewPolicyService(
			deps.Engine, deps.PolicyStore, deps.SeasonStore, recorder, a.logger,
		),
		vault: service.NewVaultService(deps.Engine, deps.VaultStore, recorder, a.logger),
	}
}

// ServerMode serves the HTTP API and the WebSocket event feed, with the
// oracle poller keeping the reading cache warm.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startOraclePoller(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, a.buildServices(deps))
	return g.Wait()
}

// FullMode is server mode plus the archive reconciler, which backfills any
// finished season missing its object-storage snapshot.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startOraclePoller(ctx, g, deps)

	if deps.Archiver != nil && deps.BlobReader != nil && deps.SeasonStore != nil {
		reconciler := service.NewArchiveReconciler(
			deps.SeasonStore, deps.BlobReader, deps.Archiver,
			a.cfg.Season.Window.Duration, a.cfg.Oracle.PollInterval.Duration, a.logger,
		)
		g.Go(func() error {
			err := reconciler.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archive reconciler: %w", err)
		})
	}

	a.startHTTPServer(ctx, g, deps, a.buildServices(deps))
	return g.Wait()
}

func (a *App) startOraclePoller(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	poller := service.NewOraclePoller(
		deps.Oracle, deps.ReadingCache, deps.SignalBus,
		a.cfg.Oracle.PollInterval.Duration, a.logger,
	)
	g.Go(func() error {
		err := poller.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("oracle poller: %w", err)
	})
}

// SimulateMode drives one full season lifecycle against the in-process asset
// ledger and a settable oracle, then returns. It exists to demonstrate and
// sanity-check the fund's mechanics end to end without any infrastructure.
func (a *App) SimulateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting simulation")

	if deps.MemoryAssets == nil || deps.StaticOracle == nil {
		return fmt.Errorf("simulate mode requires the memory chain backend")
	}

	svc := a.buildServices(deps)
	admin := a.cfg.Season.Admin
	premium := a.cfg.Season.InitialPremium

	fund := func(account string, amount int64) {
		deps.MemoryAssets.Mint(account, amount)
		deps.MemoryAssets.Approve(account, amount)
	}
	fund("alice", 100*premium)
	fund("bob", 50*premium)
	fund("carol", 10*premium)

	if _, err := svc.vault.Deposit(ctx, "alice", 100*premium); err != nil {
		return fmt.Errorf("simulate: alice deposit: %w", err)
	}
	if _, err := svc.vault.Deposit(ctx, "bob", 50*premium); err != nil {
		return fmt.Errorf("simulate: bob deposit: %w", err)
	}

	bought, err := svc.policies.Buy(ctx, "carol", 3)
	if err != nil {
		return fmt.Errorf("simulate: carol buy: %w", err)
	}
	a.logger.InfoContext(ctx, "coverage bought",
		slog.Int64("units", bought.Units),
		slog.Int64("total_premium", bought.TotalPremium),
	)

	// active -> inactive -> claim
	for i := 0; i < 2; i++ {
		if _, err := svc.seasons.AdvancePhase(ctx, admin); err != nil {
			return fmt.Errorf("simulate: advance phase: %w", err)
		}
	}

	// A drought reading below the threshold makes claims pay out.
	deps.StaticOracle.Set(a.cfg.Season.TriggerThreshold - 1)

	claimed, err := svc.policies.Claim(ctx, "carol")
	if err != nil {
		return fmt.Errorf("simulate: carol claim: %w", err)
	}
	a.logger.InfoContext(ctx, "claim settled",
		slog.Int64("payout", claimed.TotalPayout),
		slog.Int64("oracle_value", claimed.OracleValue),
	)

	// claim -> withdraw
	if _, err := svc.seasons.AdvancePhase(ctx, admin); err != nil {
		return fmt.Errorf("simulate: advance to withdraw: %w", err)
	}

	redeemed, err := svc.vault.Redeem(ctx, "alice", svc.vault.Position("alice"))
	if err != nil {
		return fmt.Errorf("simulate: alice redeem: %w", err)
	}
	a.logger.InfoContext(ctx, "investment withdrawn",
		slog.Int64("shares", redeemed.SharesBurned),
		slog.Int64("amount", redeemed.Amount),
	)

	// withdraw -> finished, then roll into season 2.
	if _, err := svc.seasons.AdvancePhase(ctx, admin); err != nil {
		return fmt.Errorf("simulate: advance to finished: %w", err)
	}
	rolled, err := svc.seasons.StartNewSeason(ctx, admin, 2*premium)
	if err != nil {
		return fmt.Errorf("simulate: start new season: %w", err)
	}

	pool, err := svc.vault.Pool(ctx)
	if err != nil {
		return fmt.Errorf("simulate: pool snapshot: %w", err)
	}
	a.logger.InfoContext(ctx, "simulation finished",
		slog.Uint64("season", rolled.SeasonID),
		slog.Int64("pool_balance", pool.Balance),
		slog.Int64("total_shares", pool.TotalShares),
	)
	return nil
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// errgroup.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svc *services) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "http server disabled")
		return
	}

	healthDeps := make(map[string]handler.Pinger)
	if deps.PgClient != nil {
		healthDeps["postgres"] = deps.PgClient.Pool()
	}
	if deps.RedisClient != nil {
		healthDeps["redis"] = deps.RedisClient
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(healthDeps, a.logger),
		Season: handler.NewSeasonHandler(svc.seasons, svc.policies, a.cfg.Season.Admin, a.logger),
		Policy: handler.NewPolicyHandler(svc.policies, a.logger),
		Vault:  handler.NewVaultHandler(svc.vault, a.logger),
		Oracle: handler.NewOracleHandler(deps.ReadingCache, deps.Oracle, a.logger),
	}
	if deps.AuditStore != nil {
		handlers.Audit = handler.NewAuditHandler(deps.AuditStore, a.logger)
	}
	if deps.BlobReader != nil {
		handlers.Archive = handler.NewArchiveHandler(deps.BlobReader, a.logger)
	}
	if deps.SignalBus != nil {
		hub := ws.NewHub(deps.SignalBus, originChecker(a.cfg.Server.CORSOrigins), a.logger)
		handlers.Hub = hub
		g.Go(func() error {
			err := hub.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ws hub: %w", err)
		})
	}

	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		AdminToken:  a.cfg.Server.AdminToken,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// originChecker relaxes the WebSocket origin check to the configured CORS
// origins. An empty list keeps gorilla's same-origin default.
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
