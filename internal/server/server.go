// Package server exposes the fund over HTTP: season, policy, vault, oracle,
// and audit endpoints, plus a WebSocket feed of ledger events.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cropshield/cropshield/internal/server/handler"
	"github.com/cropshield/cropshield/internal/server/middleware"
	"github.com/cropshield/cropshield/internal/server/ws"
)

// Config holds the HTTP listener settings.
type Config struct {
	Port        int
	AdminToken  string
	CORSOrigins []string
}

// Handlers aggregates the route handlers. Archive, Audit, Oracle, and Hub may
// be nil when the backing infrastructure is not configured; their routes are
// simply not registered.
type Handlers struct {
	Health  *handler.HealthHandler
	Season  *handler.SeasonHandler
	Policy  *handler.PolicyHandler
	Vault   *handler.VaultHandler
	Oracle  *handler.OracleHandler
	Audit   *handler.AuditHandler
	Archive *handler.ArchiveHandler
	Hub     *ws.Hub
}

// Server is the HTTP front of the fund.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New wires the routes and middleware chain. Admin mutations sit behind a
// bearer-token check; everything else is public.
func New(cfg Config, h Handlers, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health.Health)

	mux.HandleFunc("GET /api/seasons", h.Season.List)
	mux.HandleFunc("GET /api/seasons/current", h.Season.Current)
	mux.HandleFunc("GET /api/seasons/{id}", h.Season.Get)
	mux.HandleFunc("GET /api/seasons/{id}/holdings", h.Season.Holdings)
	mux.HandleFunc("GET /api/seasons/{id}/holdings/{holder}", h.Policy.Holding)

	mux.HandleFunc("POST /api/policies", h.Policy.Buy)
	mux.HandleFunc("POST /api/claims", h.Policy.Claim)

	mux.HandleFunc("GET /api/vault/positions", h.Vault.Positions)
	mux.HandleFunc("GET /api/vault/positions/{investor}", h.Vault.Position)
	mux.HandleFunc("POST /api/vault/deposits", h.Vault.Deposit)
	mux.HandleFunc("POST /api/vault/redemptions", h.Vault.Redeem)
	mux.HandleFunc("GET /api/pool", h.Vault.Pool)

	if h.Oracle != nil {
		mux.HandleFunc("GET /api/oracle/latest", h.Oracle.Latest)
	}
	if h.Audit != nil {
		mux.HandleFunc("GET /api/audit", h.Audit.List)
	}
	if h.Archive != nil {
		mux.HandleFunc("GET /api/archives", h.Archive.List)
		mux.HandleFunc("GET /api/archives/{id}", h.Archive.Get)
	}
	if h.Hub != nil {
		mux.HandleFunc("GET /ws", h.Hub.HandleWS)
	}

	// Season rollover and phase advance change the fund for everyone, so
	// they require the admin token even though the rest of the API is open.
	admin := middleware.Auth(cfg.AdminToken)
	mux.Handle("POST /api/seasons", admin(http.HandlerFunc(h.Season.Start)))
	mux.Handle("POST /api/seasons/advance", admin(http.HandlerFunc(h.Season.Advance)))

	var root http.Handler = mux
	root = middleware.Logging(logger)(root)
	root = middleware.CORS(cfg.CORSOrigins)(root)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      root,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
