package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cropshield/cropshield/internal/domain"
)

// Config holds the fund parameters the engine is constructed with. All of
// them are fixed for the lifetime of the process; per-season premium changes
// go through StartNewSeason.
type Config struct {
	// Window is the fixed phase width w. Each season spans 4w: active,
	// inactive, claim, and withdraw each last one window.
	Window time.Duration

	// PayoutMultiplier derives the payout per unit from the premium per
	// unit (payout = premium * multiplier).
	PayoutMultiplier int64

	// TriggerThreshold is the strict upper bound on the oracle value for
	// claim eligibility: a claim succeeds only while value < threshold.
	TriggerThreshold int64

	// Admin is the only identity allowed to start seasons and advance the
	// virtual clock.
	Admin string

	// PoolAccount is the asset-ledger account holding the commingled pool.
	PoolAccount string

	// InitialPremium is the premium per unit of season 1, created at
	// engine construction.
	InitialPremium int64
}

// seasonState pairs a season record with its per-holder unit balances.
type seasonState struct {
	season   domain.Season
	holdings map[string]int64
}

// Engine is the season lifecycle and pooled-accounting core. It owns the
// season registry, the per-season policy holdings, and the vault share
// ledger; the asset pool itself lives in the external AssetLedger under
// cfg.PoolAccount.
//
// Every exported method locks the engine mutex for its full duration, so
// operations are serial and atomic-per-call. Operations that move value out
// of the pool debit the internal ledgers before invoking the external
// transfer and roll the debit back if the transfer fails.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	clock  Clock
	asset  domain.AssetLedger
	oracle domain.TriggerOracle
	logger *slog.Logger

	seasons     []*seasonState // seasons[i] holds season i+1; ids start at 1
	positions   map[string]int64
	totalShares int64
}

// New validates cfg and creates an Engine with season 1 already open. The
// first season's boundary is now + 2*window, so it begins in the active
// phase.
func New(cfg Config, clock Clock, asset domain.AssetLedger, oracle domain.TriggerOracle, logger *slog.Logger) (*Engine, error) {
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("ledger: window must be positive")
	}
	if cfg.PayoutMultiplier <= 0 {
		return nil, fmt.Errorf("ledger: payout multiplier must be positive")
	}
	if cfg.InitialPremium <= 0 {
		return nil, fmt.Errorf("ledger: initial premium must be positive")
	}
	if cfg.Admin == "" {
		return nil, fmt.Errorf("ledger: admin account is required")
	}
	if cfg.PoolAccount == "" {
		return nil, fmt.Errorf("ledger: pool account is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}

	e := &Engine{
		cfg:       cfg,
		clock:     clock,
		asset:     asset,
		oracle:    oracle,
		logger:    logger.With(slog.String("component", "ledger")),
		positions: make(map[string]int64),
	}
	e.openSeason(cfg.InitialPremium)
	return e, nil
}

// openSeason appends a fresh season with the given premium. Caller must hold
// the mutex (or be the constructor).
func (e *Engine) openSeason(premium int64) *seasonState {
	now := e.clock.Now()
	s := &seasonState{
		season: domain.Season{
			ID:             uint64(len(e.seasons) + 1),
			PremiumPerUnit: premium,
			PayoutPerUnit:  premium * e.cfg.PayoutMultiplier,
			CreatedAt:      now,
			Boundary:       now.Add(2 * e.cfg.Window),
		},
		holdings: make(map[string]int64),
	}
	e.seasons = append(e.seasons, s)
	return s
}

// current returns the latest season state. At least one season always
// exists.
func (e *Engine) current() *seasonState {
	return e.seasons[len(e.seasons)-1]
}

// phase computes the current season's phase at the engine clock's now.
// Caller must hold the mutex.
func (e *Engine) phase() domain.Phase {
	cur := e.current().season
	return PhaseAt(e.clock.Now(), cur.Boundary, e.cfg.Window)
}

// poolBalance reads the pool account balance from the asset ledger.
func (e *Engine) poolBalance(ctx context.Context) (int64, error) {
	bal, err := e.asset.BalanceOf(ctx, e.cfg.PoolAccount)
	if err != nil {
		return 0, fmt.Errorf("ledger: pool balance: %w", err)
	}
	return bal, nil
}

// isAdmin reports whether caller is the configured admin identity.
func (e *Engine) isAdmin(caller string) bool {
	return caller == e.cfg.Admin
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// CurrentSeason returns a copy of the latest season record.
func (e *Engine) CurrentSeason() domain.Season {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current().season
}

// CurrentPhase returns the phase of the latest season at the current time.
func (e *Engine) CurrentPhase() domain.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase()
}

// SeasonByID returns a historical or current season record.
func (e *Engine) SeasonByID(id uint64) (domain.Season, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id < 1 || id > uint64(len(e.seasons)) {
		return domain.Season{}, fmt.Errorf("ledger: season %d: %w", id, domain.ErrNotFound)
	}
	return e.seasons[id-1].season, nil
}

// UnitBalance returns holder's coverage-unit balance for the given season.
// Unknown holders have a zero balance; an unknown season is an error.
func (e *Engine) UnitBalance(seasonID uint64, holder string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seasonID < 1 || seasonID > uint64(len(e.seasons)) {
		return 0, fmt.Errorf("ledger: season %d: %w", seasonID, domain.ErrNotFound)
	}
	return e.seasons[seasonID-1].holdings[holder], nil
}

// SeasonHoldings returns all non-zero holdings of a season.
func (e *Engine) SeasonHoldings(seasonID uint64) ([]domain.PolicyHolding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seasonID < 1 || seasonID > uint64(len(e.seasons)) {
		return nil, fmt.Errorf("ledger: season %d: %w", seasonID, domain.ErrNotFound)
	}
	s := e.seasons[seasonID-1]
	out := make([]domain.PolicyHolding, 0, len(s.holdings))
	for holder, units := range s.holdings {
		out = append(out, domain.PolicyHolding{SeasonID: seasonID, Holder: holder, Units: units})
	}
	return out, nil
}

// Position returns investor's current share balance.
func (e *Engine) Position(investor string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positions[investor]
}

// Positions returns all non-zero vault positions.
func (e *Engine) Positions() []domain.VaultPosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.VaultPosition, 0, len(e.positions))
	for investor, shares := range e.positions {
		out = append(out, domain.VaultPosition{Investor: investor, Shares: shares})
	}
	return out
}

// TotalShares returns the vault's total share supply.
func (e *Engine) TotalShares() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalShares
}

// Pool returns the pool balance and total share supply.
func (e *Engine) Pool(ctx context.Context) (domain.PoolSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bal, err := e.poolBalance(ctx)
	if err != nil {
		return domain.PoolSnapshot{}, err
	}
	return domain.PoolSnapshot{Balance: bal, TotalShares: e.totalShares}, nil
}

// RedeemableValue estimates what investor would receive redeeming their full
// position at the current pool balance: shares * balance / totalShares,
// rounded down. It is zero when the investor holds no shares.
func (e *Engine) RedeemableValue(ctx context.Context, investor string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	shares := e.positions[investor]
	if shares == 0 || e.totalShares == 0 {
		return 0, nil
	}
	bal, err := e.poolBalance(ctx)
	if err != nil {
		return 0, err
	}
	return mulDiv(shares, bal, e.totalShares), nil
}

// Admin returns the configured admin identity.
func (e *Engine) Admin() string {
	return e.cfg.Admin
}

// TriggerThreshold returns the configured claim-eligibility threshold.
func (e *Engine) TriggerThreshold() int64 {
	return e.cfg.TriggerThreshold
}
