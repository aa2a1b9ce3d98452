package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cropshield/cropshield/internal/domain"
)

// StartNewSeason rolls the fund into a new season with the given premium per
// unit. It is legal only for the admin and only while the current season is
// finished. Vault positions carry across seasons; policy holdings do not
// (each season has a fresh ledger).
func (e *Engine) StartNewSeason(ctx context.Context, caller string, premium int64) (domain.NewSeasonStarted, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isAdmin(caller) {
		return domain.NewSeasonStarted{}, fmt.Errorf("ledger: start new season: %w", domain.ErrUnauthorized)
	}
	if premium <= 0 {
		return domain.NewSeasonStarted{}, fmt.Errorf("ledger: start new season: %w", domain.ErrInvalidAmount)
	}
	if e.phase() != domain.PhaseFinished {
		return domain.NewSeasonStarted{}, fmt.Errorf("ledger: start new season: %w", domain.ErrNotFinished)
	}

	s := e.openSeason(premium)

	e.logger.InfoContext(ctx, "season started",
		slog.Uint64("season_id", s.season.ID),
		slog.Int64("premium_per_unit", s.season.PremiumPerUnit),
		slog.Int64("payout_per_unit", s.season.PayoutPerUnit),
		slog.Time("boundary", s.season.Boundary),
	)

	return domain.NewSeasonStarted{
		SeasonID:       s.season.ID,
		PremiumPerUnit: s.season.PremiumPerUnit,
		PayoutPerUnit:  s.season.PayoutPerUnit,
		Boundary:       s.season.Boundary,
	}, nil
}

// AdvancePhase fast-forwards the virtual clock to the first instant of the
// next phase. It is an operational escape hatch for test and demo
// deployments: it requires the admin identity and an adjustable clock.
// Once the season is finished, further calls are no-ops.
func (e *Engine) AdvancePhase(ctx context.Context, caller string) (domain.PhaseAdvanced, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isAdmin(caller) {
		return domain.PhaseAdvanced{}, fmt.Errorf("ledger: advance phase: %w", domain.ErrUnauthorized)
	}

	cur := e.current().season
	now := e.clock.Now()

	next, ok := nextPhaseStart(now, cur.Boundary, e.cfg.Window)
	if !ok {
		// Already finished; repeated calls are no-ops.
		return domain.PhaseAdvanced{
			SeasonID: cur.ID,
			Phase:    domain.PhaseFinished.String(),
			At:       now,
		}, nil
	}

	adj, ok := e.clock.(AdjustableClock)
	if !ok {
		return domain.PhaseAdvanced{}, fmt.Errorf("ledger: advance phase: %w", domain.ErrFixedClock)
	}
	adj.Advance(next.Sub(now))

	phase := e.phase()
	e.logger.InfoContext(ctx, "phase advanced",
		slog.Uint64("season_id", cur.ID),
		slog.String("phase", phase.String()),
	)

	return domain.PhaseAdvanced{
		SeasonID: cur.ID,
		Phase:    phase.String(),
		At:       e.clock.Now(),
	}, nil
}
