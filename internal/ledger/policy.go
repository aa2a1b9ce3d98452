package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cropshield/cropshield/internal/domain"
)

// BuyPolicy sells units of coverage in the current season to holder for
// premium * units, pulled from the holder's asset account into the pool.
//
// Purchases are rejected while the vault has no shares outstanding: premiums
// arriving in a shareless pool would otherwise be silently folded into the
// first depositor's basis (or divide a later deposit by zero), so the fund
// requires at least one investor before it sells coverage.
func (e *Engine) BuyPolicy(ctx context.Context, holder string, units int64) (domain.PolicyBought, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if units <= 0 {
		return domain.PolicyBought{}, fmt.Errorf("ledger: buy policy: %w", domain.ErrInvalidAmount)
	}
	if e.phase() != domain.PhaseActive {
		return domain.PolicyBought{}, fmt.Errorf("ledger: buy policy: %w", domain.ErrNotActivePeriod)
	}
	if e.totalShares == 0 {
		return domain.PolicyBought{}, fmt.Errorf("ledger: buy policy: %w", domain.ErrNoInvestorCapital)
	}

	s := e.current()
	cost := s.season.PremiumPerUnit * units

	if err := e.asset.TransferFrom(ctx, holder, cost); err != nil {
		return domain.PolicyBought{}, fmt.Errorf("ledger: buy policy: %w: %v", domain.ErrTransferFailed, err)
	}

	s.holdings[holder] += units
	s.season.TotalUnitsSold += units

	bal, err := e.poolBalance(ctx)
	if err != nil {
		// The purchase itself already settled; surface the balance read
		// failure without unwinding the sale.
		bal = -1
	}

	e.logger.InfoContext(ctx, "policy bought",
		slog.String("holder", holder),
		slog.Uint64("season_id", s.season.ID),
		slog.Int64("units", units),
		slog.Int64("total_premium", cost),
	)

	return domain.PolicyBought{
		Holder:       holder,
		SeasonID:     s.season.ID,
		Units:        units,
		TotalPremium: cost,
		PoolBalance:  bal,
	}, nil
}

// ClaimPolicies settles holder's entire unit balance for the current season.
// The claim succeeds only during the claim phase, only while the oracle
// value is strictly below the trigger threshold, and only if the pool can
// cover payoutPerUnit * units.
//
// Eligibility is evaluated exactly once against the reading taken here; a
// later oracle reversal does not claw back a settled payout. The holding is
// zeroed before the outbound transfer so a reentrant call observes the
// already-burned balance; if the transfer fails the holding is restored and
// the ledger is unchanged.
func (e *Engine) ClaimPolicies(ctx context.Context, holder string) (domain.ClaimMade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase() != domain.PhaseClaim {
		return domain.ClaimMade{}, fmt.Errorf("ledger: claim policies: %w", domain.ErrNotClaimPeriod)
	}

	s := e.current()
	units := s.holdings[holder]
	if units <= 0 {
		return domain.ClaimMade{}, fmt.Errorf("ledger: claim policies: %w", domain.ErrNoPoliciesToClaim)
	}

	reading, err := e.oracle.LatestReading(ctx)
	if err != nil {
		return domain.ClaimMade{}, fmt.Errorf("ledger: claim policies: oracle reading: %w", err)
	}
	if reading.Value >= e.cfg.TriggerThreshold {
		return domain.ClaimMade{}, fmt.Errorf("ledger: claim policies: value %d >= threshold %d: %w",
			reading.Value, e.cfg.TriggerThreshold, domain.ErrConditionNotMet)
	}

	payout := s.season.PayoutPerUnit * units

	bal, err := e.poolBalance(ctx)
	if err != nil {
		return domain.ClaimMade{}, fmt.Errorf("ledger: claim policies: %w", err)
	}
	if bal < payout {
		return domain.ClaimMade{}, fmt.Errorf("ledger: claim policies: %w", domain.ErrInsufficientFunds)
	}

	// Burn the holding before moving value out of the pool.
	delete(s.holdings, holder)

	if err := e.asset.Transfer(ctx, holder, payout); err != nil {
		s.holdings[holder] = units
		return domain.ClaimMade{}, fmt.Errorf("ledger: claim policies: %w: %v", domain.ErrTransferFailed, err)
	}

	e.logger.InfoContext(ctx, "claim settled",
		slog.String("holder", holder),
		slog.Uint64("season_id", s.season.ID),
		slog.Int64("units", units),
		slog.Int64("total_payout", payout),
		slog.Int64("oracle_value", reading.Value),
	)

	return domain.ClaimMade{
		Holder:      holder,
		SeasonID:    s.season.ID,
		Units:       units,
		TotalPayout: payout,
		PoolBalance: bal - payout,
		OracleRound: reading.RoundID,
		OracleValue: reading.Value,
	}, nil
}
