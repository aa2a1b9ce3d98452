package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/cropshield/cropshield/internal/domain"
)

// Deposit mints vault shares to investor in exchange for amount of the pool
// asset. Deposits are open during the active and inactive phases.
//
// Share pricing: the first deposit (total shares == 0) mints 1:1. Because
// BuyPolicy refuses to sell coverage into a shareless pool, the bootstrap
// branch only ever prices against an empty pool. Later deposits mint
// amount * totalShares / poolBalanceBefore, rounded down.
func (e *Engine) Deposit(ctx context.Context, investor string, amount int64) (domain.InvestmentMade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 {
		return domain.InvestmentMade{}, fmt.Errorf("ledger: deposit: %w", domain.ErrInvalidAmount)
	}
	if p := e.phase(); p != domain.PhaseActive && p != domain.PhaseInactive {
		return domain.InvestmentMade{}, fmt.Errorf("ledger: deposit: %w", domain.ErrSeasonNotActive)
	}

	var minted int64
	if e.totalShares == 0 {
		minted = amount
	} else {
		before, err := e.poolBalance(ctx)
		if err != nil {
			return domain.InvestmentMade{}, fmt.Errorf("ledger: deposit: %w", err)
		}
		minted = mulDiv(amount, e.totalShares, before)
		if minted <= 0 {
			return domain.InvestmentMade{}, fmt.Errorf("ledger: deposit: %w", domain.ErrInvalidAmount)
		}
	}

	if err := e.asset.TransferFrom(ctx, investor, amount); err != nil {
		return domain.InvestmentMade{}, fmt.Errorf("ledger: deposit: %w: %v", domain.ErrTransferFailed, err)
	}

	e.positions[investor] += minted
	e.totalShares += minted

	bal, err := e.poolBalance(ctx)
	if err != nil {
		bal = -1
	}

	e.logger.InfoContext(ctx, "investment made",
		slog.String("investor", investor),
		slog.Int64("amount", amount),
		slog.Int64("shares_minted", minted),
		slog.Int64("total_shares", e.totalShares),
	)

	return domain.InvestmentMade{
		Investor:     investor,
		Amount:       amount,
		SharesMinted: minted,
		TotalShares:  e.totalShares,
		PoolBalance:  bal,
	}, nil
}

// Redeem burns shares of investor's position for a proportional slice of the
// pool: shares * poolBalance / totalShares, rounded down so residual dust
// stays in the pool. Redemptions are open only during the withdraw phase.
//
// Shares are debited before the outbound transfer; a failed transfer
// restores them, leaving the ledger unchanged.
func (e *Engine) Redeem(ctx context.Context, investor string, shares int64) (domain.InvestmentWithdrawn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if shares <= 0 {
		return domain.InvestmentWithdrawn{}, fmt.Errorf("ledger: redeem: %w", domain.ErrInvalidAmount)
	}
	if e.phase() != domain.PhaseWithdraw {
		return domain.InvestmentWithdrawn{}, fmt.Errorf("ledger: redeem: %w", domain.ErrNotWithdrawPeriod)
	}
	held := e.positions[investor]
	if shares > held {
		return domain.InvestmentWithdrawn{}, fmt.Errorf("ledger: redeem: %w", domain.ErrInsufficientShares)
	}

	bal, err := e.poolBalance(ctx)
	if err != nil {
		return domain.InvestmentWithdrawn{}, fmt.Errorf("ledger: redeem: %w", err)
	}

	payout := mulDiv(shares, bal, e.totalShares)

	// Debit the share ledger before moving value out of the pool.
	e.positions[investor] = held - shares
	if e.positions[investor] == 0 {
		delete(e.positions, investor)
	}
	e.totalShares -= shares

	if payout > 0 {
		if err := e.asset.Transfer(ctx, investor, payout); err != nil {
			e.positions[investor] = held
			e.totalShares += shares
			return domain.InvestmentWithdrawn{}, fmt.Errorf("ledger: redeem: %w: %v", domain.ErrTransferFailed, err)
		}
	}

	e.logger.InfoContext(ctx, "investment withdrawn",
		slog.String("investor", investor),
		slog.Int64("shares_burned", shares),
		slog.Int64("amount", payout),
		slog.Int64("total_shares", e.totalShares),
	)

	return domain.InvestmentWithdrawn{
		Investor:     investor,
		SharesBurned: shares,
		Amount:       payout,
		TotalShares:  e.totalShares,
		PoolBalance:  bal - payout,
	}, nil
}

// mulDiv computes a*b/c with the intermediate product widened to avoid int64
// overflow. Division rounds toward zero; inputs are non-negative here so the
// effect is rounding down.
func mulDiv(a, b, c int64) int64 {
	p := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	p.Div(p, big.NewInt(c))
	return p.Int64()
}
