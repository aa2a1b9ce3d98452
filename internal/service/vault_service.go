package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cropshield/cropshield/internal/domain"
	"github.com/cropshield/cropshield/internal/ledger"
)

// VaultService handles investor deposits, redemptions, and pool queries.
type VaultService struct {
	engine   *ledger.Engine
	vault    domain.VaultStore
	recorder *Recorder
	logger   *slog.Logger
}

// NewVaultService creates a VaultService. vault may be nil when persistence
// is not configured.
func NewVaultService(
	engine *ledger.Engine,
	vault domain.VaultStore,
	recorder *Recorder,
	logger *slog.Logger,
) *VaultService {
	return &VaultService{
		engine:   engine,
		vault:    vault,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "vault_service")),
	}
}

// Deposit invests amount into the pool, minting shares at the current price.
func (s *VaultService) Deposit(ctx context.Context, investor string, amount int64) (domain.InvestmentMade, error) {
	evt, err := s.engine.Deposit(ctx, investor, amount)
	if err != nil {
		return domain.InvestmentMade{}, err
	}

	s.persistPosition(ctx, investor)

	s.recorder.Record(ctx, domain.EventInvestmentMade, evt,
		"Investment made",
		fmt.Sprintf("%s deposited %d and received %d shares.",
			fmtAccount(investor), evt.Amount, evt.SharesMinted),
	)
	return evt, nil
}

// Redeem burns shares and pays the investor their pro-rata pool slice.
func (s *VaultService) Redeem(ctx context.Context, investor string, shares int64) (domain.InvestmentWithdrawn, error) {
	evt, err := s.engine.Redeem(ctx, investor, shares)
	if err != nil {
		return domain.InvestmentWithdrawn{}, err
	}

	s.persistPosition(ctx, investor)

	s.recorder.Record(ctx, domain.EventInvestmentWithdrawn, evt,
		"Investment withdrawn",
		fmt.Sprintf("%s redeemed %d shares for %d.",
			fmtAccount(investor), evt.SharesBurned, evt.Amount),
	)
	return evt, nil
}

// Position returns investor's share balance.
func (s *VaultService) Position(investor string) int64 {
	return s.engine.Position(investor)
}

// Positions returns all non-zero positions.
func (s *VaultService) Positions() []domain.VaultPosition {
	return s.engine.Positions()
}

// Pool returns the pool balance and total share supply.
func (s *VaultService) Pool(ctx context.Context) (domain.PoolSnapshot, error) {
	return s.engine.Pool(ctx)
}

// RedeemableValue estimates the payout for redeeming investor's full
// position at the current pool balance.
func (s *VaultService) RedeemableValue(ctx context.Context, investor string) (int64, error) {
	return s.engine.RedeemableValue(ctx, investor)
}

// persistPosition writes the engine's view of one position through to the
// store. A full redemption persists as a zero-share row.
func (s *VaultService) persistPosition(ctx context.Context, investor string) {
	if s.vault == nil {
		return
	}
	pos := domain.VaultPosition{Investor: investor, Shares: s.engine.Position(investor)}
	if err := s.vault.Upsert(ctx, pos); err != nil {
		s.logger.WarnContext(ctx, "persist position failed",
			slog.String("investor", investor),
			slog.String("error", err.Error()),
		)
	}
}
