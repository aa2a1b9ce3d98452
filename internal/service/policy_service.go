package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cropshield/cropshield/internal/domain"
	"github.com/cropshield/cropshield/internal/ledger"
)

// PolicyService handles coverage purchases and claim settlement.
type PolicyService struct {
	engine   *ledger.Engine
	policies domain.PolicyStore
	seasons  domain.SeasonStore
	recorder *Recorder
	logger   *slog.Logger
}

// NewPolicyService creates a PolicyService. policies and seasons may be nil
// when persistence is not configured.
func NewPolicyService(
	engine *ledger.Engine,
	policies domain.PolicyStore,
	seasons domain.SeasonStore,
	recorder *Recorder,
	logger *slog.Logger,
) *PolicyService {
	return &PolicyService{
		engine:   engine,
		policies: policies,
		seasons:  seasons,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "policy_service")),
	}
}

// Buy purchases units of coverage for holder in the current season.
func (s *PolicyService) Buy(ctx context.Context, holder string, units int64) (domain.PolicyBought, error) {
	evt, err := s.engine.BuyPolicy(ctx, holder, units)
	if err != nil {
		return domain.PolicyBought{}, err
	}

	s.persistHolding(ctx, evt.SeasonID, holder)
	s.persistSeason(ctx, evt.SeasonID)

	s.recorder.Record(ctx, domain.EventPolicyBought, evt,
		"Policy bought",
		fmt.Sprintf("%s bought %d units in season %d for %d.",
			fmtAccount(holder), evt.Units, evt.SeasonID, evt.TotalPremium),
	)
	return evt, nil
}

// Claim settles holder's coverage for the current season if the trigger
// condition holds.
func (s *PolicyService) Claim(ctx context.Context, holder string) (domain.ClaimMade, error) {
	evt, err := s.engine.ClaimPolicies(ctx, holder)
	if err != nil {
		return domain.ClaimMade{}, err
	}

	s.persistHolding(ctx, evt.SeasonID, holder)

	s.recorder.Record(ctx, domain.EventClaimMade, evt,
		"Claim paid",
		fmt.Sprintf("%s claimed %d for %d units in season %d (oracle %d).",
			fmtAccount(holder), evt.TotalPayout, evt.Units, evt.SeasonID, evt.OracleValue),
	)
	return evt, nil
}

// UnitBalance returns holder's units for a season.
func (s *PolicyService) UnitBalance(seasonID uint64, holder string) (int64, error) {
	return s.engine.UnitBalance(seasonID, holder)
}

// SeasonHoldings returns all holdings of a season.
func (s *PolicyService) SeasonHoldings(seasonID uint64) ([]domain.PolicyHolding, error) {
	return s.engine.SeasonHoldings(seasonID)
}

// persistHolding writes the engine's view of one holding through to the
// store. A settled claim persists as a zero-unit row.
func (s *PolicyService) persistHolding(ctx context.Context, seasonID uint64, holder string) {
	if s.policies == nil {
		return
	}
	units, err := s.engine.UnitBalance(seasonID, holder)
	if err != nil {
		return
	}
	h := domain.PolicyHolding{SeasonID: seasonID, Holder: holder, Units: units}
	if err := s.policies.Upsert(ctx, h); err != nil {
		s.logger.WarnContext(ctx, "persist holding failed",
			slog.Uint64("season_id", seasonID),
			slog.String("holder", holder),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PolicyService) persistSeason(ctx context.Context, id uint64) {
	if s.seasons == nil {
		return
	}
	season, err := s.engine.SeasonByID(id)
	if err != nil {
		return
	}
	if err := s.seasons.Upsert(ctx, season); err != nil {
		s.logger.WarnContext(ctx, "persist season failed",
			slog.Uint64("season_id", id),
			slog.String("error", err.Error()),
		)
	}
}
