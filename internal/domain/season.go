// Package domain defines the core types, errors, and collaborator interfaces
// shared by every cropshield component. It has no dependencies outside the
// standard library so that the ledger engine, stores, caches, and transport
// layers can all agree on one vocabulary.
package domain

import "time"

// Phase is one of the five sequential lifecycle states of a season. It is
// never stored; it is always recomputed from the clock and the season
// boundary so that phase and wall-clock time cannot desynchronize.
type Phase int

const (
	PhaseActive Phase = iota
	PhaseInactive
	PhaseClaim
	PhaseWithdraw
	PhaseFinished
)

// String returns the lowercase phase name used in logs, events, and the API.
func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseInactive:
		return "inactive"
	case PhaseClaim:
		return "claim"
	case PhaseWithdraw:
		return "withdraw"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Season is one bounded coverage period. Identity is the monotonically
// increasing ID; ids start at 1. A season is immutable once created except
// for TotalUnitsSold, which only increases. Historical seasons remain
// queryable forever.
type Season struct {
	ID             uint64    `json:"id"`
	PremiumPerUnit int64     `json:"premium_per_unit"`
	PayoutPerUnit  int64     `json:"payout_per_unit"`
	TotalUnitsSold int64     `json:"total_units_sold"`
	CreatedAt      time.Time `json:"created_at"`
	// Boundary is the "season over" reference instant T. Phase is a pure
	// function of the current time relative to it.
	Boundary time.Time `json:"boundary"`
}

// PolicyHolding is a farmer's coverage-unit balance within one season. It is
// created on purchase and burned in full on a successful claim.
type PolicyHolding struct {
	SeasonID uint64 `json:"season_id"`
	Holder   string `json:"holder"`
	Units    int64  `json:"units"`
}
