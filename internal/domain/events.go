package domain

import "time"

// Event type names used for signal-bus channels, audit rows, and the
// notifier's event filter.
const (
	EventPolicyBought        = "policy_bought"
	EventClaimMade           = "claim_made"
	EventInvestmentMade      = "investment_made"
	EventInvestmentWithdrawn = "investment_withdrawn"
	EventNewSeasonStarted    = "new_season_started"
	EventPhaseAdvanced       = "phase_advanced"
)

// PolicyBought is emitted after a successful policy purchase.
type PolicyBought struct {
	Holder       string `json:"holder"`
	SeasonID     uint64 `json:"season_id"`
	Units        int64  `json:"units"`
	TotalPremium int64  `json:"total_premium"`
	PoolBalance  int64  `json:"pool_balance"`
}

// ClaimMade is emitted after a successful claim settlement. OracleRound and
// OracleValue record the reading the eligibility decision was made against.
type ClaimMade struct {
	Holder      string `json:"holder"`
	SeasonID    uint64 `json:"season_id"`
	Units       int64  `json:"units"`
	TotalPayout int64  `json:"total_payout"`
	PoolBalance int64  `json:"pool_balance"`
	OracleRound uint64 `json:"oracle_round"`
	OracleValue int64  `json:"oracle_value"`
}

// InvestmentMade is emitted after a successful vault deposit.
type InvestmentMade struct {
	Investor     string `json:"investor"`
	Amount       int64  `json:"amount"`
	SharesMinted int64  `json:"shares_minted"`
	TotalShares  int64  `json:"total_shares"`
	PoolBalance  int64  `json:"pool_balance"`
}

// InvestmentWithdrawn is emitted after a successful vault redemption.
type InvestmentWithdrawn struct {
	Investor     string `json:"investor"`
	SharesBurned int64  `json:"shares_burned"`
	Amount       int64  `json:"amount"`
	TotalShares  int64  `json:"total_shares"`
	PoolBalance  int64  `json:"pool_balance"`
}

// NewSeasonStarted is emitted when the admin rolls the fund into a new season.
type NewSeasonStarted struct {
	SeasonID       uint64    `json:"season_id"`
	PremiumPerUnit int64     `json:"premium_per_unit"`
	PayoutPerUnit  int64     `json:"payout_per_unit"`
	Boundary       time.Time `json:"boundary"`
}

// PhaseAdvanced is emitted when the admin fast-forwards the virtual clock to
// the next phase boundary.
type PhaseAdvanced struct {
	SeasonID uint64    `json:"season_id"`
	Phase    string    `json:"phase"`
	At       time.Time `json:"at"`
}
