package domain

// VaultPosition is an investor's share balance in the pooled vault. Shares
// are global, not season-scoped: they represent a fraction of whatever the
// pool currently holds, not a fixed asset amount. The redeemable value of a
// position is shares * poolBalance / totalShares, recomputed at redemption
// time; that repricing is what makes investors the residual risk-bearers.
type VaultPosition struct {
	Investor string `json:"investor"`
	Shares   int64  `json:"shares"`
}

// PoolSnapshot is a point-in-time view of the commingled asset pool used by
// queries and events.
type PoolSnapshot struct {
	Balance     int64 `json:"balance"`
	TotalShares int64 `json:"total_shares"`
}
