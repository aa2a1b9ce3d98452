package domain

import "context"

// AssetLedger abstracts the fungible asset backing the pool. Accounts are
// opaque strings (hex addresses on chain, plain names in memory); amounts are
// int64 base units of the asset's smallest denomination.
//
// The pool balance is defined as BalanceOf(pool account). Implementations
// must make a failed transfer observable as an error so callers can keep
// their ledgers and the asset balance consistent.
type AssetLedger interface {
	// Transfer moves amount from the pool account to the given account.
	Transfer(ctx context.Context, to string, amount int64) error

	// TransferFrom moves amount from the given account into the pool
	// account. The source account must have approved the pool as spender.
	TransferFrom(ctx context.Context, from string, amount int64) error

	// BalanceOf returns the asset balance of an account.
	BalanceOf(ctx context.Context, account string) (int64, error)
}
