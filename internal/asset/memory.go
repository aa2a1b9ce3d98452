// Package asset provides an in-memory implementation of the asset ledger for
// simulate mode and tests. It mirrors ERC-20 semantics: balances per account
// and per-account allowances granted to the pool as spender.
package asset

import (
	"context"
	"fmt"
	"sync"
)

// Ledger is an in-memory fungible-asset ledger. The zero value is not
// usable; construct with New.
type Ledger struct {
	mu         sync.Mutex
	pool       string
	balances   map[string]int64
	allowances map[string]int64 // allowance each account has granted the pool
}

// New creates a Ledger whose pool account is poolAccount.
func New(poolAccount string) *Ledger {
	return &Ledger{
		pool:       poolAccount,
		balances:   make(map[string]int64),
		allowances: make(map[string]int64),
	}
}

// Mint credits an account out of thin air. Test and simulation setup only.
func (l *Ledger) Mint(account string, amount int64) {
	l.mu.Lock()
	l.balances[account] += amount
	l.mu.Unlock()
}

// Approve grants the pool permission to pull up to amount from account,
// replacing any prior allowance.
func (l *Ledger) Approve(account string, amount int64) {
	l.mu.Lock()
	l.allowances[account] = amount
	l.mu.Unlock()
}

// Transfer moves amount from the pool account to another account.
func (l *Ledger) Transfer(_ context.Context, to string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return fmt.Errorf("asset: transfer amount must be positive, got %d", amount)
	}
	if l.balances[l.pool] < amount {
		return fmt.Errorf("asset: pool balance %d below transfer amount %d", l.balances[l.pool], amount)
	}
	l.balances[l.pool] -= amount
	l.balances[to] += amount
	return nil
}

// TransferFrom pulls amount from an account into the pool, consuming the
// account's allowance.
func (l *Ledger) TransferFrom(_ context.Context, from string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return fmt.Errorf("asset: transfer amount must be positive, got %d", amount)
	}
	if l.allowances[from] < amount {
		return fmt.Errorf("asset: allowance %d below transfer amount %d", l.allowances[from], amount)
	}
	if l.balances[from] < amount {
		return fmt.Errorf("asset: balance %d below transfer amount %d", l.balances[from], amount)
	}
	l.allowances[from] -= amount
	l.balances[from] -= amount
	l.balances[l.pool] += amount
	return nil
}

// BalanceOf returns an account's balance.
func (l *Ledger) BalanceOf(_ context.Context, account string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}
