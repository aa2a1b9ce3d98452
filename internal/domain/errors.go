package domain

import "errors"

var (
	// Validation
	ErrInvalidAmount = errors.New("invalid amount")

	// Authorization
	ErrUnauthorized = errors.New("unauthorized")

	// Phase violations
	ErrNotActivePeriod   = errors.New("not in active period")
	ErrNotClaimPeriod    = errors.New("not in claim period")
	ErrNotWithdrawPeriod = errors.New("not in withdraw period")
	ErrNotFinished       = errors.New("season not finished")
	ErrSeasonNotActive   = errors.New("season not open for deposits")

	// Eligibility violations
	ErrConditionNotMet   = errors.New("trigger condition not met")
	ErrNoPoliciesToClaim = errors.New("no policies to claim")

	// Resource violations
	ErrInsufficientFunds  = errors.New("insufficient pool funds")
	ErrInsufficientShares = errors.New("insufficient share balance")
	ErrNoInvestorCapital  = errors.New("no investor capital in pool")

	// Transfer failures, propagated from the asset ledger.
	ErrTransferFailed = errors.New("asset transfer failed")

	// Infrastructure
	ErrNotFound   = errors.New("not found")
	ErrFixedClock = errors.New("clock is not adjustable")
	ErrLockHeld   = errors.New("lock already held")
)
