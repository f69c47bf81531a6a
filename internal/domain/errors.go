package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrSigningFailed       = errors.New("signing failed")
	ErrLockHeld            = errors.New("lock already held")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("amount exceeds available balance")
	ErrInvalidOutcome      = errors.New("invalid outcome")
	ErrMarketClosed        = errors.New("market is resolved")
	ErrNotClaimable        = errors.New("unstake is still locked")
	ErrNothingPending      = errors.New("nothing pending")
	ErrActionInFlight      = errors.New("another action is in progress for this wallet")
	ErrWalletUnavailable   = errors.New("wallet not connected")
	ErrChain               = errors.New("chain call failed")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrNonceExpired        = errors.New("login nonce expired or unknown")
)
