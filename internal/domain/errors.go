package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrSessionNotFound    = errors.New("conversation not found")
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrApprovalFailed     = errors.New("approval failed")
	ErrWriteRejected      = errors.New("transaction rejected")
	ErrNotClaimable       = errors.New("position not claimable")
	ErrBusy               = errors.New("another operation is in progress")
	ErrLockHeld           = errors.New("lock already held")
	ErrServiceUnavailable = errors.New("suggestion service unavailable")
)
