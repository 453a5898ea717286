package cashout

import (
	"errors"

	"github.com/ecobin/ecobin-api/internal/domain/wallet"
)

var (
	ErrNotFound          = errors.New("cashout request not found")
	ErrInvalidTransition = errors.New("invalid cashout status transition")
	ErrAlreadyTerminal   = errors.New("cashout request is already final")
	ErrInvalidStatus     = errors.New("status must be SUCCEEDED, FAILED or NEEDS_INFO")
	ErrBelowMinimum      = errors.New("points below minimum cashout")
	ErrAmountTooSmall    = errors.New("cash amount rounds to zero")
	ErrPayoutFailed      = errors.New("payout provider call failed")

	// ErrInsufficientPoints is the wallet error, re-exported for callers.
	ErrInsufficientPoints = wallet.ErrInsufficientPoints
)
