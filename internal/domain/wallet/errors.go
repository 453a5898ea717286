package wallet

import "errors"

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientPoints = errors.New("insufficient points balance")
	ErrInsufficientCash   = errors.New("insufficient cash balance")
	ErrDuplicateReference = errors.New("duplicate ledger reference")
)
