package bin

import "errors"

var (
	ErrBinNotFound   = errors.New("bin not found")
	ErrInvalidRadius = errors.New("radius must be greater than zero")
	ErrNameRequired  = errors.New("bin name is required")
)
