package submission

import "errors"

var (
	ErrNotFound          = errors.New("submission not found")
	ErrInvalidTransition = errors.New("invalid submission status transition")
	ErrReasonRequired    = errors.New("rejection reason is required")
	ErrVideoNotFound     = errors.New("video not found in storage")
	ErrInvalidAutoScore  = errors.New("auto score must be between 0 and 1")
)
