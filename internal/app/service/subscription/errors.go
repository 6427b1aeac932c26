package subscription

import "errors"

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("subscription not found")
	ErrInvalidState = errors.New("invalid subscription state")
	ErrStorage      = errors.New("subscription storage error")
)
