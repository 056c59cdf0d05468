package types

import "errors"

// Request errors. Transport and service errors wrap these so callers can
// branch with errors.Is.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrTransport    = errors.New("transport failure")
	ErrTokenExpired = errors.New("csrf token expired")
	ErrInvalidID    = errors.New("invalid entity ID")
)

// Draft errors.
var (
	ErrUnknownField = errors.New("unknown form field")
	ErrInvalidValue = errors.New("invalid form field value")
)
