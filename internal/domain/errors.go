package domain

import "errors"

// Account errors
var (
	ErrDuplicateHandle    = errors.New("handle already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Library errors
var (
	ErrGifNotFound = errors.New("gif not saved by user")
)

// ErrPersistUnavailable wraps every storage failure that is not a business
// rule, so callers can tell a retryable outage from bad input.
var ErrPersistUnavailable = errors.New("persistence unavailable")
