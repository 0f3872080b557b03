package rpc

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// Transport: detected by the dispatcher before any gateway runs.
	KindMalformedRequest ErrorKind = "malformed_request"
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindUnauthorized     ErrorKind = "unauthorized"

	// Domain: returned by the persistence gateway.
	KindDuplicateHandle    ErrorKind = "duplicate_handle"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindPersistUnavailable ErrorKind = "persist_unavailable"
	KindNotFound           ErrorKind = "not_found"

	// Provider: returned by the GIF provider gateway.
	KindProviderUnavailable       ErrorKind = "provider_unavailable"
	KindProviderRateLimited       ErrorKind = "provider_rate_limited"
	KindProviderMalformedResponse ErrorKind = "provider_malformed_response"
)

type ErrorCategory string

const (
	CategoryTransport ErrorCategory = "transport"
	CategoryDomain    ErrorCategory = "domain"
	CategoryProvider  ErrorCategory = "provider"
)

// Reasons attached to unauthenticated/unauthorized errors.
const (
	ReasonMissingToken      = "missing_token"
	ReasonExpiredToken      = "expired_token"
	ReasonInvalidSignature  = "invalid_signature"
	ReasonMalformedToken    = "malformed_token"
	ReasonInsufficientScope = "insufficient_scope"
)

func (k ErrorKind) Category() ErrorCategory {
	switch k {
	case KindMalformedRequest, KindUnauthenticated, KindUnauthorized:
		return CategoryTransport
	case KindProviderUnavailable, KindProviderRateLimited, KindProviderMalformedResponse:
		return CategoryProvider
	default:
		return CategoryDomain
	}
}

// Retryable reports whether the same call may succeed later without the
// client changing anything.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindPersistUnavailable, KindProviderUnavailable, KindProviderRateLimited:
		return true
	}
	return false
}

// Error is the single error shape shared by every response variant.
type Error struct {
	Kind      ErrorKind     `json:"kind"`
	Category  ErrorCategory `json:"category"`
	Message   string        `json:"message"`
	Reason    string        `json:"reason,omitempty"`
	Retryable bool          `json:"retryable"`
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:      kind,
		Category:  kind.Category(),
		Message:   message,
		Retryable: kind.Retryable(),
	}
}

// Malformed builds a malformed_request error.
func Malformed(format string, args ...interface{}) *Error {
	return NewError(KindMalformedRequest, fmt.Sprintf(format, args...))
}

func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, rpc.NewError(rpc.KindNotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind carried by err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
