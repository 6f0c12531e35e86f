package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrTenantUnknown = errors.New("tenant could not be derived from session URL")
	ErrInvalidRecord = errors.New("invalid record")
	ErrInvalidConfig = errors.New("invalid config")

	ErrInvalidBackend  = errors.New("invalid backend")
	ErrCacheAccess     = errors.New("cache store read/write error")
	ErrTimeout         = errors.New("remote call timed out")
	ErrMalformedResult = errors.New("malformed remote result")
)

// ErrorCategory classifies a failure for the fallback policy. Network failures
// may be substituted with stale cache; the other categories never are.
type ErrorCategory string

const (
	CategoryNetwork    ErrorCategory = "network"
	CategoryPermission ErrorCategory = "permission"
	CategoryValidation ErrorCategory = "validation"
	CategoryUnknown    ErrorCategory = "unknown"
)

// Known reports whether c is one of the four classifier outputs.
func (c ErrorCategory) Known() bool {
	switch c {
	case CategoryNetwork, CategoryPermission, CategoryValidation, CategoryUnknown:
		return true
	}
	return false
}

// CategorizedError carries an explicit category assigned at the point of
// creation, plus the HTTP status that produced it (0 when synthetic, e.g. a
// deadline guard timeout). Classification trusts this tag over any message
// heuristics.
type CategorizedError struct {
	Category ErrorCategory
	Status   int
	Message  string
	Inner    error
}

func (e *CategorizedError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Inner)
	}
	return e.Message
}

func (e *CategorizedError) Unwrap() error { return e.Inner }

// NewCategorized tags err with a category without losing the original chain.
func NewCategorized(cat ErrorCategory, status int, msg string, inner error) *CategorizedError {
	return &CategorizedError{Category: cat, Status: status, Message: msg, Inner: inner}
}

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
