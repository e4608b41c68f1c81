// Package errors provides error handling for curator.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Add hints for users
//	return errors.WithHint(err, "try increasing the timeout")
//
//	// Check errors
//	if errors.Is(err, errors.ErrChecksumMismatch) {
//	    // handle corruption
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSafeDetails    = crdb.WithSafeDetails
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is                      = crdb.Is
	IsAny                   = crdb.IsAny
	As                      = crdb.As
	Unwrap                  = crdb.Unwrap
	UnwrapOnce              = crdb.UnwrapOnce
	UnwrapAll               = crdb.UnwrapAll
	GetAllHints             = crdb.GetAllHints
	GetAllDetails           = crdb.GetAllDetails
	FlattenHints            = crdb.FlattenHints
	FlattenDetails          = crdb.FlattenDetails
	GetReportableStackTrace = crdb.GetReportableStackTrace
)

// Assertions and panics
var (
	AssertionFailedf                 = crdb.AssertionFailedf
	NewAssertionErrorWithWrappedErrf = crdb.NewAssertionErrorWithWrappedErrf
)

// Common sentinel errors for use across the pipeline.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrChecksumMismatch indicates content changed between write and verify.
	// Never accept silently; the affected file must be retried by an operator.
	ErrChecksumMismatch = New("checksum mismatch")

	// ErrInsufficientSpace indicates the destination volume cannot hold the
	// pending write with headroom
	ErrInsufficientSpace = New("insufficient disk space")

	// ErrStateLocked indicates another process holds the processing-state lock
	ErrStateLocked = New("processing state is locked")

	// ErrDumpIncomplete indicates a dump directory lacks terminal metadata
	// and must not be trusted by downstream stages
	ErrDumpIncomplete = New("dump is incomplete")

	// ErrInvalidConfig indicates configuration that fails validation at startup
	ErrInvalidConfig = New("invalid configuration")

	// ErrRateLimited indicates the bulk source rejected a request for quota
	// reasons after the retry budget was spent
	ErrRateLimited = New("rate limited by source")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = New("operation timed out")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
// Also provides backward compatibility with string-based "not found" errors.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrNotFound) {
		return true
	}
	// Fallback: sqlite and fs errors surface as plain strings
	errMsg := err.Error()
	return len(errMsg) >= 9 && (errMsg == "not found" ||
		errMsg[len(errMsg)-9:] == "not found" ||
		len(errMsg) > 10 && errMsg[:10] == "not found:")
}

// IsChecksumMismatch checks if an error is or wraps ErrChecksumMismatch
func IsChecksumMismatch(err error) bool {
	return err != nil && Is(err, ErrChecksumMismatch)
}

// IsInsufficientSpace checks if an error is or wraps ErrInsufficientSpace
func IsInsufficientSpace(err error) bool {
	return err != nil && Is(err, ErrInsufficientSpace)
}

// IsStateLocked checks if an error is or wraps ErrStateLocked
func IsStateLocked(err error) bool {
	return err != nil && Is(err, ErrStateLocked)
}

// WrapNotFound wraps an error as a not-found error with context
func WrapNotFound(err error, context string) error {
	return Wrap(Wrap(ErrNotFound, err.Error()), context)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}
