// Package errors provides structured error types for stemma.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the collation core, CLI and service
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Two codes carry the collation taxonomy:
//   - CONFIGURATION: rejected input settings (distance threshold, duplicate
//     witness sigils, malformed job files). Raised before any graph mutation.
//   - CONSISTENCY: a broken invariant inside the engine (a cycle found while
//     ranking, an anchor vertex missing from a ranking). Fatal and never
//     retried; the caller must discard the graph.
//
// The remaining codes describe the outer layers (input decoding, output
// formats, lookups).
//
// Alignment ambiguity is never reported as an error. The matcher resolves
// it deterministically.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "threshold %v out of range", t)
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // reject the job
//	}
//
//	// Wrap a package sentinel so both checks work
//	err := errors.Wrap(errors.ErrCodeConsistency, ranking.ErrCycle, "rank graph")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Collation taxonomy
	ErrCodeConfiguration Code = "CONFIGURATION"
	ErrCodeConsistency   Code = "CONSISTENCY"

	// Input errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Configuration is shorthand for a CONFIGURATION error wrapping cause.
// cause may be nil.
func Configuration(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeConfiguration, cause, format, args...)
}

// Consistency is shorthand for a CONSISTENCY error wrapping cause.
// cause may be nil.
func Consistency(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeConsistency, cause, format, args...)
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsConfiguration reports whether err is a CONFIGURATION error.
func IsConfiguration(err error) bool { return Is(err, ErrCodeConfiguration) }

// IsConsistency reports whether err is a CONSISTENCY error.
func IsConsistency(err error) bool { return Is(err, ErrCodeConsistency) }

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
