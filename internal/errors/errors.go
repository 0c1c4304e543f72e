// Package errors provides structured error handling for seekd.
//
// Every error that crosses a component boundary carries a Kind, which drives
// retry policy and the HTTP status surfaced by the server. Kinds:
//
//	InvalidInput          user argument violates schema or constraint
//	NotFound              referenced source, template, skill, or record absent
//	Conflict              duplicate source path or concurrent mutation
//	DependencyUnavailable lexical engine, vector store, or LLM unreachable
//	DependencyFailed      provider returned an error within a request
//	Transient             I/O or network error eligible for bounded retry
//	Internal              unexpected invariant violation
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for retry policy and HTTP surfacing.
type Kind string

const (
	KindInvalidInput          Kind = "INVALID_INPUT"
	KindNotFound              Kind = "NOT_FOUND"
	KindConflict              Kind = "CONFLICT"
	KindDependencyUnavailable Kind = "DEPENDENCY_UNAVAILABLE"
	KindDependencyFailed      Kind = "DEPENDENCY_FAILED"
	KindTransient             Kind = "TRANSIENT"
	KindInternal              Kind = "INTERNAL"
)

// Error is the structured error type for seekd.
type Error struct {
	// Kind is the error classification.
	Kind Kind

	// Message is the human-readable error message.
	Message string

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// CorrelationID identifies the failing request in logs. Only set for
	// Internal errors surfaced to users.
	CorrelationID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by kind so errors.Is works across wrapping.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error from an existing error, preserving it as the cause.
// Returns nil when err is nil.
func Wrap(kind Kind, message string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// InvalidInput creates an input validation error.
func InvalidInput(format string, args ...any) *Error {
	return Newf(KindInvalidInput, format, args...)
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *Error {
	return Newf(KindNotFound, format, args...)
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *Error {
	return Newf(KindConflict, format, args...)
}

// Unavailable creates a dependency-unavailable error.
func Unavailable(message string, cause error) *Error {
	return &Error{Kind: KindDependencyUnavailable, Message: message, Cause: cause}
}

// DependencyFailed creates a provider-failure error.
func DependencyFailed(message string, cause error) *Error {
	return &Error{Kind: KindDependencyFailed, Message: message, Cause: cause}
}

// Transient creates a retryable I/O or network error.
func Transient(message string, cause error) *Error {
	return &Error{Kind: KindTransient, Message: message, Cause: cause}
}

// Internal creates an internal error.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// KindOf extracts the kind from an error chain.
// Non-structured errors classify as Internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsRetryable reports whether the error is eligible for bounded retry.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindDependencyUnavailable:
		return true
	}
	return false
}

// IsNotFound reports whether the error chain contains a NotFound error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConflict reports whether the error chain contains a Conflict error.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// HTTPStatus maps an error to the status code the server surfaces.
// Schema mismatches on skill inputs are promoted to 422 by the server.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDependencyUnavailable, KindDependencyFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
