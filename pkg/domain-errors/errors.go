// Package dErrors defines coded domain errors shared by all services.
//
// Services return these instead of raw errors so the HTTP layer can map
// failures to statuses in one place without string matching. Stores do NOT
// use this package; they return sentinel errors (pkg/platform/sentinel)
// which services translate into coded errors at the boundary.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeBadRequest covers malformed or semantically invalid input.
	CodeBadRequest Code = "bad_request"
	// CodeValidation covers missing or out-of-range fields.
	CodeValidation Code = "validation_failed"
	// CodeUnauthorized covers failed or missing authentication.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden covers authenticated callers lacking access.
	CodeForbidden Code = "forbidden"
	// CodeNotFound covers identifiers that do not resolve.
	CodeNotFound Code = "not_found"
	// CodeConflict covers uniqueness violations and illegal state transitions.
	CodeConflict Code = "conflict"
	// CodeUnavailable covers unreachable or failing external collaborators.
	CodeUnavailable Code = "unavailable"
	// CodeInternal covers everything we do not want to explain to callers.
	CodeInternal Code = "internal"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a caller-facing message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted caller-facing message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause is
// preserved for logs and errors.Is/As but never rendered to callers.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// Is is shorthand for HasCode; it reads better at call sites that only
// branch on a single code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code carried by err, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-facing message of err, or a generic message
// for uncoded errors so internals never leak.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a domain error code onto an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
