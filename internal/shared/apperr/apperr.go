// Package apperr defines the typed error kinds returned by the booking core.
// Services return *Error values; the HTTP layer maps the kind to a status code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindCapacityExceeded    Kind = "CAPACITY_EXCEEDED"
	KindInvalidState        Kind = "INVALID_STATE"
	KindPermissionDenied    Kind = "PERMISSION_DENIED"
	KindValidation          Kind = "VALIDATION_ERROR"
	KindConcurrencyConflict Kind = "CONCURRENCY_CONFLICT"
	KindUpstream            Kind = "UPSTREAM_FAILURE"
)

// CapacityMessage is shown for both exhaustion and lost races on a counter.
const CapacityMessage = "this tour is full or someone just booked the last spot, please try again"

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(what string) *Error {
	return New(KindNotFound, what+" not found")
}

func CapacityExceeded() *Error {
	return New(KindCapacityExceeded, CapacityMessage)
}

func InvalidState(format string, args ...any) *Error {
	return New(KindInvalidState, fmt.Sprintf(format, args...))
}

func PermissionDenied(message string) *Error {
	return New(KindPermissionDenied, message)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func Conflict(err error) *Error {
	return Wrap(KindConcurrencyConflict, CapacityMessage, err)
}

func Upstream(message string, err error) *Error {
	return Wrap(KindUpstream, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
