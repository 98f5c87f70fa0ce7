// Package apperr defines the error taxonomy surfaced to API clients.
// Stores and handlers return these kinds wrapped around the underlying
// cause; the handler layer maps each kind to one HTTP status and a stable
// machine-readable code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Unauthenticated Kind = iota
	Forbidden
	NotFound
	Conflict
	InvalidState
	Validation
	InsufficientCredits
	TransactionFailed
	Internal
)

type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given kind and human-readable detail.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap attaches a kind and detail to an underlying error.
func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the kind from err, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Detail returns the client-facing detail for err, or a generic message
// for unclassified errors so internals never leak.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return "internal server error"
}

// Code returns the stable machine-readable code for err's kind.
func Code(err error) string {
	switch KindOf(err) {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidState:
		return "invalid_state"
	case Validation:
		return "validation_error"
	case InsufficientCredits:
		return "insufficient_credits"
	case TransactionFailed:
		return "transaction_failed"
	default:
		return "internal_error"
	}
}

// Status returns the HTTP status for err's kind.
func Status(err error) int {
	switch KindOf(err) {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict, InvalidState:
		return http.StatusConflict
	case Validation:
		return http.StatusBadRequest
	case InsufficientCredits:
		return http.StatusBadRequest
	case TransactionFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
