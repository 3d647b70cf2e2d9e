// Package apperr defines the error kinds shared by the service layers.
// Handlers map kinds to HTTP statuses at the boundary; inner layers wrap
// causes with %w so the kind survives propagation.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for boundary handling.
type Kind string

const (
	KindUnauthorized      Kind = "unauthorized"       // no or invalid session
	KindForbidden         Kind = "forbidden"          // session valid, resource not owned
	KindNotFound          Kind = "not_found"          // referenced row absent
	KindValidation        Kind = "validation"         // missing or malformed request fields
	KindConflict          Kind = "conflict"           // duplicate resource (e.g. signup email)
	KindUpstream          Kind = "upstream"           // generation endpoint returned non-success
	KindMalformedResponse Kind = "malformed_response" // generated content did not match the expected shape
	KindStorage           Kind = "storage"            // persistence operation failed
)

// Error carries a kind, a user-facing message, and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or KindStorage for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the user-facing message of err. Unclassified errors get a
// generic message so internals do not leak into responses.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}

// HTTPStatus maps an error to the status its kind dictates.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUpstream, KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
