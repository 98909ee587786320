// Package apperr defines the error taxonomy the service returns to callers.
// Every persistence or authorization failure surfaces as one of these kinds;
// anything else is wrapped as Internal and returned without detail.
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
	ValidationFailed
	NotFound
	DuplicateKey
	ConflictRetryExhausted
	AlreadyClosed
	Internal
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or Internal for anything that is not an
// *Error from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is lets errors.Is match two apperr errors by kind, so sentinel-style
// comparisons work without sharing pointer identity.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Message returns the user-facing message for err. Internal faults get an
// opaque message so store errors never leak to clients.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case ValidationFailed:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case DuplicateKey:
		return http.StatusConflict
	case ConflictRetryExhausted:
		return http.StatusConflict
	case AlreadyClosed:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
