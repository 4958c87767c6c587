// Package apperr defines the error taxonomy shared by all services.
// Every failure surfaced to a caller is one of four kinds, detected
// synchronously and guaranteed to leave no partial effect behind.
// Handlers translate the kind into an HTTP status; messages are specific
// enough to name the entity or invariant that caused the failure without
// leaking internals (stack traces, SQL, driver errors).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers deciding whether a retry makes sense.
// Conflict signals a legitimate race or invariant collision and may be
// retried; Validation and NotFound must not be retried without fixing input.
type Kind int

const (
	KindValidation Kind = iota // malformed or out-of-range input
	KindNotFound               // referenced entity absent
	KindConflict               // non-negativity / uniqueness invariant would break
	KindState                  // entity in the wrong lifecycle state
)

// Error is the canonical application error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func State(format string, args ...interface{}) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err and whether err is an application error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsConflict(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindConflict
}

func IsNotFound(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindNotFound
}

// Status maps an error to the HTTP status the API returns for it.
// Unclassified errors map to 500 and are logged by the middleware.
func Status(err error) int {
	k, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
