package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindNotFound             Kind = "not_found"
	KindConfirmationRequired Kind = "confirmation_required"
	KindUpstream             Kind = "upstream"
	KindAuth                 Kind = "auth"
)

// Error is a classified application error
type Error struct {
	Kind    Kind   // Error class
	Field   string // Offending field for validation errors, if any
	Message string // User-facing message (Spanish, shown to end users and the model)
	Err     error  // Underlying cause, if any
}

// Error implements the error interface. Only the user-facing message is
// returned so it can be surfaced to the model and the UI verbatim.
func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new classified error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	// Validation reports a bad or missing caller-supplied field
	Validation = func(field, message string) *Error {
		return &Error{Kind: KindValidation, Field: field, Message: message}
	}

	// Validationf is Validation with a formatted message
	Validationf = func(field, format string, args ...any) *Error {
		return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
	}

	// NotFound reports that no owned, live row matched
	NotFound = func(message string) *Error {
		return New(KindNotFound, message)
	}

	// ConfirmationRequired reports a destructive operation lacking explicit confirmation
	ConfirmationRequired = func(message string) *Error {
		return New(KindConfirmationRequired, message)
	}

	// Upstream wraps a failure of the LLM or calendar provider
	Upstream = func(message string, err error) *Error {
		return &Error{Kind: KindUpstream, Message: message, Err: err}
	}

	// Auth reports a missing or invalid authenticated caller
	Auth = func(message string) *Error {
		return New(KindAuth, message)
	}
)

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the status code used at the HTTP boundary.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConfirmationRequired:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the message that is safe to show to a caller. Unclassified
// errors are reduced to a generic message so internal details do not leak.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return "Error interno"
}
