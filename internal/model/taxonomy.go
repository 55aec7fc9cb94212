package model

import (
	"errors"
	"strings"
)

// ValidationError carries one or more field-level failures, matching
// §7's `{"errors":[...]}` body shape (HTTP 422).
type ValidationError struct {
	Errors []FieldError
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(msgs, "; ")
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// ErrForbidden is the generic Forbidden sentinel for authenticated-
// but-not-authorized outcomes that don't already have a named error
// (cross-user notification access, subscribing to another user's
// notification topic).
var ErrForbidden = errors.New("forbidden")

// ErrTransient marks a failure the caller should surface as 5xx
// rather than map to a specific domain error (store/broker
// unavailable per §7).
var ErrTransient = errors.New("transient failure, try again")
