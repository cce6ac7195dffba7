package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrDuplicateUsername      = errors.New("username already taken")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountNotFound        = errors.New("account not found")
	ErrSessionNotFound        = errors.New("session not found")
	ErrInterceptedRouteMisuse = errors.New("route must be intercepted by the session layer")
)

// FieldErrors maps a submitted field name to its error message.
type FieldErrors map[string]string

// ValidationError reports field-level problems with a submission. It matches
// ErrValidation, and ErrDuplicateUsername when the username collided.
type ValidationError struct {
	Fields    FieldErrors
	duplicate bool
}

// NewValidationError wraps fields into a ValidationError.
func NewValidationError(fields FieldErrors) *ValidationError {
	return &ValidationError{Fields: fields}
}

// NewDuplicateUsernameError is the field-level form of ErrDuplicateUsername.
func NewDuplicateUsernameError() *ValidationError {
	return NewValidationError(nil).WithDuplicateUsername()
}

// WithDuplicateUsername adds the username collision to e.
func (e *ValidationError) WithDuplicateUsername() *ValidationError {
	if e.Fields == nil {
		e.Fields = FieldErrors{}
	}
	e.Fields["username"] = "There is already an account with this username"
	e.duplicate = true
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	if e.duplicate {
		return []error{ErrValidation, ErrDuplicateUsername}
	}
	return []error{ErrValidation}
}
