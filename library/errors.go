package library

import (
	"errors"
	"fmt"
)

// Error kinds returned by the core. Callers match them with errors.Is; the
// wrapped message is meant for the end user.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrOutOfStock         = errors.New("out of stock")
	ErrAlreadyBorrowed    = errors.New("already borrowed")
	ErrQuotaExceeded      = errors.New("loan quota exceeded")
	ErrValidation         = errors.New("validation failed")
	ErrBookOnLoan         = errors.New("book has active loans")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect password")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
