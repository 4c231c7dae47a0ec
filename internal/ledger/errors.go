package ledger

import (
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

var (
	// ErrNotFound is returned when a referenced transaction, account, card,
	// goal or purchase does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReference is returned when a transaction lacks the account
	// or card reference its type requires, or carries one it must not.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInvalidAmount is returned for non-positive amounts and amounts with
	// more precision than the currency allows.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidInput is returned for any other rejected field.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError describes a rejected field. It wraps one of the
// sentinel errors so callers can use errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(sentinel error, field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

func notFound(kind domain.EntityKind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
