// Package apperr defines the error kinds surfaced by the stores and services.
//
// Callers match kinds with errors.Is; the wrapped message carries the detail
// ("already friends", "request already sent", ...).
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrSelfReference      = errors.New("self reference")
	ErrInvalidState       = errors.New("invalid state")
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")
	ErrValidation         = errors.New("validation failed")
	ErrStorage            = errors.New("storage failure")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)

// NotFound wraps ErrNotFound with the missing entity and its id.
func NotFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}

func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

func InvalidState(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, msg)
}

func Validation(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, msg)
}

// Storage marks err as a persistence failure of op. Both ErrStorage and the
// driver error stay reachable through errors.Is / errors.As.
func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Message strips the kind prefix so handlers can show only the detail.
func Message(err error) string {
	var detail string
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			detail = err.Error()
			prefix := kind.Error() + ": "
			if len(detail) > len(prefix) && detail[:len(prefix)] == prefix {
				return detail[len(prefix):]
			}
			return detail
		}
	}
	return err.Error()
}

var kinds = []error{
	ErrNotFound,
	ErrConflict,
	ErrSelfReference,
	ErrInvalidState,
	ErrDailyLimitExceeded,
	ErrValidation,
	ErrStorage,
	ErrUnauthorized,
	ErrForbidden,
}
