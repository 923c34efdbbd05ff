/*
errors.go - Error taxonomy for the tracking service

PURPOSE:
  All error types in one place. Every error returned by the service
  matches exactly one of the four kind sentinels with errors.Is, which the
  HTTP layer maps to a status code and the {"error": {kind, message}}
  envelope.

ERROR KINDS:
  ErrValidation          400  missing/blank/invalid input
  ErrNotFound            404  unknown tracking code or step
  ErrUnauthorized        403  no admin session, bad credentials
  ErrStorageUnavailable  500  table backend failed (no retry)

SEE ALSO:
  - api/handlers.go: writeError
*/
package tracking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a required field is missing or invalid.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a tracking code or step does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when an admin session is required.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrStorageUnavailable is returned when the table backend fails.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidCredentials is returned by Authenticate on a mismatch.
	ErrInvalidCredentials = fmt.Errorf("invalid username or password: %w", ErrUnauthorized)

	// ErrInvalidRow is returned when a write targets the header row or a
	// row outside the table.
	ErrInvalidRow = errors.New("invalid row index")

	// ErrCodeExhausted is returned when no unused tracking code could be issued.
	ErrCodeExhausted = errors.New("could not issue an unused tracking code")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError names what was looked up.
type NotFoundError struct {
	Kind string // "client" or "step"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// StorageError wraps a backend failure.
type StorageError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap exposes both the sentinel and the backend cause.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func clientNotFound(code string) error {
	return &NotFoundError{Kind: "client", Key: code}
}

func stepNotFound(step string) error {
	return &NotFoundError{Kind: "step", Key: step}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// Kind names used in the JSON error envelope.
const (
	KindValidation         = "validation"
	KindNotFound           = "not_found"
	KindUnauthorized       = "unauthorized"
	KindStorageUnavailable = "storage_unavailable"
	KindInternal           = "internal"
)

// KindOf classifies err for the error envelope.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable
	default:
		return KindInternal
	}
}
