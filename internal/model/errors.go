package model

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError represents a validation error in the domain
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error (including wrapped errors)
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// DuplicateEntryError is returned when a user already has an entry for the target day.
type DuplicateEntryError struct {
	UserID string
	Day    time.Time
}

func (e DuplicateEntryError) Error() string {
	return fmt.Sprintf("user %s already has an entry for %s", e.UserID, e.Day.Format("2006-01-02"))
}

// IsDuplicateEntry reports whether err is a DuplicateEntryError.
func IsDuplicateEntry(err error) bool {
	var de DuplicateEntryError
	return errors.As(err, &de)
}

// PrimaryWriteError wraps a failure of the primary (authoritative) store.
type PrimaryWriteError struct {
	Op  string
	Err error
}

func (e PrimaryWriteError) Error() string {
	return fmt.Sprintf("primary store %s: %v", e.Op, e.Err)
}

func (e PrimaryWriteError) Unwrap() error { return e.Err }

// IsPrimaryWriteError reports whether err is a PrimaryWriteError.
func IsPrimaryWriteError(err error) bool {
	var pe PrimaryWriteError
	return errors.As(err, &pe)
}

// SecondaryWriteError describes a failed propagation to a derived store.
// It is logged and counted, never returned to callers of the write path.
type SecondaryWriteError struct {
	Store string
	Err   error
}

func (e SecondaryWriteError) Error() string {
	return fmt.Sprintf("secondary store %s: %v", e.Store, e.Err)
}

func (e SecondaryWriteError) Unwrap() error { return e.Err }

// NotFoundError represents a missing resource
type NotFoundError struct {
	Field   string
	Message string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("not found %s: %s", e.Field, e.Message)
}

// NewNotFoundError constructs NotFoundError
func NewNotFoundError(field, message string) NotFoundError {
	return NotFoundError{Field: field, Message: message}
}

// IsNotFoundError checks if error is NotFoundError
func IsNotFoundError(err error) bool {
	var ne NotFoundError
	return errors.As(err, &ne)
}

// ErrNotConnected is returned by adapters used before Connect or after Disconnect.
var ErrNotConnected = errors.New("store not connected")
