// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound          = errors.New("not found")
	ErrVersionConflict   = errors.New("settings version conflict")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Classification errors.
	ErrDataUnavailable    = errors.New("giving data unavailable")
	ErrComputationFailure = errors.New("classification computation failed")
	ErrAllUnitsFailed     = errors.New("all giving units failed to classify")

	// Configuration errors.
	ErrFatalConfiguration = errors.New("fatal configuration error")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UnitError records why a single giving unit could not be classified.
type UnitError struct {
	Err     error
	GiverID string
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("giver %s: %v", e.GiverID, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrBusy) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
