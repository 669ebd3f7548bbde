package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for explicit error handling
// These errors allow callers to distinguish between different failure modes
// using errors.Is() instead of string matching

var (
	// ErrNotFound indicates the target admin user, employee or link does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials indicates authentication failed at the identity provider
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotAdmin indicates the principal authenticated but has no admin account
	ErrNotAdmin = errors.New("not an admin")

	// ErrUpstreamUnavailable indicates the identity provider or a store could not be reached.
	// It is never a security decision.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrConflict indicates a concurrent writer kept winning the version check
	ErrConflict = errors.New("concurrent modification")

	// ErrIdentityExists indicates the identity provider already has an account for the email
	ErrIdentityExists = errors.New("identity already exists")

	// ErrValidation indicates the request payload failed validation
	ErrValidation = errors.New("validation failed")

	// ErrInvalidToken indicates a session, invite or reset token is unknown, expired or used
	ErrInvalidToken = errors.New("invalid or expired token")
)

// upstream wraps an I/O failure so callers can classify it with errors.Is
// and still reach the original error.
func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}

// ValidationError lists per-field problems
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
