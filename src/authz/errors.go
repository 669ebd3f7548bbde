package authz

import (
	"errors"
	"fmt"

	"github.com/khabaroff/staff-cards/src/models"
)

var (
	// ErrPermissionDenied matches any *PermissionDeniedError via errors.Is
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAccountBlocked matches any *AccountBlockedError via errors.Is
	ErrAccountBlocked = errors.New("account blocked")
)

// PermissionDeniedError carries the specific rule an active principal violated
type PermissionDeniedError struct {
	Action Action
	Reason string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied for %s: %s", e.Action, e.Reason)
}

func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// AccountBlockedError means the principal is Suspended or Inactive and must be
// stopped at the authentication boundary.
type AccountBlockedError struct {
	Status models.Status
	Reason string
}

func (e *AccountBlockedError) Error() string {
	return fmt.Sprintf("account blocked (%s): %s", e.Status, e.Reason)
}

func (e *AccountBlockedError) Is(target error) bool {
	return target == ErrAccountBlocked
}
