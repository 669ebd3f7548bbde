package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is an administrator privilege level
type Role string

const (
	RoleOverwatch Role = "Overwatch"
	RoleAdmin     Role = "Admin"
	RoleOperator  Role = "Operator"
	RoleViewer    Role = "Viewer"
)

// Roles lists every role, highest privilege first
var Roles = []Role{RoleOverwatch, RoleAdmin, RoleOperator, RoleViewer}

// Rank orders roles; higher is more privileged. Unknown roles rank below Viewer.
func (r Role) Rank() int {
	switch r {
	case RoleOverwatch:
		return 4
	case RoleAdmin:
		return 3
	case RoleOperator:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Outranks reports whether r is strictly more privileged than other
func (r Role) Outranks(other Role) bool {
	return r.Rank() > other.Rank()
}

// Status is the lifecycle state of an administrator account
type Status string

const (
	StatusActive    Status = "Active"
	StatusPending   Status = "Pending"
	StatusInactive  Status = "Inactive"
	StatusSuspended Status = "Suspended"
)

// Statuses lists every account status
var Statuses = []Status{StatusActive, StatusPending, StatusInactive, StatusSuspended}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// ParseRole matches a role name case-insensitively
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

// ParseStatus matches a status name case-insensitively
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// AdminUser represents an administrator account in the admin account store.
// Email is the join key with the identity provider.
type AdminUser struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	Role                Role       `json:"role"`
	Status              Status     `json:"status"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	FirstFailedLoginAt  *time.Time `json:"first_failed_login_at"`
	LastFailedLoginAt   *time.Time `json:"last_failed_login_at"`
	LockoutReason       *string    `json:"lockout_reason"`
	Version             int64      `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NormalizeEmail returns the comparison form of an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SameEmail compares two email addresses case-insensitively
func SameEmail(a, b string) bool {
	return NormalizeEmail(a) == NormalizeEmail(b)
}

// Clone returns a deep copy so state transitions never alias the caller's snapshot
func (u *AdminUser) Clone() *AdminUser {
	if u == nil {
		return nil
	}
	c := *u
	if u.FirstFailedLoginAt != nil {
		t := *u.FirstFailedLoginAt
		c.FirstFailedLoginAt = &t
	}
	if u.LastFailedLoginAt != nil {
		t := *u.LastFailedLoginAt
		c.LastFailedLoginAt = &t
	}
	if u.LockoutReason != nil {
		r := *u.LockoutReason
		c.LockoutReason = &r
	}
	return &c
}
