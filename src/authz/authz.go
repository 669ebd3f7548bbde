// Package authz decides who may do what to whom.
//
// Every decision is derived from the acting principal's current role and status
// and, where relevant, the target's role and identity. Nothing is cached: callers
// re-read the principal from the account store on each request and ask again.
package authz

import (
	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/models"
)

// AccessLevel is the coarse gate evaluated before any role rule
type AccessLevel int

const (
	// AccessBlocked denies everything; the session must be terminated
	AccessBlocked AccessLevel = iota
	// AccessViewOnly allows read actions only
	AccessViewOnly
	// AccessFull defers to the role rules
	AccessFull
)

func (l AccessLevel) String() string {
	switch l {
	case AccessFull:
		return "full_access"
	case AccessViewOnly:
		return "view_only"
	default:
		return "blocked"
	}
}

// Action identifies an operation subject to authorization
type Action string

const (
	ActionListAdminUsers   Action = "list_admin_users"
	ActionCreateAdminUser  Action = "create_admin_user"
	ActionChangeRole       Action = "change_role"
	ActionChangeStatus     Action = "change_status"
	ActionDeleteAdminUser  Action = "delete_admin_user"
	ActionBulkChangeRole   Action = "bulk_change_role"
	ActionBulkChangeStatus Action = "bulk_change_status"
	ActionBulkDelete       Action = "bulk_delete"

	ActionViewEmployees        Action = "view_employees"
	ActionCreateEmployee       Action = "create_employee"
	ActionEditEmployee         Action = "edit_employee"
	ActionChangeEmployeeStatus Action = "change_employee_status"
	ActionDeleteEmployee       Action = "delete_employee"
	ActionImportCSV            Action = "import_csv"
)

// Actions lists every action in a stable order
var Actions = []Action{
	ActionListAdminUsers,
	ActionCreateAdminUser,
	ActionChangeRole,
	ActionChangeStatus,
	ActionDeleteAdminUser,
	ActionBulkChangeRole,
	ActionBulkChangeStatus,
	ActionBulkDelete,
	ActionViewEmployees,
	ActionCreateEmployee,
	ActionEditEmployee,
	ActionChangeEmployeeStatus,
	ActionDeleteEmployee,
	ActionImportCSV,
}

// Mutating reports whether the action changes state
func (a Action) Mutating() bool {
	return a != ActionListAdminUsers && a != ActionViewEmployees
}

// NeedsTarget reports whether the action is evaluated against a target admin user.
// For ActionCreateAdminUser the target carries the requested role.
func (a Action) NeedsTarget() bool {
	switch a {
	case ActionCreateAdminUser, ActionChangeRole, ActionChangeStatus, ActionDeleteAdminUser,
		ActionBulkChangeRole, ActionBulkChangeStatus, ActionBulkDelete:
		return true
	}
	return false
}

// Actor is the authenticated principal asking for a decision
type Actor struct {
	ID     uuid.UUID
	Email  string
	Role   models.Role
	Status models.Status
}

// ActorFrom builds an Actor from a freshly loaded admin row
func ActorFrom(u *models.AdminUser) Actor {
	return Actor{ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status}
}

// Target is the admin user an action applies to
type Target struct {
	ID    uuid.UUID
	Email string
	Role  models.Role
}

// TargetFrom builds a Target from an admin row
func TargetFrom(u *models.AdminUser) *Target {
	return &Target{ID: u.ID, Email: u.Email, Role: u.Role}
}

// NewRoleTarget describes a not-yet-created admin user of the given role
func NewRoleTarget(role models.Role) *Target {
	return &Target{Role: role}
}

// isSelf reports whether target is the actor's own row. Identity is matched by id
// and, for rows correlated through the identity provider, by email.
func (t *Target) isSelf(a Actor) bool {
	if t == nil {
		return false
	}
	if t.ID != uuid.Nil && t.ID == a.ID {
		return true
	}
	return t.Email != "" && models.SameEmail(t.Email, a.Email)
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool
	Level   AccessLevel
	Reason  string
}

func allow(level AccessLevel) Decision {
	return Decision{Allowed: true, Level: level}
}

func deny(level AccessLevel, reason string) Decision {
	return Decision{Level: level, Reason: reason}
}

// EffectiveAccessLevel applies the status gate. Unknown statuses and roles fail closed.
func EffectiveAccessLevel(status models.Status, role models.Role) AccessLevel {
	if !role.Valid() {
		return AccessBlocked
	}
	switch status {
	case models.StatusActive:
		return AccessFull
	case models.StatusPending:
		return AccessViewOnly
	default:
		return AccessBlocked
	}
}

// Can reports whether actor may perform action on target
func Can(actor Actor, action Action, target *Target) bool {
	return Decide(actor, action, target).Allowed
}

// Decide evaluates the status gate and then the role rules for action
func Decide(actor Actor, action Action, target *Target) Decision {
	level := EffectiveAccessLevel(actor.Status, actor.Role)
	switch level {
	case AccessBlocked:
		return deny(level, blockedReason(actor.Status))
	case AccessViewOnly:
		if action.Mutating() {
			return deny(level, ReasonPendingViewOnly)
		}
	}

	if action.NeedsTarget() && (target == nil || !target.Role.Valid()) {
		return deny(level, ReasonTargetRequired)
	}

	if reason := roleRule(actor, action, target); reason != "" {
		return deny(level, reason)
	}
	return allow(level)
}

// Authorize is Decide expressed as an error: nil, *AccountBlockedError or *PermissionDeniedError
func Authorize(actor Actor, action Action, target *Target) error {
	d := Decide(actor, action, target)
	if d.Allowed {
		return nil
	}
	if d.Level == AccessBlocked {
		return &AccountBlockedError{Status: actor.Status, Reason: d.Reason}
	}
	return &PermissionDeniedError{Action: action, Reason: d.Reason}
}

func blockedReason(status models.Status) string {
	switch status {
	case models.StatusSuspended:
		return ReasonSuspended
	case models.StatusInactive:
		return ReasonInactive
	}
	return ReasonUnknownAccount
}
