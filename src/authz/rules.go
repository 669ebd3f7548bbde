package authz

import "github.com/khabaroff/staff-cards/src/models"

// Denial reasons. Each names the rule that was violated.
const (
	ReasonSuspended       = "Account is suspended"
	ReasonInactive        = "Account is inactive"
	ReasonUnknownAccount  = "Account role or status is not recognised"
	ReasonPendingViewOnly = "Pending accounts have view-only access"
	ReasonTargetRequired  = "A valid target user is required"

	ReasonCreateRequiresAdmin  = "Only Overwatch and Admins can create admin users"
	ReasonAdminCreateCeiling   = "Admins can only create Operators and Viewers"
	ReasonAdminCannotSetRole   = "Admins cannot change user roles"
	ReasonRoleRequiresOverseer = "Only Overwatch can change user roles"
	ReasonStatusRequiresAdmin  = "Only Overwatch and Admins can change user status"
	ReasonAdminModifyCeiling   = "Admins can only modify Operators and Viewers"
	ReasonDeleteRequiresOver   = "Only Overwatch can delete admin users"
	ReasonNoSelfDelete         = "You cannot delete your own account"
	ReasonBulkRequiresAdmin    = "Only Overwatch and Admins can perform bulk actions"
	ReasonAdminBulkStatusOnly  = "Admins can only change status, not role"
	ReasonAdminBulkNoDelete    = "Admins cannot delete users"
	ReasonListRequiresAdmin    = "Only Overwatch and Admins can list admin users"

	ReasonViewerReadOnly         = "Viewers have read-only access"
	ReasonEmployeeStatusRequires = "Only Overwatch and Admins can change employee status"
	ReasonEmployeeDeleteRequires = "Only Overwatch can delete employees"
	ReasonUnknownAction          = "Unknown action"
)

// roleRule returns the violated rule for a fully-privileged actor, or "" when allowed
func roleRule(actor Actor, action Action, target *Target) string {
	switch action {
	case ActionListAdminUsers:
		if actor.Role == models.RoleOverwatch || actor.Role == models.RoleAdmin {
			return ""
		}
		return ReasonListRequiresAdmin

	case ActionCreateAdminUser:
		switch actor.Role {
		case models.RoleOverwatch:
			return ""
		case models.RoleAdmin:
			if actor.Role.Outranks(target.Role) {
				return ""
			}
			return ReasonAdminCreateCeiling
		}
		return ReasonCreateRequiresAdmin

	case ActionChangeRole:
		switch actor.Role {
		case models.RoleOverwatch:
			return ""
		case models.RoleAdmin:
			return ReasonAdminCannotSetRole
		}
		return ReasonRoleRequiresOverseer

	case ActionChangeStatus:
		return statusRule(actor, target, ReasonStatusRequiresAdmin)

	case ActionDeleteAdminUser:
		if target.isSelf(actor) {
			return ReasonNoSelfDelete
		}
		if actor.Role == models.RoleOverwatch {
			return ""
		}
		return ReasonDeleteRequiresOver

	case ActionBulkChangeRole:
		switch actor.Role {
		case models.RoleOverwatch:
			return ""
		case models.RoleAdmin:
			return ReasonAdminBulkStatusOnly
		}
		return ReasonBulkRequiresAdmin

	case ActionBulkChangeStatus:
		return statusRule(actor, target, ReasonBulkRequiresAdmin)

	case ActionBulkDelete:
		switch actor.Role {
		case models.RoleOverwatch:
			if target.isSelf(actor) {
				return ReasonNoSelfDelete
			}
			return ""
		case models.RoleAdmin:
			return ReasonAdminBulkNoDelete
		}
		return ReasonBulkRequiresAdmin

	case ActionViewEmployees:
		return ""

	case ActionCreateEmployee, ActionEditEmployee, ActionImportCSV:
		if actor.Role == models.RoleViewer {
			return ReasonViewerReadOnly
		}
		return ""

	case ActionChangeEmployeeStatus:
		if actor.Role == models.RoleOverwatch || actor.Role == models.RoleAdmin {
			return ""
		}
		return ReasonEmployeeStatusRequires

	case ActionDeleteEmployee:
		if actor.Role == models.RoleOverwatch {
			return ""
		}
		return ReasonEmployeeDeleteRequires
	}
	return ReasonUnknownAction
}

// statusRule covers single and bulk status changes: Overwatch on anyone, Admins on
// roles strictly below their own.
func statusRule(actor Actor, target *Target, otherwise string) string {
	switch actor.Role {
	case models.RoleOverwatch:
		return ""
	case models.RoleAdmin:
		if actor.Role.Outranks(target.Role) {
			return ""
		}
		return ReasonAdminModifyCeiling
	}
	return otherwise
}
