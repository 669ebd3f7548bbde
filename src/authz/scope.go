package authz

import "github.com/khabaroff/staff-cards/src/models"

// ListScope says which admin rows a principal may see
type ListScope int

const (
	ScopeNone ListScope = iota
	ScopeSelf
	ScopeAll
)

// AdminListScope returns the visible slice of the admin table for actor.
// Overwatch and Admins see everyone, Viewers see their own row, Operators see nothing.
func AdminListScope(actor Actor) ListScope {
	if EffectiveAccessLevel(actor.Status, actor.Role) == AccessBlocked {
		return ScopeNone
	}
	switch actor.Role {
	case models.RoleOverwatch, models.RoleAdmin:
		return ScopeAll
	case models.RoleViewer:
		return ScopeSelf
	}
	return ScopeNone
}

// FilterVisible applies AdminListScope to a freshly listed set of rows
func FilterVisible(actor Actor, users []*models.AdminUser) []*models.AdminUser {
	switch AdminListScope(actor) {
	case ScopeAll:
		return users
	case ScopeSelf:
		for _, u := range users {
			if u.ID == actor.ID || models.SameEmail(u.Email, actor.Email) {
				return []*models.AdminUser{u}
			}
		}
	}
	return []*models.AdminUser{}
}

// Capabilities reports, per action, whether actor could perform it on some
// lower-ranked user other than itself. Used to render UI affordances only; every
// real operation is checked again against its concrete target.
func Capabilities(actor Actor) map[Action]bool {
	sample := &Target{Role: models.RoleViewer}
	caps := make(map[Action]bool, len(Actions))
	for _, a := range Actions {
		var t *Target
		if a.NeedsTarget() {
			t = sample
		}
		caps[a] = Can(actor, a, t)
	}
	return caps
}
