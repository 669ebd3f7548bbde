package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/authz"
	"github.com/khabaroff/staff-cards/src/lockout"
	"github.com/khabaroff/staff-cards/src/logging"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
	"golang.org/x/sync/errgroup"
)

// resetFanOut bounds concurrent password reset emails during bulk activation
const resetFanOut = 5

// AdminUserOptions tunes side effects of status changes
type AdminUserOptions struct {
	ActivationSendsReset     bool
	BulkActivationSendsReset bool
	CASRetries               int
}

// PasswordSeeder sets a known password for an identity. Used for the first-run seed.
type PasswordSeeder interface {
	EnsurePassword(ctx context.Context, email, password string) error
}

// AdminUserService manages administrator accounts. Every operation is checked
// against the acting principal's freshly loaded row.
type AdminUserService struct {
	repo      repositories.AdminUserRepository
	idp       IdentityProvider
	analytics *AnalyticsService
	opts      AdminUserOptions
}

// NewAdminUserService creates a new admin user service
func NewAdminUserService(repo repositories.AdminUserRepository, idp IdentityProvider, analytics *AnalyticsService, opts AdminUserOptions) *AdminUserService {
	if opts.CASRetries <= 0 {
		opts.CASRetries = DefaultCASRetries
	}
	return &AdminUserService{repo: repo, idp: idp, analytics: analytics, opts: opts}
}

// StatusChange reports the outcome of a status update
type StatusChange struct {
	User           *models.AdminUser `json:"user"`
	ResetEmailSent bool              `json:"reset_email_sent"`
}

// BulkResult reports the outcome of a bulk operation
type BulkResult struct {
	Affected    int64 `json:"affected"`
	ResetsSent  int   `json:"resets_sent,omitempty"`
	ResetErrors int   `json:"reset_errors,omitempty"`
}

func (s *AdminUserService) authorize(ctx context.Context, actor *models.AdminUser, action authz.Action, target *authz.Target) error {
	err := authz.Authorize(authz.ActorFrom(actor), action, target)
	if err == nil {
		return nil
	}
	logger := logging.Security(actor.Email)
	var denied *authz.PermissionDeniedError
	if errors.As(err, &denied) {
		logger.Warn().
			Str("role", string(actor.Role)).
			Str("action", string(action)).
			Str("reason", denied.Reason).
			Msg("permission denied")
		s.analytics.TrackSecurityEvent(ctx, actor.Email, EventPermissionDenied, map[string]interface{}{
			"action": string(action),
			"reason": denied.Reason,
		})
	}
	return err
}

func (s *AdminUserService) load(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, upstream("find admin user", err)
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

// List returns the admin users visible to actor. Operators are refused with a
// permission error rather than an empty list, so callers can tell "not
// allowed" apart from "no rows".
func (s *AdminUserService) List(ctx context.Context, actor *models.AdminUser) ([]*models.AdminUser, error) {
	a := authz.ActorFrom(actor)
	if authz.AdminListScope(a) == authz.ScopeNone {
		if err := s.authorize(ctx, actor, authz.ActionListAdminUsers, nil); err != nil {
			return nil, err
		}
	}

	users, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, upstream("list admin users", err)
	}
	return authz.FilterVisible(a, users), nil
}

// Create adds a Pending admin user and invites them. When the identity already
// exists a password reset is sent instead. If neither email can be sent the row
// is removed again.
func (s *AdminUserService) Create(ctx context.Context, actor *models.AdminUser, email string, role models.Role) (*models.AdminUser, error) {
	if !role.Valid() {
		return nil, NewValidationError("role", "must be one of: Overwatch Admin Operator Viewer")
	}
	if err := s.authorize(ctx, actor, authz.ActionCreateAdminUser, authz.NewRoleTarget(role)); err != nil {
		return nil, err
	}

	user := &models.AdminUser{
		Email:  models.NormalizeEmail(email),
		Role:   role,
		Status: models.StatusPending,
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("admin user %s: %w", user.Email, ErrConflict)
		}
		return nil, upstream("insert admin user", err)
	}

	logger := logging.Security(actor.Email)
	_, err := s.idp.InviteUser(ctx, user.Email)
	if errors.Is(err, ErrIdentityExists) {
		err = s.idp.SendPasswordReset(ctx, user.Email)
	}
	if err != nil {
		if _, delErr := s.repo.Delete(ctx, user.ID, actor.Email); delErr != nil {
			logger.Error().Err(delErr).Str("target", user.Email).Msg("failed to roll back admin user after invite failure")
		}
		logger.Error().Err(err).Str("upstream", "identity_provider").Str("target", user.Email).Msg("invite failed")
		if errors.Is(err, ErrUpstreamUnavailable) {
			return nil, err
		}
		return nil, upstream("invite admin user", err)
	}

	logger.Info().Str("target", user.Email).Str("role", string(role)).Msg("admin user created")
	s.analytics.TrackSecurityEvent(ctx, user.Email, EventAdminInvited, map[string]interface{}{
		"role":       string(role),
		"invited_by": HashEmail(actor.Email),
	})
	return user, nil
}

// mutate applies fn to the freshest copy of the row until the version check
// passes. Every reloaded copy is authorized again before fn sees it.
func (s *AdminUserService) mutate(ctx context.Context, actor *models.AdminUser, action authz.Action, target *models.AdminUser, fn func(*models.AdminUser) *models.AdminUser) (*models.AdminUser, *models.AdminUser, error) {
	current := target
	for attempt := 0; attempt < s.opts.CASRetries; attempt++ {
		next := fn(current)
		ok, err := s.repo.Update(ctx, next, current.Version)
		if err != nil {
			return nil, nil, upstream("update admin user", err)
		}
		if ok {
			return current, next, nil
		}
		if current, err = s.load(ctx, target.ID); err != nil {
			return nil, nil, err
		}
		// The row moved underneath us; its new role or status may no longer be ours to change.
		if err := s.authorize(ctx, actor, action, authz.TargetFrom(current)); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, fmt.Errorf("update admin user: %w", ErrConflict)
}

// ChangeRole sets a new role on the target
func (s *AdminUserService) ChangeRole(ctx context.Context, actor *models.AdminUser, id uuid.UUID, role models.Role) (*models.AdminUser, error) {
	if !role.Valid() {
		return nil, NewValidationError("role", "must be one of: Overwatch Admin Operator Viewer")
	}
	target, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.ActionChangeRole, authz.TargetFrom(target)); err != nil {
		return nil, err
	}

	before, after, err := s.mutate(ctx, actor, authz.ActionChangeRole, target, func(u *models.AdminUser) *models.AdminUser {
		next := u.Clone()
		next.Role = role
		return next
	})
	if err != nil {
		return nil, err
	}

	logger := logging.Security(actor.Email)
	logger.Info().
		Str("target", after.Email).
		Str("from_role", string(before.Role)).
		Str("role", string(after.Role)).
		Msg("admin role changed")
	s.analytics.TrackSecurityEvent(ctx, after.Email, EventRoleChanged, map[string]interface{}{
		"from": string(before.Role),
		"to":   string(after.Role),
	})
	return after, nil
}

// ChangeStatus moves the target to status. Leaving Suspended or Inactive for
// Active clears the lockout state in the same write.
func (s *AdminUserService) ChangeStatus(ctx context.Context, actor *models.AdminUser, id uuid.UUID, status models.Status, reason string) (*StatusChange, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", "must be one of: Active Pending Inactive Suspended")
	}
	target, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, authz.ActionChangeStatus, authz.TargetFrom(target)); err != nil {
		return nil, err
	}

	before, after, err := s.mutate(ctx, actor, authz.ActionChangeStatus, target, func(u *models.AdminUser) *models.AdminUser {
		return lockout.OnStatusChange(u, status, reason)
	})
	if err != nil {
		return nil, err
	}

	logger := logging.Security(actor.Email)
	logger.Info().
		Str("target", after.Email).
		Str("from_status", string(before.Status)).
		Str("status", string(after.Status)).
		Msg("admin status changed")

	event := EventStatusChanged
	if after.Status == models.StatusActive && (before.Status == models.StatusSuspended || before.Status == models.StatusInactive) {
		event = EventAccountReactivate
	}
	s.analytics.TrackSecurityEvent(ctx, after.Email, event, map[string]interface{}{
		"from": string(before.Status),
		"to":   string(after.Status),
	})

	result := &StatusChange{User: after}
	if s.opts.ActivationSendsReset && before.Status == models.StatusPending && after.Status == models.StatusActive {
		if err := s.idp.SendPasswordReset(ctx, after.Email); err != nil {
			logger.Error().Err(err).Str("upstream", "identity_provider").Str("target", after.Email).Msg("activation reset email failed")
		} else {
			result.ResetEmailSent = true
		}
	}
	return result, nil
}

// Delete removes the target admin user. The actor's own row is never removed.
func (s *AdminUserService) Delete(ctx context.Context, actor *models.AdminUser, id uuid.UUID) error {
	target, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, authz.ActionDeleteAdminUser, authz.TargetFrom(target)); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id, actor.Email)
	if err != nil {
		return upstream("delete admin user", err)
	}
	if !deleted {
		return ErrNotFound
	}

	logger := logging.Security(actor.Email)
	logger.Info().Str("target", target.Email).Str("role", string(target.Role)).Msg("admin user deleted")
	s.analytics.TrackSecurityEvent(ctx, target.Email, EventAdminDeleted, nil)
	return nil
}

// BulkAction names a bulk admin operation
type BulkAction string

const (
	BulkRole   BulkAction = "role"
	BulkStatus BulkAction = "status"
	BulkDelete BulkAction = "delete"
)

// BulkRequest describes a bulk admin operation
type BulkRequest struct {
	IDs    []uuid.UUID
	Action BulkAction
	Role   models.Role
	Status models.Status
	Reason string
}

func (a BulkAction) authzAction() (authz.Action, bool) {
	switch a {
	case BulkRole:
		return authz.ActionBulkChangeRole, true
	case BulkStatus:
		return authz.ActionBulkChangeStatus, true
	case BulkDelete:
		return authz.ActionBulkDelete, true
	}
	return "", false
}

// Bulk applies one operation to many admin users. Every target is checked first
// and a single denial rejects the whole request. The write is pinned to the
// versions that were checked; if any row changed meanwhile the targets are
// reloaded and checked again.
func (s *AdminUserService) Bulk(ctx context.Context, actor *models.AdminUser, req BulkRequest) (*BulkResult, error) {
	action, ok := req.Action.authzAction()
	if !ok {
		return nil, NewValidationError("action", "must be one of: role status delete")
	}
	if len(req.IDs) == 0 {
		return nil, NewValidationError("ids", "is required")
	}
	if req.Action == BulkRole && !req.Role.Valid() {
		return nil, NewValidationError("role", "must be one of: Overwatch Admin Operator Viewer")
	}
	if req.Action == BulkStatus && !req.Status.Valid() {
		return nil, NewValidationError("status", "must be one of: Active Pending Inactive Suspended")
	}

	logger := logging.Security(actor.Email)
	result := &BulkResult{}
	var targets []*models.AdminUser
	for attempt := 0; ; attempt++ {
		if attempt == s.opts.CASRetries {
			return nil, fmt.Errorf("bulk %s: %w", req.Action, ErrConflict)
		}
		var err error
		if targets, err = s.bulkTargets(ctx, actor, action, req.IDs); err != nil {
			return nil, err
		}
		rows := make([]repositories.RowVersion, len(targets))
		for i, t := range targets {
			rows[i] = repositories.RowVersion{ID: t.ID, Version: t.Version}
		}

		switch req.Action {
		case BulkRole:
			result.Affected, err = s.repo.BulkUpdateRole(ctx, rows, req.Role)
		case BulkStatus:
			var reason *string
			if req.Status == models.StatusSuspended && req.Reason != "" {
				reason = &req.Reason
			}
			result.Affected, err = s.repo.BulkUpdateStatus(ctx, rows, req.Status, reason)
		case BulkDelete:
			result.Affected, err = s.repo.BulkDelete(ctx, rows, actor.Email)
		}
		if errors.Is(err, repositories.ErrStale) {
			// Some target changed since it was checked: reload and decide again.
			continue
		}
		if err != nil {
			logger.Error().Err(err).Str("upstream", "admin_store").Str("action", string(action)).Msg("bulk operation failed")
			return nil, upstream("bulk "+string(req.Action), err)
		}
		break
	}

	logger.Info().
		Str("action", string(action)).
		Int("requested", len(targets)).
		Int64("affected", result.Affected).
		Msg("bulk admin operation")

	if req.Action == BulkStatus && req.Status == models.StatusActive && s.opts.BulkActivationSendsReset {
		var activated []string
		for _, t := range targets {
			if t.Status == models.StatusPending {
				activated = append(activated, t.Email)
			}
		}
		result.ResetsSent, result.ResetErrors = s.sendResets(ctx, activated)
	}
	return result, nil
}

// bulkTargets loads each distinct id and authorizes action against it. A single
// denial rejects the whole request.
func (s *AdminUserService) bulkTargets(ctx context.Context, actor *models.AdminUser, action authz.Action, ids []uuid.UUID) ([]*models.AdminUser, error) {
	targets := make([]*models.AdminUser, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		t, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.authorize(ctx, actor, action, authz.TargetFrom(t)); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// sendResets emails password resets concurrently and counts successes and failures
func (s *AdminUserService) sendResets(ctx context.Context, emails []string) (int, int) {
	if len(emails) == 0 {
		return 0, 0
	}

	errs := make([]error, len(emails))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resetFanOut)
	for i, email := range emails {
		g.Go(func() error {
			errs[i] = s.idp.SendPasswordReset(gctx, email)
			return nil
		})
	}
	_ = g.Wait()

	sent, failed := 0, 0
	for i, err := range errs {
		if err != nil {
			failed++
			logger := logging.NewLogger("admin_users")
			logger.Error().Err(err).Str("target", emails[i]).Msg("bulk activation reset email failed")
			continue
		}
		sent++
	}
	return sent, failed
}

// SeedOverwatch creates the first Overwatch account when the admin table is empty
func (s *AdminUserService) SeedOverwatch(ctx context.Context, seeder PasswordSeeder, email, password string) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, upstream("count admin users", err)
	}
	if n > 0 {
		return false, nil
	}

	if err := seeder.EnsurePassword(ctx, email, password); err != nil {
		return false, err
	}
	user := &models.AdminUser{
		Email:     models.NormalizeEmail(email),
		Role:      models.RoleOverwatch,
		Status:    models.StatusActive,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		return false, upstream("insert overwatch", err)
	}
	return true, nil
}

// Principal loads the admin row behind an authenticated email
func (s *AdminUserService) Principal(ctx context.Context, email string) (*models.AdminUser, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, upstream("find admin user", err)
	}
	return u, nil
}
