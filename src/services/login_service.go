package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/khabaroff/staff-cards/src/lockout"
	"github.com/khabaroff/staff-cards/src/logging"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
)

// DefaultCASRetries bounds how often a lockout counter write is retried after losing a version race
const DefaultCASRetries = 5

// LoginOutcome is the user-facing result of a login attempt
type LoginOutcome string

const (
	LoginSuccess            LoginOutcome = "success"
	LoginInvalidCredentials LoginOutcome = "invalid_credentials"
	LoginSuspended          LoginOutcome = "suspended"
	LoginInactive           LoginOutcome = "inactive"
	LoginNotAdmin           LoginOutcome = "not_admin"
)

// LoginResult describes a completed login decision. Infrastructure failures are
// returned as errors instead.
type LoginResult struct {
	Outcome           LoginOutcome
	Session           *Session
	User              *models.AdminUser
	AttemptsRemaining *int
	LockoutReason     string
	Contact           string
}

// LoginOptions tunes the orchestrator
type LoginOptions struct {
	// DeferBlockedDisclosure reports Suspended/Inactive only after the password
	// verifies, so a wrong password never reveals that an email is a blocked admin.
	DeferBlockedDisclosure bool
	SupportEmail           string
	CASRetries             int
}

// LoginService runs the login sequence: account lookup, blocked short-circuit,
// credential check, lockout bookkeeping and session issue.
type LoginService struct {
	admins    repositories.AdminUserRepository
	idp       IdentityProvider
	policy    lockout.Policy
	analytics *AnalyticsService
	opts      LoginOptions
	now       func() time.Time
}

// NewLoginService creates a new login service
func NewLoginService(admins repositories.AdminUserRepository, idp IdentityProvider, policy lockout.Policy, analytics *AnalyticsService, opts LoginOptions) *LoginService {
	if opts.CASRetries <= 0 {
		opts.CASRetries = DefaultCASRetries
	}
	return &LoginService{
		admins:    admins,
		idp:       idp,
		policy:    policy,
		analytics: analytics,
		opts:      opts,
		now:       time.Now,
	}
}

// SetClock overrides the service's clock
func (s *LoginService) SetClock(now func() time.Time) {
	s.now = now
}

func isBlocked(status models.Status) bool {
	return status == models.StatusSuspended || status == models.StatusInactive
}

// Login authenticates email/password and applies the lockout rules
func (s *LoginService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = models.NormalizeEmail(email)
	logger := logging.Security(email)

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		logger.Error().Err(err).Str("upstream", "admin_store").Msg("login lookup failed")
		return nil, upstream("find admin user", err)
	}

	if admin != nil && isBlocked(admin.Status) && !s.opts.DeferBlockedDisclosure {
		logger.Warn().Str("status", string(admin.Status)).Str("outcome", "blocked").Msg("login refused for blocked account")
		s.analytics.TrackSecurityEvent(ctx, email, EventLoginBlocked, map[string]interface{}{"status": string(admin.Status)})
		return s.blockedResult(admin), nil
	}

	session, err := s.idp.Authenticate(ctx, email, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			logger.Error().Err(err).Str("upstream", "identity_provider").Msg("authentication failed")
			if errors.Is(err, ErrUpstreamUnavailable) {
				return nil, err
			}
			return nil, upstream("authenticate", err)
		}
		return s.onFailure(ctx, admin, email)
	}

	if admin == nil {
		s.signOutQuietly(ctx, session, email)
		logger.Warn().Str("outcome", string(LoginNotAdmin)).Msg("authenticated principal has no admin account")
		return &LoginResult{Outcome: LoginNotAdmin}, nil
	}

	if isBlocked(admin.Status) {
		s.signOutQuietly(ctx, session, email)
		logger.Warn().Str("status", string(admin.Status)).Str("outcome", "blocked").Msg("login refused for blocked account")
		s.analytics.TrackSecurityEvent(ctx, email, EventLoginBlocked, map[string]interface{}{"status": string(admin.Status)})
		return s.blockedResult(admin), nil
	}

	return s.onSuccess(ctx, admin, session)
}

func (s *LoginService) blockedResult(admin *models.AdminUser) *LoginResult {
	if admin.Status == models.StatusInactive {
		return &LoginResult{Outcome: LoginInactive, Contact: s.opts.SupportEmail}
	}
	res := &LoginResult{Outcome: LoginSuspended, Contact: s.opts.SupportEmail}
	if admin.LockoutReason != nil {
		res.LockoutReason = *admin.LockoutReason
	}
	return res
}

func (s *LoginService) signOutQuietly(ctx context.Context, session *Session, email string) {
	if err := s.idp.SignOut(ctx, session.SessionID); err != nil {
		logger := logging.Security(email)
		logger.Error().Err(err).Str("upstream", "identity_provider").Msg("failed to sign out rejected session")
	}
}

func (s *LoginService) onFailure(ctx context.Context, admin *models.AdminUser, email string) (*LoginResult, error) {
	logger := logging.Security(email)
	generic := &LoginResult{Outcome: LoginInvalidCredentials}

	if admin == nil {
		logger.Warn().Str("outcome", string(LoginInvalidCredentials)).Msg("failed login for unknown email")
		return generic, nil
	}

	res, err := s.recordFailure(ctx, admin)
	if err != nil {
		logger.Error().Err(err).Str("upstream", "admin_store").Msg("failed to record failed login")
		return nil, err
	}
	if res == nil {
		// Row deleted while we were counting.
		return generic, nil
	}

	switch res.Outcome {
	case lockout.OutcomeSuspendedNow:
		logger.Warn().
			Str("role", string(res.Account.Role)).
			Str("status", string(res.Account.Status)).
			Int("attempts", res.Account.FailedLoginAttempts).
			Str("outcome", string(res.Outcome)).
			Msg("account automatically suspended")
		s.analytics.TrackSecurityEvent(ctx, email, EventAccountSuspended, map[string]interface{}{
			"attempts": res.Account.FailedLoginAttempts,
			"trigger":  "lockout",
		})
		return s.blockedResult(res.Account), nil

	case lockout.OutcomeBlocked:
		if s.opts.DeferBlockedDisclosure {
			return generic, nil
		}
		return s.blockedResult(res.Account), nil
	}

	remaining := res.AttemptsRemaining
	logger.Warn().
		Str("role", string(res.Account.Role)).
		Str("status", string(res.Account.Status)).
		Int("attempts", res.Account.FailedLoginAttempts).
		Int("attempts_remaining", remaining).
		Str("outcome", string(res.Outcome)).
		Msg("failed login")
	s.analytics.TrackSecurityEvent(ctx, email, EventLoginFailed, map[string]interface{}{
		"attempts":           res.Account.FailedLoginAttempts,
		"attempts_remaining": remaining,
	})
	generic.AttemptsRemaining = &remaining
	return generic, nil
}

// recordFailure applies OnFailedLogin with optimistic concurrency. It returns nil
// when the account vanished between reads.
func (s *LoginService) recordFailure(ctx context.Context, snapshot *models.AdminUser) (*lockout.Result, error) {
	for attempt := 0; attempt < s.opts.CASRetries; attempt++ {
		res := s.policy.OnFailedLogin(snapshot, s.now())
		if !res.Changed() {
			return &res, nil
		}

		ok, err := s.admins.Update(ctx, res.Account, snapshot.Version)
		if err != nil {
			return nil, upstream("update lockout counters", err)
		}
		if ok {
			return &res, nil
		}

		snapshot, err = s.admins.FindByID(ctx, snapshot.ID)
		if err != nil {
			return nil, upstream("reload admin user", err)
		}
		if snapshot == nil {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("record failed login: %w", ErrConflict)
}

func (s *LoginService) onSuccess(ctx context.Context, admin *models.AdminUser, session *Session) (*LoginResult, error) {
	logger := logging.Security(admin.Email)

	current, err := s.recordSuccess(ctx, admin)
	if err != nil {
		// Fail closed: no session without a consistent counter reset.
		s.signOutQuietly(ctx, session, admin.Email)
		logger.Error().Err(err).Str("upstream", "admin_store").Msg("failed to reset lockout counters")
		return nil, err
	}
	if current == nil {
		s.signOutQuietly(ctx, session, admin.Email)
		return &LoginResult{Outcome: LoginNotAdmin}, nil
	}
	if isBlocked(current.Status) {
		s.signOutQuietly(ctx, session, admin.Email)
		return s.blockedResult(current), nil
	}

	logger.Info().
		Str("role", string(current.Role)).
		Str("status", string(current.Status)).
		Str("outcome", string(LoginSuccess)).
		Msg("login succeeded")
	s.analytics.TrackSecurityEvent(ctx, admin.Email, EventLoginSucceeded, map[string]interface{}{"role": string(current.Role)})

	return &LoginResult{Outcome: LoginSuccess, Session: session, User: current}, nil
}

// recordSuccess clears the counters with optimistic concurrency. A concurrent
// suspension wins: the reloaded row is returned as-is so the caller can refuse.
func (s *LoginService) recordSuccess(ctx context.Context, snapshot *models.AdminUser) (*models.AdminUser, error) {
	for attempt := 0; attempt < s.opts.CASRetries; attempt++ {
		if isBlocked(snapshot.Status) {
			return snapshot, nil
		}
		if snapshot.FailedLoginAttempts == 0 && snapshot.FirstFailedLoginAt == nil && snapshot.LastFailedLoginAt == nil {
			return snapshot, nil
		}

		next := lockout.OnSuccessfulLogin(snapshot)
		ok, err := s.admins.Update(ctx, next, snapshot.Version)
		if err != nil {
			return nil, upstream("reset lockout counters", err)
		}
		if ok {
			return next, nil
		}

		snapshot, err = s.admins.FindByID(ctx, snapshot.ID)
		if err != nil {
			return nil, upstream("reload admin user", err)
		}
		if snapshot == nil {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("record successful login: %w", ErrConflict)
}

// Logout ends a session
func (s *LoginService) Logout(ctx context.Context, sessionID string) error {
	return s.idp.SignOut(ctx, sessionID)
}
