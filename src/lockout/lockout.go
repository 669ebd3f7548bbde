// Package lockout implements the failed-login state machine for admin accounts.
//
// All functions are pure: they take a snapshot of an account and return a new
// snapshot. Persisting the result atomically is the caller's job.
package lockout

import (
	"fmt"
	"time"

	"github.com/khabaroff/staff-cards/src/models"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 10 * time.Minute
)

// Policy configures the lockout threshold and the counting window
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultPolicy is 5 failures within 10 minutes
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Window: DefaultWindow}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Window <= 0 {
		p.Window = DefaultWindow
	}
	return p
}

// Outcome is the result of a failed login attempt
type Outcome string

const (
	// OutcomeBlocked means the account was already Suspended or Inactive; nothing was counted
	OutcomeBlocked Outcome = "blocked"
	// OutcomeSuspendedNow means this attempt crossed the threshold
	OutcomeSuspendedNow Outcome = "suspended_now"
	// OutcomeRejectedCredentials means the attempt was counted and the account is still usable
	OutcomeRejectedCredentials Outcome = "rejected_credentials"
)

// Phase is the lockout state of an account
type Phase string

const (
	PhaseNormal    Phase = "normal"
	PhaseWarning   Phase = "warning"
	PhaseSuspended Phase = "suspended"
)

// Result is the new account snapshot plus what the caller should tell the user
type Result struct {
	Account           *models.AdminUser
	Outcome           Outcome
	AttemptsRemaining int
}

// Changed reports whether the account needs to be persisted
func (r Result) Changed() bool {
	return r.Outcome != OutcomeBlocked
}

// PhaseOf classifies an account
func (p Policy) PhaseOf(u *models.AdminUser) Phase {
	p = p.normalized()
	switch {
	case u.Status == models.StatusSuspended || u.FailedLoginAttempts >= p.MaxAttempts:
		return PhaseSuspended
	case u.FailedLoginAttempts > 0:
		return PhaseWarning
	}
	return PhaseNormal
}

// OnFailedLogin counts a failed attempt made at now
func (p Policy) OnFailedLogin(u *models.AdminUser, now time.Time) Result {
	p = p.normalized()
	next := u.Clone()

	if u.Status == models.StatusSuspended || u.Status == models.StatusInactive {
		return Result{Account: next, Outcome: OutcomeBlocked}
	}

	at := now
	switch {
	case next.FirstFailedLoginAt == nil || next.FailedLoginAttempts <= 0:
		next.FirstFailedLoginAt = &at
		next.FailedLoginAttempts = 1
	case now.Sub(*next.FirstFailedLoginAt) > p.Window:
		next.FirstFailedLoginAt = &at
		next.FailedLoginAttempts = 1
	default:
		next.FailedLoginAttempts++
	}
	last := now
	next.LastFailedLoginAt = &last

	if next.FailedLoginAttempts >= p.MaxAttempts {
		reason := p.LockoutReason(now)
		next.Status = models.StatusSuspended
		next.LockoutReason = &reason
		return Result{Account: next, Outcome: OutcomeSuspendedNow}
	}

	return Result{
		Account:           next,
		Outcome:           OutcomeRejectedCredentials,
		AttemptsRemaining: p.MaxAttempts - next.FailedLoginAttempts,
	}
}

// LockoutReason is the message recorded on automatic suspension
func (p Policy) LockoutReason(now time.Time) string {
	p = p.normalized()
	return fmt.Sprintf("Automatic lockout: %d failed login attempts within %s at %s",
		p.MaxAttempts, describeWindow(p.Window), now.UTC().Format(time.RFC3339))
}

func describeWindow(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}

// OnSuccessfulLogin clears the counters. Role and status are untouched.
func OnSuccessfulLogin(u *models.AdminUser) *models.AdminUser {
	next := u.Clone()
	resetCounters(next)
	return next
}

// OnManualReactivation moves an account to Active and clears every trace of the lockout
func OnManualReactivation(u *models.AdminUser) *models.AdminUser {
	next := u.Clone()
	next.Status = models.StatusActive
	next.LockoutReason = nil
	resetCounters(next)
	return next
}

// OnStatusChange applies a status change made by an authorized principal.
// Moving a Suspended or Inactive account to Active is a reactivation. A manual
// suspension records reason when given; leaving Suspended clears the reason.
func OnStatusChange(u *models.AdminUser, status models.Status, reason string) *models.AdminUser {
	if status == models.StatusActive && (u.Status == models.StatusSuspended || u.Status == models.StatusInactive) {
		return OnManualReactivation(u)
	}

	next := u.Clone()
	next.Status = status
	switch {
	case status == models.StatusSuspended && reason != "":
		next.LockoutReason = &reason
	case status != models.StatusSuspended:
		next.LockoutReason = nil
	}
	return next
}

func resetCounters(u *models.AdminUser) {
	u.FailedLoginAttempts = 0
	u.FirstFailedLoginAt = nil
	u.LastFailedLoginAt = nil
}
