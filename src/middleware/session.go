package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/staff-cards/src/authz"
	"github.com/khabaroff/staff-cards/src/logging"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/services"
	"github.com/rs/zerolog/log"
)

// Context keys set by SessionAuthMiddleware
const (
	PrincipalKey = "principal"
	AdminUserKey = "admin_user"
)

// SessionCookie is the cookie fallback for the bearer token
const SessionCookie = "session_token"

// SessionVerifier validates session tokens and revokes sessions
type SessionVerifier interface {
	VerifyToken(ctx context.Context, token string) (*services.Principal, error)
	SignOut(ctx context.Context, sessionID string) error
}

// AdminLoader loads the admin row behind an authenticated email. It returns
// nil, nil when the email has no admin account.
type AdminLoader interface {
	Principal(ctx context.Context, email string) (*models.AdminUser, error)
}

// SessionAuthMiddleware authenticates the bearer token, loads the principal's
// current admin row and rejects blocked accounts before any handler runs.
// Blocked principals have their session revoked.
func SessionAuthMiddleware(sessions SessionVerifier, admins AdminLoader, supportEmail string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		ctx := c.Request.Context()
		principal, err := sessions.VerifyToken(ctx, token)
		if err != nil {
			if errors.Is(err, services.ErrUpstreamUnavailable) {
				log.Error().Err(err).Str("upstream", "session_store").Msg("session verification failed")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "upstream_unavailable"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		admin, err := admins.Principal(ctx, principal.Email)
		if err != nil {
			log.Error().Err(err).Str("upstream", "admin_store").Msg("failed to load principal")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "upstream_unavailable"})
			return
		}

		logger := logging.Security(principal.Email)
		if admin == nil {
			revoke(ctx, sessions, principal.SessionID)
			logger.Warn().Str("outcome", "not_admin").Msg("session principal has no admin account")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "not_admin", "error": "not_admin"})
			return
		}

		if authz.EffectiveAccessLevel(admin.Status, admin.Role) == authz.AccessBlocked {
			revoke(ctx, sessions, principal.SessionID)
			logger.Warn().
				Str("role", string(admin.Role)).
				Str("status", string(admin.Status)).
				Str("outcome", "blocked_session").
				Msg("blocked account session terminated")
			c.AbortWithStatusJSON(http.StatusForbidden, BlockedBody(admin, supportEmail))
			return
		}

		c.Set(PrincipalKey, principal)
		c.Set(AdminUserKey, admin)
		c.Next()
	}
}

// BlockedBody is the 403 payload for a suspended or inactive account
func BlockedBody(admin *models.AdminUser, supportEmail string) gin.H {
	body := gin.H{
		"error":   "account_blocked",
		"status":  string(admin.Status),
		"contact": supportEmail,
	}
	switch {
	case admin.LockoutReason != nil && *admin.LockoutReason != "":
		body["reason"] = *admin.LockoutReason
	case admin.Status == models.StatusSuspended:
		body["reason"] = authz.ReasonSuspended
	case admin.Status == models.StatusInactive:
		body["reason"] = authz.ReasonInactive
	default:
		body["reason"] = authz.ReasonUnknownAccount
	}
	return body
}

func revoke(ctx context.Context, sessions SessionVerifier, sessionID string) {
	if err := sessions.SignOut(ctx, sessionID); err != nil {
		log.Error().Err(err).Str("upstream", "session_store").Msg("failed to revoke session")
	}
}

// BearerToken reads the token from the Authorization header or the session cookie
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// CurrentAdmin returns the authenticated admin row, or nil outside SessionAuthMiddleware
func CurrentAdmin(c *gin.Context) *models.AdminUser {
	if v, ok := c.Get(AdminUserKey); ok {
		if admin, ok := v.(*models.AdminUser); ok {
			return admin
		}
	}
	return nil
}

// CurrentPrincipal returns the verified session principal
func CurrentPrincipal(c *gin.Context) *services.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*services.Principal); ok {
			return p
		}
	}
	return nil
}
