package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/staff-cards/src/authz"
	"github.com/khabaroff/staff-cards/src/middleware"
	"github.com/khabaroff/staff-cards/src/services"
	"github.com/khabaroff/staff-cards/src/validators"
)

// AuthHandler serves login, logout, password setup and the current principal
type AuthHandler struct {
	login        *services.LoginService
	idp          services.IdentityProvider
	supportEmail string
	secureCookie bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(login *services.LoginService, idp services.IdentityProvider, supportEmail string, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		login:        login,
		idp:          idp,
		supportEmail: supportEmail,
		secureCookie: secureCookie,
	}
}

// HandleLogin runs the login sequence and reports its outcome
func (ah *AuthHandler) HandleLogin(c *gin.Context) {
	var req validators.LoginRequest
	if !bindValid(c, &req) {
		return
	}

	res, err := ah.login.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, ah.supportEmail)
		return
	}

	switch res.Outcome {
	case services.LoginSuccess:
		maxAge := int(time.Until(res.Session.ExpiresAt).Seconds())
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(middleware.SessionCookie, res.Session.Token, maxAge, "/", "", ah.secureCookie, true)
		c.JSON(http.StatusOK, gin.H{
			"status":     "success",
			"token":      res.Session.Token,
			"expires_at": res.Session.ExpiresAt,
			"user":       res.User,
		})
	case services.LoginInvalidCredentials:
		body := gin.H{
			"status": string(res.Outcome),
			"error":  "Invalid email or password",
		}
		if res.AttemptsRemaining != nil {
			body["attempts_remaining"] = *res.AttemptsRemaining
		}
		c.JSON(http.StatusUnauthorized, body)
	case services.LoginSuspended:
		c.JSON(http.StatusForbidden, gin.H{
			"status":         string(res.Outcome),
			"lockout_reason": res.LockoutReason,
			"contact":        res.Contact,
		})
	case services.LoginInactive:
		c.JSON(http.StatusForbidden, gin.H{
			"status":  string(res.Outcome),
			"contact": res.Contact,
		})
	case services.LoginNotAdmin:
		c.JSON(http.StatusForbidden, gin.H{
			"status": string(res.Outcome),
			"error":  "This account does not have admin access",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

// HandleLogout revokes the current session
func (ah *AuthHandler) HandleLogout(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}
	if err := ah.login.Logout(c.Request.Context(), principal.SessionID); err != nil {
		respondError(c, err, ah.supportEmail)
		return
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", ah.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// HandlePasswordSetup redeems an invite or reset token
func (ah *AuthHandler) HandlePasswordSetup(c *gin.Context) {
	var req validators.PasswordSetupRequest
	if !bindValid(c, &req) {
		return
	}
	if err := ah.idp.CompletePasswordSetup(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, err, ah.supportEmail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password_set"})
}

// HandleMe returns the principal's admin row with its access level and capabilities
func (ah *AuthHandler) HandleMe(c *gin.Context) {
	admin := middleware.CurrentAdmin(c)
	if admin == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
		return
	}

	actor := authz.ActorFrom(admin)
	caps := authz.Capabilities(actor)
	capabilities := make(map[string]bool, len(caps))
	for action, allowed := range caps {
		capabilities[string(action)] = allowed
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         admin,
		"access_level": authz.EffectiveAccessLevel(admin.Status, admin.Role).String(),
		"capabilities": capabilities,
	})
}
