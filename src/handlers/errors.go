package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/authz"
	"github.com/khabaroff/staff-cards/src/middleware"
	"github.com/khabaroff/staff-cards/src/services"
	"github.com/khabaroff/staff-cards/src/validators"
	"github.com/rs/zerolog/log"
)

// respondError maps a service error onto an HTTP response. Upstream failures
// never produce a 2xx.
func respondError(c *gin.Context, err error, supportEmail string) {
	var (
		denied  *authz.PermissionDeniedError
		blocked *authz.AccountBlockedError
		verr    *services.ValidationError
		ierr    *services.ImportError
	)

	switch {
	case errors.As(err, &blocked):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "account_blocked",
			"status":  string(blocked.Status),
			"reason":  blocked.Reason,
			"contact": supportEmail,
		})
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, gin.H{
			"error":  "permission_denied",
			"action": string(denied.Action),
			"reason": denied.Reason,
		})
	case errors.As(err, &ierr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "validation_failed",
			"rows":  ierr.Rows,
		})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_token"})
	case errors.Is(err, services.ErrUpstreamUnavailable):
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Str("upstream", "dependency").Msg("upstream unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upstream_unavailable"})
	default:
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

// bindJSON decodes the body and writes a 400 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// bindValid decodes the body and runs struct validation
func bindValid(c *gin.Context, dst interface{}) bool {
	if !bindJSON(c, dst) {
		return false
	}
	if errs := validators.Validate(dst); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, validators.ValidationResponse{Error: "validation_failed", Errors: errs})
		return false
	}
	return true
}

// uuidParam parses a path or query value as a UUID and writes a 400 when it is not one
func uuidParam(c *gin.Context, name, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
