package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// HealthChecker is a dependency that can report whether it is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db       HealthChecker
	sessions HealthChecker
}

// NewHealthHandler creates a new health handler. sessions may be nil when the
// in-memory session store is used.
func NewHealthHandler(db, sessions HealthChecker) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions}
}

func (hh *HealthHandler) check(ctx context.Context) (gin.H, bool) {
	body := gin.H{}
	healthy := true

	start := time.Now()
	if err := hh.db.Health(ctx); err != nil {
		body["database"] = "disconnected"
		body["database_error"] = err.Error()
		healthy = false
	} else {
		body["database"] = "connected"
		body["db_latency"] = time.Since(start).String()
	}

	if hh.sessions != nil {
		if err := hh.sessions.Health(ctx); err != nil {
			body["sessions"] = "disconnected"
			body["sessions_error"] = err.Error()
			healthy = false
		} else {
			body["sessions"] = "connected"
		}
	}
	return body, healthy
}

// HandleHealth returns health status with dependency checks
func (hh *HealthHandler) HandleHealth(c *gin.Context) {
	body, healthy := hh.check(c.Request.Context())
	body["uptime"] = time.Since(startTime).String()
	if !healthy {
		body["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ok"
	c.JSON(http.StatusOK, body)
}

// HandleReady returns readiness status (for load balancers)
func (hh *HealthHandler) HandleReady(c *gin.Context) {
	if _, healthy := hh.check(c.Request.Context()); !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}
