package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/staff-cards/src/middleware"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/services"
	"github.com/khabaroff/staff-cards/src/validators"
)

// AdminUserHandler serves /api/admin/users
type AdminUserHandler struct {
	admins       *services.AdminUserService
	supportEmail string
}

// NewAdminUserHandler creates a new admin user handler
func NewAdminUserHandler(admins *services.AdminUserService, supportEmail string) *AdminUserHandler {
	return &AdminUserHandler{admins: admins, supportEmail: supportEmail}
}

// HandleList lists the admin users visible to the principal
func (h *AdminUserHandler) HandleList(c *gin.Context) {
	users, err := h.admins.List(c.Request.Context(), middleware.CurrentAdmin(c))
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// HandleCreate invites a new admin user
func (h *AdminUserHandler) HandleCreate(c *gin.Context) {
	var req validators.CreateAdminUserRequest
	if !bindValid(c, &req) {
		return
	}
	role, _ := models.ParseRole(req.Role)

	user, err := h.admins.Create(c.Request.Context(), middleware.CurrentAdmin(c), req.Email, role)
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// HandleChangeRole sets the role of one admin user
func (h *AdminUserHandler) HandleChangeRole(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	var req validators.ChangeRoleRequest
	if !bindValid(c, &req) {
		return
	}
	role, _ := models.ParseRole(req.Role)

	user, err := h.admins.ChangeRole(c.Request.Context(), middleware.CurrentAdmin(c), id, role)
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// HandleChangeStatus sets the status of one admin user
func (h *AdminUserHandler) HandleChangeStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	var req validators.ChangeStatusRequest
	if !bindValid(c, &req) {
		return
	}
	status, _ := models.ParseStatus(req.Status)

	res, err := h.admins.ChangeStatus(c.Request.Context(), middleware.CurrentAdmin(c), id, status, req.Reason)
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleDelete removes one admin user
func (h *AdminUserHandler) HandleDelete(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	if err := h.admins.Delete(c.Request.Context(), middleware.CurrentAdmin(c), id); err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// HandleBulk applies one operation to many admin users
func (h *AdminUserHandler) HandleBulk(c *gin.Context) {
	var req validators.BulkAdminRequest
	if !bindValid(c, &req) {
		return
	}
	role, _ := models.ParseRole(req.Role)
	status, _ := models.ParseStatus(req.Status)

	res, err := h.admins.Bulk(c.Request.Context(), middleware.CurrentAdmin(c), services.BulkRequest{
		IDs:    req.IDs,
		Action: services.BulkAction(req.Action),
		Role:   role,
		Status: status,
		Reason: req.Reason,
	})
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, res)
}
