package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/staff-cards/src/middleware"
	"github.com/khabaroff/staff-cards/src/services"
	"github.com/khabaroff/staff-cards/src/validators"
)

// EmployeeHandler serves /api/employees and the nested link routes
type EmployeeHandler struct {
	employees    *services.EmployeeService
	supportEmail string
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(employees *services.EmployeeService, supportEmail string) *EmployeeHandler {
	return &EmployeeHandler{employees: employees, supportEmail: supportEmail}
}

// HandleList lists every employee
func (h *EmployeeHandler) HandleList(c *gin.Context) {
	list, err := h.employees.List(c.Request.Context(), middleware.CurrentAdmin(c))
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": list})
}

// HandleGet returns one employee with its links
func (h *EmployeeHandler) HandleGet(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	e, err := h.employees.Get(c.Request.Context(), middleware.CurrentAdmin(c), id)
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, e)
}

// HandleCreate adds an employee
func (h *EmployeeHandler) HandleCreate(c *gin.Context) {
	var req validators.EmployeeRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.employees.Create(c.Request.Context(), middleware.CurrentAdmin(c), &req)
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// HandleUpdate replaces an employee's editable fields
func (h *EmployeeHandler) HandleUpdate(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	var req validators.EmployeeRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.employees.Update(c.Request.Context(), middleware.CurrentAdmin(c), id, &req)
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, e)
}

// HandleSetStatus shows or hides an employee's public card
func (h *EmployeeHandler) HandleSetStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	var req validators.EmployeeStatusRequest
	if !bindValid(c, &req) {
		return
	}
	if err := h.employees.SetActive(c.Request.Context(), middleware.CurrentAdmin(c), id, *req.IsActive); err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": *req.IsActive})
}

// HandleDelete removes an employee
func (h *EmployeeHandler) HandleDelete(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	if err := h.employees.Delete(c.Request.Context(), middleware.CurrentAdmin(c), id); err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// HandleListLinks lists an employee's links
func (h *EmployeeHandler) HandleListLinks(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	links, err := h.employees.ListLinks(c.Request.Context(), middleware.CurrentAdmin(c), id)
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// HandleCreateLink adds a link to an employee
func (h *EmployeeHandler) HandleCreateLink(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	var req validators.LinkRequest
	if !bindJSON(c, &req) {
		return
	}
	link, err := h.employees.CreateLink(c.Request.Context(), middleware.CurrentAdmin(c), id, &req)
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusCreated, link)
}

// HandleUpdateLink edits a link
func (h *EmployeeHandler) HandleUpdateLink(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	linkID, ok := uuidParam(c, "link_id", c.Param("link_id"))
	if !ok {
		return
	}
	var req validators.LinkRequest
	if !bindJSON(c, &req) {
		return
	}
	link, err := h.employees.UpdateLink(c.Request.Context(), middleware.CurrentAdmin(c), id, linkID, &req)
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, link)
}

// HandleDeleteLink removes a link
func (h *EmployeeHandler) HandleDeleteLink(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	linkID, ok := uuidParam(c, "link_id", c.Param("link_id"))
	if !ok {
		return
	}
	if err := h.employees.DeleteLink(c.Request.Context(), middleware.CurrentAdmin(c), id, linkID); err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
