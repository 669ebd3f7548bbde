package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/staff-cards/src/services"
)

// PublicHandler serves the unauthenticated card endpoints
type PublicHandler struct {
	employees *services.EmployeeService
	cards     *services.CardService
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(employees *services.EmployeeService, cards *services.CardService) *PublicHandler {
	return &PublicHandler{employees: employees, cards: cards}
}

// HandleProfile returns an active employee's public profile
func (h *PublicHandler) HandleProfile(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Param("id"))
	if !ok {
		return
	}
	e, err := h.employees.PublicProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, e)
}

// HandleQRCode returns a PNG data URL pointing at the employee's profile page
func (h *PublicHandler) HandleQRCode(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Query("id"))
	if !ok {
		return
	}
	dataURL, err := h.cards.QRCodeDataURL(id)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"qrCode": dataURL})
}

// HandleVCard serves the employee's contact card as a download
func (h *PublicHandler) HandleVCard(c *gin.Context) {
	id, ok := uuidParam(c, "id", c.Query("id"))
	if !ok {
		return
	}
	body, filename, err := h.cards.VCard(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/vcard; charset=utf-8", body)
}

// HandleCSVTemplate serves the employee import template
func (h *PublicHandler) HandleCSVTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="employee-import-template.csv"`)
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(services.CSVTemplate))
}
