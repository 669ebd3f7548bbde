package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/staff-cards/src/middleware"
	"github.com/khabaroff/staff-cards/src/services"
)

// maxImportBytes caps the CSV upload body
const maxImportBytes = 2 << 20

// FileHandler serves CSV import and photo upload
type FileHandler struct {
	importer     *services.ImportService
	photos       *services.PhotoService
	supportEmail string
}

// NewFileHandler creates a new file handler
func NewFileHandler(importer *services.ImportService, photos *services.PhotoService, supportEmail string) *FileHandler {
	return &FileHandler{importer: importer, photos: photos, supportEmail: supportEmail}
}

// HandleImportCSV imports employees from the multipart "file" field
func (h *FileHandler) HandleImportCSV(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	if header.Size > maxImportBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	res, err := h.importer.Import(c.Request.Context(), middleware.CurrentAdmin(c), f)
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"count":     res.Count,
		"employees": res.Employees,
	})
}

// HandleUpload stores an employee photo from the multipart "file" and "employeeId" fields
func (h *FileHandler) HandleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	employeeID := c.PostForm("employeeId")
	if err != nil || employeeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File and employeeId are required"})
		return
	}
	id, ok := uuidParam(c, "employeeId", employeeID)
	if !ok {
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	url, err := h.photos.Upload(c.Request.Context(), middleware.CurrentAdmin(c), id, header.Filename, header.Size, f)
	if err != nil {
		respondError(c, err, h.supportEmail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
