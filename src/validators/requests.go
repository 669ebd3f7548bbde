package validators

import (
	"strings"

	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/models"
)

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordSetupRequest is the body of POST /api/auth/password
type PasswordSetupRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// CreateAdminUserRequest is the body of POST /api/admin/users
type CreateAdminUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=Overwatch Admin Operator Viewer"`
}

// ChangeRoleRequest is the body of PUT /api/admin/users/:id/role
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=Overwatch Admin Operator Viewer"`
}

// ChangeStatusRequest is the body of PUT /api/admin/users/:id/status
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Active Pending Inactive Suspended"`
	Reason string `json:"reason" validate:"max=500"`
}

// BulkAdminRequest is the body of POST /api/admin/users/bulk
type BulkAdminRequest struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1,max=500"`
	Action string      `json:"action" validate:"required,oneof=role status delete"`
	Role   string      `json:"role" validate:"required_if=Action role,omitempty,oneof=Overwatch Admin Operator Viewer"`
	Status string      `json:"status" validate:"required_if=Action status,omitempty,oneof=Active Pending Inactive Suspended"`
	Reason string      `json:"reason" validate:"max=500"`
}

// EmployeeRequest is the body of employee create and update
type EmployeeRequest struct {
	FirstName  string `json:"first_name" validate:"required,min=1,max=50"`
	LastName   string `json:"last_name" validate:"required,min=1,max=50"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"omitempty,phone"`
	WhatsApp   string `json:"whatsapp" validate:"omitempty,phone"`
	JobTitle   string `json:"job_title" validate:"max=100"`
	Department string `json:"department" validate:"max=100"`
	Website    string `json:"website" validate:"omitempty,url"`
	Company    string `json:"company" validate:"max=100"`
	PhotoURL   string `json:"photo_url" validate:"omitempty,url"`
	IsActive   *bool  `json:"is_active"`
}

// Normalize trims fields and sanitizes URLs before validation
func (r *EmployeeRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.WhatsApp = strings.TrimSpace(r.WhatsApp)
	r.JobTitle = strings.TrimSpace(r.JobTitle)
	r.Department = strings.TrimSpace(r.Department)
	r.Company = strings.TrimSpace(r.Company)
	r.Website = SanitizeURL(r.Website)
	r.PhotoURL = SanitizeURL(r.PhotoURL)
}

// Apply copies the request onto an employee and refreshes the slug
func (r *EmployeeRequest) Apply(e *models.Employee) {
	e.FirstName = r.FirstName
	e.LastName = r.LastName
	e.Email = r.Email
	e.Phone = r.Phone
	e.WhatsApp = r.WhatsApp
	e.JobTitle = r.JobTitle
	e.Department = r.Department
	e.Website = r.Website
	e.Company = r.Company
	e.PhotoURL = r.PhotoURL
	if r.IsActive != nil {
		e.IsActive = *r.IsActive
	}
	e.Slug = models.GenerateSlug(e.FirstName, e.LastName)
}

// EmployeeStatusRequest is the body of PUT /api/employees/:id/status
type EmployeeStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// LinkRequest is the body of link create and update
type LinkRequest struct {
	Label     string `json:"label" validate:"required,min=1,max=50"`
	URL       string `json:"url" validate:"required,url"`
	IconType  string `json:"icon_type" validate:"max=50"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
	IsActive  *bool  `json:"is_active"`
}

// Normalize trims the label and sanitizes the URL
func (r *LinkRequest) Normalize() {
	r.Label = strings.TrimSpace(r.Label)
	r.IconType = strings.TrimSpace(r.IconType)
	r.URL = SanitizeURL(r.URL)
}

// Apply copies the request onto a link
func (r *LinkRequest) Apply(l *models.EmployeeLink) {
	l.Label = r.Label
	l.URL = r.URL
	l.IconType = r.IconType
	l.SortOrder = r.SortOrder
	if r.IsActive != nil {
		l.IsActive = *r.IsActive
	}
}
