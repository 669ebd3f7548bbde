package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Employee represents a staff member with a public digital business card
type Employee struct {
	ID         uuid.UUID `json:"id"`
	Slug       string    `json:"slug"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	WhatsApp   string    `json:"whatsapp,omitempty"`
	JobTitle   string    `json:"job_title,omitempty"`
	Department string    `json:"department,omitempty"`
	Website    string    `json:"website,omitempty"`
	Company    string    `json:"company,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Links []EmployeeLink `json:"links,omitempty"`
}

// EmployeeLink is a professional link shown on an employee's profile
type EmployeeLink struct {
	ID         uuid.UUID `json:"id"`
	EmployeeID uuid.UUID `json:"employee_id"`
	Label      string    `json:"label"`
	URL        string    `json:"url"`
	IconType   string    `json:"icon_type,omitempty"`
	SortOrder  int       `json:"sort_order"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashRuns     = regexp.MustCompile(`-+`)
)

// GenerateSlug builds the URL slug for an employee name
func GenerateSlug(firstName, lastName string) string {
	s := strings.ToLower(firstName + "-" + lastName)
	s = slugInvalidChars.ReplaceAllString(s, "-")
	return slugDashRuns.ReplaceAllString(s, "-")
}

// FullName returns "First Last"
func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}
