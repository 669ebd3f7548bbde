package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/color"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 300

// brandColor is #003366
var brandColor = color.RGBA{R: 0x00, G: 0x33, B: 0x66, A: 0xff}

// CardService renders QR codes and vCards for public employee cards
type CardService struct {
	employees   repositories.EmployeeRepository
	baseURL     string
	companyName string
}

// NewCardService creates a new card service
func NewCardService(employees repositories.EmployeeRepository, baseURL, companyName string) *CardService {
	return &CardService{
		employees:   employees,
		baseURL:     strings.TrimRight(baseURL, "/"),
		companyName: companyName,
	}
}

// ProfileURL is the public page of an employee
func (s *CardService) ProfileURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/staff/%s", s.baseURL, id)
}

// QRCodeDataURL returns a PNG data URL encoding the employee's profile URL
func (s *CardService) QRCodeDataURL(id uuid.UUID) (string, error) {
	q, err := qrcode.New(s.ProfileURL(id), qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to build qr code: %w", err)
	}
	q.ForegroundColor = brandColor
	q.BackgroundColor = color.White

	png, err := q.PNG(qrSize)
	if err != nil {
		return "", fmt.Errorf("failed to render qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// VCard renders the contact card of an active employee and its download filename
func (s *CardService) VCard(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	e, err := s.employees.FindByID(ctx, id)
	if err != nil {
		return nil, "", upstream("find employee", err)
	}
	if e == nil || !e.IsActive {
		return nil, "", ErrNotFound
	}

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(s.buildCard(e)); err != nil {
		return nil, "", fmt.Errorf("failed to encode vcard: %w", err)
	}
	return buf.Bytes(), VCardFilename(e), nil
}

func (s *CardService) buildCard(e *models.Employee) vcard.Card {
	card := make(vcard.Card)
	card.SetName(&vcard.Name{GivenName: e.FirstName, FamilyName: e.LastName})
	card.SetValue(vcard.FieldFormattedName, e.FullName())

	org := e.Company
	if org == "" {
		org = s.companyName
	}
	card.SetValue(vcard.FieldOrganization, org)

	if e.JobTitle != "" {
		card.SetValue(vcard.FieldTitle, e.JobTitle)
	}
	if e.Phone != "" {
		card.Add(vcard.FieldTelephone, &vcard.Field{
			Value:  e.Phone,
			Params: vcard.Params{vcard.ParamType: {vcard.TypeWork, vcard.TypeVoice}},
		})
	}
	if e.Email != "" {
		card.Add(vcard.FieldEmail, &vcard.Field{
			Value:  e.Email,
			Params: vcard.Params{vcard.ParamType: {vcard.TypeWork}},
		})
	}
	if e.Website != "" {
		card.Add(vcard.FieldURL, &vcard.Field{
			Value:  e.Website,
			Params: vcard.Params{vcard.ParamType: {vcard.TypeWork}},
		})
	}
	if e.PhotoURL != "" {
		card.SetValue(vcard.FieldPhoto, e.PhotoURL)
	}

	var note []string
	if e.Department != "" {
		note = append(note, "Department: "+e.Department)
	}
	if e.WhatsApp != "" {
		note = append(note, "WhatsApp: "+e.WhatsApp)
	}
	if len(note) > 0 {
		card.SetValue(vcard.FieldNote, strings.Join(note, "\n"))
	}

	vcard.ToV4(card)
	return card
}

// VCardFilename is First-Last.vcf with anything outside [A-Za-z0-9_-] dropped
func VCardFilename(e *models.Employee) string {
	clean := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
				return r
			}
			return -1
		}, s)
	}
	name := clean(e.FirstName) + "-" + clean(e.LastName)
	if name == "-" {
		name = "contact"
	}
	return name + ".vcf"
}
