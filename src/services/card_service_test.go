package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCodeDataURL(t *testing.T) {
	svc := NewCardService(mock.NewEmployeeRepository(nil), "https://cards.example.com/", "UA Company")
	id := uuid.New()

	assert.Equal(t, "https://cards.example.com/staff/"+id.String(), svc.ProfileURL(id))

	dataURL, err := svc.QRCodeDataURL(id)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, "data:image/png;base64,"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())
}

func TestVCard(t *testing.T) {
	repo := mock.NewEmployeeRepository(nil)
	e := &models.Employee{
		FirstName:  "Jane",
		LastName:   "Doe",
		Email:      "jane@example.com",
		Phone:      "+1234567890",
		WhatsApp:   "+1987654321",
		JobTitle:   "CTO",
		Department: "Engineering",
		Website:    "https://jane.dev",
		IsActive:   true,
	}
	require.NoError(t, repo.Create(context.Background(), e))
	svc := NewCardService(repo, "https://cards.example.com", "UA Company")

	body, filename, err := svc.VCard(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane-Doe.vcf", filename)

	card, err := vcard.NewDecoder(bytes.NewReader(body)).Decode()
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", card.PreferredValue(vcard.FieldFormattedName))
	assert.Equal(t, "UA Company", card.PreferredValue(vcard.FieldOrganization))
	assert.Equal(t, "CTO", card.PreferredValue(vcard.FieldTitle))
	assert.Equal(t, "+1234567890", card.PreferredValue(vcard.FieldTelephone))
	note := card.PreferredValue(vcard.FieldNote)
	assert.True(t, strings.HasPrefix(note, "Department: Engineering"))
	assert.Contains(t, note, "WhatsApp: +1987654321")
}

func TestVCard_InactiveOrMissing(t *testing.T) {
	repo := mock.NewEmployeeRepository(nil)
	e := &models.Employee{FirstName: "Old", LastName: "Timer", Email: "old@example.com"}
	require.NoError(t, repo.Create(context.Background(), e))
	svc := NewCardService(repo, "https://cards.example.com", "UA Company")

	_, _, err := svc.VCard(context.Background(), e.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.VCard(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVCardFilename(t *testing.T) {
	assert.Equal(t, "Jos-ONeil.vcf", VCardFilename(&models.Employee{FirstName: "José", LastName: "O'Neil"}))
	assert.Equal(t, "contact.vcf", VCardFilename(&models.Employee{}))
}
