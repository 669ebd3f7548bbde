package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenPurpose distinguishes invite links from password recovery links
type TokenPurpose string

const (
	TokenPurposeInvite   TokenPurpose = "invite"
	TokenPurposeRecovery TokenPurpose = "recovery"
)

// Identity is a credential record held by the local identity provider.
// It is deliberately separate from AdminUser: authenticating does not imply admin access.
type Identity struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  *string    `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	PasswordSetAt *time.Time `json:"password_set_at,omitempty"`
}

// HasPassword reports whether the invite has been completed
func (i *Identity) HasPassword() bool {
	return i.PasswordHash != nil && *i.PasswordHash != ""
}

// IdentityToken is a single-use invite or recovery token. Only its hash is stored.
type IdentityToken struct {
	TokenHash  string       `json:"-"`
	IdentityID uuid.UUID    `json:"identity_id"`
	Purpose    TokenPurpose `json:"purpose"`
	ExpiresAt  time.Time    `json:"expires_at"`
	UsedAt     *time.Time   `json:"used_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Usable reports whether the token can still be redeemed at now
func (t *IdentityToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
