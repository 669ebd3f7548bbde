package services

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is an issued bearer session
type Session struct {
	Token     string    `json:"token"`
	SessionID string    `json:"-"`
	Email     string    `json:"-"`
	SubjectID uuid.UUID `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Principal is the authenticated caller behind a bearer token
type Principal struct {
	Email     string
	SubjectID uuid.UUID
	SessionID string
}

// IdentityProvider authenticates credentials and issues and validates sessions.
// Successful authentication says nothing about admin access.
type IdentityProvider interface {
	Authenticate(ctx context.Context, email, password string) (*Session, error)
	VerifyToken(ctx context.Context, token string) (*Principal, error)
	InviteUser(ctx context.Context, email string) (uuid.UUID, error)
	SendPasswordReset(ctx context.Context, email string) error
	SignOut(ctx context.Context, sessionID string) error
	CompletePasswordSetup(ctx context.Context, token, password string) error
}
