package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/templates"
)

// fakeIdentityProvider is an in-memory IdentityProvider
type fakeIdentityProvider struct {
	mu         sync.Mutex
	passwords  map[string]string
	authCalls  int
	signOuts   []string
	invited    []string
	resets     []string
	authErr    error
	inviteErr  error
	resetErr   error
	signOutErr error
}

func newFakeIdentityProvider() *fakeIdentityProvider {
	return &fakeIdentityProvider{passwords: make(map[string]string)}
}

func (f *fakeIdentityProvider) setPassword(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords[models.NormalizeEmail(email)] = password
}

func (f *fakeIdentityProvider) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	if f.authErr != nil {
		return nil, f.authErr
	}
	if pw, ok := f.passwords[models.NormalizeEmail(email)]; !ok || pw != password {
		return nil, ErrInvalidCredentials
	}
	return &Session{
		Token:     "token-" + email,
		SessionID: uuid.NewString(),
		Email:     email,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeIdentityProvider) VerifyToken(ctx context.Context, token string) (*Principal, error) {
	return nil, ErrInvalidToken
}

func (f *fakeIdentityProvider) InviteUser(ctx context.Context, email string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inviteErr != nil {
		return uuid.Nil, f.inviteErr
	}
	f.invited = append(f.invited, email)
	return uuid.New(), nil
}

func (f *fakeIdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeIdentityProvider) SignOut(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts = append(f.signOuts, sessionID)
	return f.signOutErr
}

func (f *fakeIdentityProvider) CompletePasswordSetup(ctx context.Context, token, password string) error {
	return nil
}

func (f *fakeIdentityProvider) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resets)
}

var _ IdentityProvider = (*fakeIdentityProvider)(nil)

// nopMailer accepts every email
type nopMailer struct{}

func (nopMailer) SendLinkEmail(ctx context.Context, to string, kind templates.Kind, link string, expiry time.Duration) error {
	return nil
}
