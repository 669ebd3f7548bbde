package identity

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/khabaroff/staff-cards/src/repositories/mock"
	"github.com/khabaroff/staff-cards/src/services"
	"github.com/khabaroff/staff-cards/src/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEmail struct {
	to   string
	kind templates.Kind
	link string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *captureMailer) SendLinkEmail(ctx context.Context, to string, kind templates.Kind, link string, expiry time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{to: to, kind: kind, link: link})
	return nil
}

func (m *captureMailer) last(t *testing.T) sentEmail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func newTestProvider() (*LocalProvider, *mock.IdentityRepository, *MemorySessionStore, *captureMailer) {
	repo := mock.NewIdentityRepository()
	sessions := NewMemorySessionStore()
	mailer := &captureMailer{}
	p := NewLocalProvider(repo, sessions, mailer, Config{
		JWTSecret:   "test-secret-that-is-long-enough-for-hs256",
		SessionTTL:  24 * time.Hour,
		IdleTimeout: 30 * time.Minute,
		TokenTTL:    24 * time.Hour,
		BaseURL:     "https://cards.example.com",
	})
	return p, repo, sessions, mailer
}

func TestLocalProvider_InviteSetPasswordLogin(t *testing.T) {
	p, _, _, mailer := newTestProvider()
	ctx := context.Background()

	id, err := p.InviteUser(ctx, "New@Example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "", id.String())

	sent := mailer.last(t)
	assert.Equal(t, "new@example.com", sent.to)
	assert.Equal(t, templates.KindInvite, sent.kind)
	assert.True(t, strings.HasPrefix(sent.link, "https://cards.example.com/set-password?token="))

	// No password yet
	_, err = p.Authenticate(ctx, "new@example.com", "whatever1")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	token := tokenFromLink(t, sent.link)
	require.NoError(t, p.CompletePasswordSetup(ctx, token, "correct-horse"))

	// Single use
	assert.ErrorIs(t, p.CompletePasswordSetup(ctx, token, "another-pass"), services.ErrInvalidToken)

	session, err := p.Authenticate(ctx, "NEW@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	principal, err := p.VerifyToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", principal.Email)
	assert.Equal(t, id, principal.SubjectID)
}

func TestLocalProvider_InviteExisting(t *testing.T) {
	p, _, _, _ := newTestProvider()
	ctx := context.Background()

	_, err := p.InviteUser(ctx, "dup@example.com")
	require.NoError(t, err)

	_, err = p.InviteUser(ctx, "DUP@example.com")
	assert.ErrorIs(t, err, services.ErrIdentityExists)
}

func TestLocalProvider_InviteMailFailureRollsBack(t *testing.T) {
	p, repo, _, mailer := newTestProvider()
	ctx := context.Background()
	mailer.err = errors.New("mailgun down")

	_, err := p.InviteUser(ctx, "x@example.com")
	assert.ErrorIs(t, err, services.ErrUpstreamUnavailable)

	ident, err := repo.FindByEmail(ctx, "x@example.com")
	require.NoError(t, err)
	assert.Nil(t, ident)
}

func TestLocalProvider_WrongPassword(t *testing.T) {
	p, _, _, _ := newTestProvider()
	ctx := context.Background()
	require.NoError(t, p.EnsurePassword(ctx, "root@example.com", "right-password"))

	_, err := p.Authenticate(ctx, "root@example.com", "wrong-password")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = p.Authenticate(ctx, "nobody@example.com", "wrong-password")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestLocalProvider_SignOutRevokes(t *testing.T) {
	p, _, _, _ := newTestProvider()
	ctx := context.Background()
	require.NoError(t, p.EnsurePassword(ctx, "root@example.com", "right-password"))

	session, err := p.Authenticate(ctx, "root@example.com", "right-password")
	require.NoError(t, err)

	require.NoError(t, p.SignOut(ctx, session.SessionID))
	require.NoError(t, p.SignOut(ctx, session.SessionID))

	_, err = p.VerifyToken(ctx, session.Token)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestLocalProvider_IdleTimeout(t *testing.T) {
	p, _, sessions, _ := newTestProvider()
	ctx := context.Background()
	require.NoError(t, p.EnsurePassword(ctx, "root@example.com", "right-password"))

	now := time.Now()
	clock := func() time.Time { return now }
	p.SetClock(clock)
	sessions.SetClock(clock)

	session, err := p.Authenticate(ctx, "root@example.com", "right-password")
	require.NoError(t, err)

	// Activity inside the idle window slides it forward.
	now = now.Add(25 * time.Minute)
	_, err = p.VerifyToken(ctx, session.Token)
	require.NoError(t, err)

	now = now.Add(25 * time.Minute)
	_, err = p.VerifyToken(ctx, session.Token)
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	_, err = p.VerifyToken(ctx, session.Token)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestLocalProvider_RejectsForeignToken(t *testing.T) {
	p, _, _, _ := newTestProvider()
	_, err := p.VerifyToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestLocalProvider_PasswordResetUnknownEmail(t *testing.T) {
	p, _, _, mailer := newTestProvider()
	require.NoError(t, p.SendPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, mailer.sent)
}

func TestLocalProvider_ShortPassword(t *testing.T) {
	p, _, _, _ := newTestProvider()
	err := p.CompletePasswordSetup(context.Background(), "tok", "short")
	assert.ErrorIs(t, err, services.ErrValidation)
}
