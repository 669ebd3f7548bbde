package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/logging"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
	"github.com/khabaroff/staff-cards/src/services"
	"github.com/khabaroff/staff-cards/src/templates"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced when a password is set
const MinPasswordLength = 8

// Config tunes the local identity provider
type Config struct {
	JWTSecret   string
	SessionTTL  time.Duration
	IdleTimeout time.Duration
	TokenTTL    time.Duration
	// BaseURL is where the set-password page lives
	BaseURL string
}

// claims carried by session JWTs
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// LocalProvider is a self-hosted identity provider: bcrypt credentials,
// HS256 session tokens backed by a revocable session record, and emailed
// single-use links for invites and password resets.
type LocalProvider struct {
	repo     repositories.IdentityRepository
	sessions SessionStore
	mailer   services.Mailer
	cfg      Config
	now      func() time.Time
	logger   zerolog.Logger

	// dummyHash keeps unknown-email logins as slow as wrong-password ones
	dummyHash []byte
}

// NewLocalProvider creates a new local identity provider
func NewLocalProvider(repo repositories.IdentityRepository, sessions SessionStore, mailer services.Mailer, cfg Config) *LocalProvider {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("staff-cards-timing-equaliser"), bcrypt.DefaultCost)
	return &LocalProvider{
		repo:      repo,
		sessions:  sessions,
		mailer:    mailer,
		cfg:       cfg,
		now:       time.Now,
		logger:    logging.NewLogger("identity"),
		dummyHash: dummy,
	}
}

// SetClock overrides the provider's clock
func (p *LocalProvider) SetClock(now func() time.Time) {
	p.now = now
}

func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, services.ErrUpstreamUnavailable, err)
}

// Authenticate checks credentials and opens a session
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*services.Session, error) {
	ident, err := p.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, upstream("find identity", err)
	}

	if ident == nil || !ident.HasPassword() {
		_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(password))
		return nil, services.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*ident.PasswordHash), []byte(password)); err != nil {
		return nil, services.ErrInvalidCredentials
	}

	return p.issueSession(ctx, ident)
}

func (p *LocalProvider) issueSession(ctx context.Context, ident *models.Identity) (*services.Session, error) {
	now := p.now()
	sessionID := uuid.NewString()
	expiresAt := now.Add(p.cfg.SessionTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: ident.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID.String(),
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte(p.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	rec := SessionRecord{
		ID:        sessionID,
		SubjectID: ident.ID,
		Email:     ident.Email,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := p.sessions.Create(ctx, rec, p.idleTimeout()); err != nil {
		return nil, upstream("create session", err)
	}

	return &services.Session{
		Token:     signed,
		SessionID: sessionID,
		Email:     ident.Email,
		SubjectID: ident.ID,
		ExpiresAt: expiresAt,
	}, nil
}

func (p *LocalProvider) idleTimeout() time.Duration {
	if p.cfg.IdleTimeout <= 0 || p.cfg.IdleTimeout > p.cfg.SessionTTL {
		return p.cfg.SessionTTL
	}
	return p.cfg.IdleTimeout
}

// VerifyToken validates the signature and expiry, then refreshes the idle timeout
func (p *LocalProvider) VerifyToken(ctx context.Context, tokenString string) (*services.Principal, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil || !token.Valid {
		return nil, services.ErrInvalidToken
	}

	subjectID, err := uuid.Parse(c.Subject)
	if err != nil || c.ID == "" {
		return nil, services.ErrInvalidToken
	}

	rec, err := p.sessions.Touch(ctx, c.ID, p.idleTimeout())
	if err != nil {
		return nil, upstream("load session", err)
	}
	if rec == nil {
		return nil, services.ErrInvalidToken
	}

	return &services.Principal{
		Email:     rec.Email,
		SubjectID: subjectID,
		SessionID: c.ID,
	}, nil
}

// SignOut revokes a session. Unknown sessions are not an error.
func (p *LocalProvider) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := p.sessions.Delete(ctx, sessionID); err != nil {
		return upstream("delete session", err)
	}
	return nil
}

// InviteUser creates a password-less identity and emails a setup link
func (p *LocalProvider) InviteUser(ctx context.Context, email string) (uuid.UUID, error) {
	existing, err := p.repo.FindByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, upstream("find identity", err)
	}
	if existing != nil {
		return uuid.Nil, services.ErrIdentityExists
	}

	ident := &models.Identity{Email: email}
	if err := p.repo.Create(ctx, ident); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return uuid.Nil, services.ErrIdentityExists
		}
		return uuid.Nil, upstream("create identity", err)
	}

	if err := p.sendLink(ctx, ident, models.TokenPurposeInvite, templates.KindInvite); err != nil {
		// Drop the half-made identity so a retry can invite again.
		if delErr := p.repo.Delete(ctx, ident.ID); delErr != nil {
			p.logger.Error().Err(delErr).Str("email", ident.Email).Msg("failed to remove identity after invite failure")
		}
		return uuid.Nil, err
	}

	p.logger.Info().Str("email", ident.Email).Msg("identity invited")
	return ident.ID, nil
}

// SendPasswordReset emails a reset link. Unknown emails succeed silently.
func (p *LocalProvider) SendPasswordReset(ctx context.Context, email string) error {
	ident, err := p.repo.FindByEmail(ctx, email)
	if err != nil {
		return upstream("find identity", err)
	}
	if ident == nil {
		p.logger.Debug().Str("email", email).Msg("password reset for unknown identity ignored")
		return nil
	}
	return p.sendLink(ctx, ident, models.TokenPurposeRecovery, templates.KindPasswordReset)
}

func (p *LocalProvider) sendLink(ctx context.Context, ident *models.Identity, purpose models.TokenPurpose, kind templates.Kind) error {
	raw, err := generateToken()
	if err != nil {
		return err
	}

	tok := &models.IdentityToken{
		TokenHash:  hashToken(raw),
		IdentityID: ident.ID,
		Purpose:    purpose,
		ExpiresAt:  p.now().Add(p.cfg.TokenTTL),
	}
	if err := p.repo.CreateToken(ctx, tok); err != nil {
		return upstream("store token", err)
	}

	if err := p.mailer.SendLinkEmail(ctx, ident.Email, kind, p.setupURL(raw), p.cfg.TokenTTL); err != nil {
		return upstream("send email", err)
	}
	return nil
}

func (p *LocalProvider) setupURL(token string) string {
	return fmt.Sprintf("%s/set-password?token=%s", p.cfg.BaseURL, url.QueryEscape(token))
}

// CompletePasswordSetup redeems an invite or reset token and stores the new password
func (p *LocalProvider) CompletePasswordSetup(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return services.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	tok, err := p.repo.ConsumeToken(ctx, hashToken(token), p.now())
	if err != nil {
		return upstream("consume token", err)
	}
	if tok == nil {
		return services.ErrInvalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := p.repo.SetPassword(ctx, tok.IdentityID, string(hash)); err != nil {
		return upstream("set password", err)
	}

	p.logger.Info().Str("identity_id", tok.IdentityID.String()).Str("purpose", string(tok.Purpose)).Msg("password set")
	return nil
}

// EnsurePassword creates or updates an identity with a known password.
// Used for the first-run Overwatch seed.
func (p *LocalProvider) EnsurePassword(ctx context.Context, email, password string) error {
	if len(password) < MinPasswordLength {
		return services.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ident, err := p.repo.FindByEmail(ctx, email)
	if err != nil {
		return upstream("find identity", err)
	}
	if ident == nil {
		ident = &models.Identity{Email: email}
		if err := p.repo.Create(ctx, ident); err != nil {
			return upstream("create identity", err)
		}
	}
	if err := p.repo.SetPassword(ctx, ident.ID, string(hash)); err != nil {
		return upstream("set password", err)
	}
	return nil
}

// PurgeExpiredTokens deletes invite and reset tokens that can no longer be used
func (p *LocalProvider) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return p.repo.DeleteExpiredTokens(ctx, p.now())
}

// generateToken generates a cryptographically secure token (32 bytes, base64url)
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var _ services.IdentityProvider = (*LocalProvider)(nil)
