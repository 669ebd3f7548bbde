package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
)

// IdentityRepository stores credentials and single-use tokens for the local identity provider
type IdentityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

func (r *IdentityRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.Identity, error) {
	var i models.Identity
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at, password_set_at FROM identities WHERE `+where, arg,
	).Scan(&i.ID, &i.Email, &i.PasswordHash, &i.CreatedAt, &i.PasswordSetAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}
	return &i, nil
}

// FindByEmail looks up an identity case-insensitively
func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return r.findOne(ctx, `lower(email) = lower($1)`, models.NormalizeEmail(email))
}

// FindByID looks up an identity by primary key
func (r *IdentityRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	return r.findOne(ctx, `id = $1`, id)
}

// Create inserts an identity without a password
func (r *IdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	identity.Email = models.NormalizeEmail(identity.Email)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, identity.ID, identity.Email, identity.PasswordHash).Scan(&identity.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repositories.ErrDuplicate
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// SetPassword stores a new password hash
func (r *IdentityRepository) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE identities SET password_hash = $2, password_set_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

// Delete removes an identity and its tokens
func (r *IdentityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

// CreateToken stores a hashed single-use token
func (r *IdentityRepository) CreateToken(ctx context.Context, token *models.IdentityToken) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO identity_tokens (token_hash, identity_id, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, token.TokenHash, token.IdentityID, string(token.Purpose), token.ExpiresAt).Scan(&token.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert identity token: %w", err)
	}
	return nil
}

// ConsumeToken redeems a token exactly once
func (r *IdentityRepository) ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (*models.IdentityToken, error) {
	var t models.IdentityToken
	var purpose string
	err := r.pool.QueryRow(ctx, `
		UPDATE identity_tokens
		SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING token_hash, identity_id, purpose, expires_at, used_at, created_at
	`, tokenHash, now).Scan(&t.TokenHash, &t.IdentityID, &purpose, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume identity token: %w", err)
	}
	t.Purpose = models.TokenPurpose(purpose)
	return &t, nil
}

// DeleteExpiredTokens purges tokens that can no longer be redeemed
func (r *IdentityRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM identity_tokens WHERE expires_at <= $1 OR used_at IS NOT NULL`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ repositories.IdentityRepository = (*IdentityRepository)(nil)
