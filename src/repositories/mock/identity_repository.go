package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
)

// IdentityRepository is an in-memory implementation of repositories.IdentityRepository
type IdentityRepository struct {
	mu         sync.Mutex
	identities map[uuid.UUID]*models.Identity
	tokens     map[string]*models.IdentityToken
}

// NewIdentityRepository creates a new mock identity repository
func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		identities: make(map[uuid.UUID]*models.Identity),
		tokens:     make(map[string]*models.IdentityToken),
	}
}

// Tokens returns every stored token, redeemed or not
func (m *IdentityRepository) Tokens() []models.IdentityToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.IdentityToken, 0, len(m.tokens))
	for _, t := range m.tokens {
		out = append(out, *t)
	}
	return out
}

func (m *IdentityRepository) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.identities {
		if models.SameEmail(i.Email, email) {
			c := *i
			return &c, nil
		}
	}
	return nil, nil
}

func (m *IdentityRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.identities[id]
	if !ok {
		return nil, nil
	}
	c := *i
	return &c, nil
}

func (m *IdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.identities {
		if models.SameEmail(i.Email, identity.Email) {
			return repositories.ErrDuplicate
		}
	}
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	identity.Email = models.NormalizeEmail(identity.Email)
	identity.CreatedAt = time.Now()
	c := *identity
	m.identities[c.ID] = &c
	return nil
}

func (m *IdentityRepository) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.identities[id]; ok {
		now := time.Now()
		i.PasswordHash = &passwordHash
		i.PasswordSetAt = &now
	}
	return nil
}

func (m *IdentityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.identities, id)
	for h, t := range m.tokens {
		if t.IdentityID == id {
			delete(m.tokens, h)
		}
	}
	return nil
}

func (m *IdentityRepository) CreateToken(ctx context.Context, token *models.IdentityToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token.CreatedAt = time.Now()
	c := *token
	m.tokens[token.TokenHash] = &c
	return nil
}

func (m *IdentityRepository) ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (*models.IdentityToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenHash]
	if !ok || !t.Usable(now) {
		return nil, nil
	}
	used := now
	t.UsedAt = &used
	c := *t
	return &c, nil
}

func (m *IdentityRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, t := range m.tokens {
		if !t.Usable(now) {
			delete(m.tokens, h)
			n++
		}
	}
	return n, nil
}

var _ repositories.IdentityRepository = (*IdentityRepository)(nil)
