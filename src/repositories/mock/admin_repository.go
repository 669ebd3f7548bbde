package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
)

// AdminUserRepository is an in-memory implementation of repositories.AdminUserRepository.
// Any Func stub that is set replaces the in-memory behaviour for that method.
type AdminUserRepository struct {
	// Function stubs that can be overridden in tests
	FindByEmailFunc      func(ctx context.Context, email string) (*models.AdminUser, error)
	FindByIDFunc         func(ctx context.Context, id uuid.UUID) (*models.AdminUser, error)
	ListAllFunc          func(ctx context.Context) ([]*models.AdminUser, error)
	InsertFunc           func(ctx context.Context, user *models.AdminUser) error
	UpdateFunc           func(ctx context.Context, user *models.AdminUser, expectedVersion int64) (bool, error)
	DeleteFunc           func(ctx context.Context, id uuid.UUID, actingEmail string) (bool, error)
	BulkUpdateStatusFunc func(ctx context.Context, rows []repositories.RowVersion, status models.Status, reason *string) (int64, error)

	// Call tracking
	Calls map[string][]interface{}

	mu    sync.Mutex
	users map[uuid.UUID]*models.AdminUser
}

// NewAdminUserRepository creates a new mock admin user repository
func NewAdminUserRepository(seed ...*models.AdminUser) *AdminUserRepository {
	m := &AdminUserRepository{
		Calls: make(map[string][]interface{}),
		users: make(map[uuid.UUID]*models.AdminUser),
	}
	for _, u := range seed {
		m.Put(u)
	}
	return m
}

// Put stores a copy of u, assigning an ID and version when missing
func (m *AdminUserRepository) Put(u *models.AdminUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Version == 0 {
		u.Version = 1
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	m.users[u.ID] = u.Clone()
}

// Get returns a copy of the stored row
func (m *AdminUserRepository) Get(id uuid.UUID) *models.AdminUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].Clone()
}

func (m *AdminUserRepository) record(name string, arg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[name] = append(m.Calls[name], arg)
}

// CallCount returns how many times a method was invoked
func (m *AdminUserRepository) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls[name])
}

func (m *AdminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	m.record("FindByEmail", email)
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if models.SameEmail(u.Email, email) {
			return u.Clone(), nil
		}
	}
	return nil, nil
}

func (m *AdminUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	m.record("FindByID", id)
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return m.Get(id), nil
}

func (m *AdminUserRepository) ListAll(ctx context.Context) ([]*models.AdminUser, error) {
	m.record("ListAll", nil)
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AdminUser, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *AdminUserRepository) Count(ctx context.Context) (int, error) {
	m.record("Count", nil)
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *AdminUserRepository) Insert(ctx context.Context, user *models.AdminUser) error {
	m.record("Insert", user)
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, user)
	}
	m.mu.Lock()
	for _, u := range m.users {
		if models.SameEmail(u.Email, user.Email) {
			m.mu.Unlock()
			return repositories.ErrDuplicate
		}
	}
	m.mu.Unlock()
	user.Email = models.NormalizeEmail(user.Email)
	user.Version = 1
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.Put(user)
	return nil
}

func (m *AdminUserRepository) Update(ctx context.Context, user *models.AdminUser, expectedVersion int64) (bool, error) {
	m.record("Update", user.Clone())
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, user, expectedVersion)
	}
	return m.CompareAndSwap(user, expectedVersion), nil
}

// CompareAndSwap is the in-memory conditional update behind Update. Stubs can
// call it to fall through to the default behaviour.
func (m *AdminUserRepository) CompareAndSwap(user *models.AdminUser, expectedVersion int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.users[user.ID]
	if !ok || current.Version != expectedVersion {
		return false
	}
	user.Version = expectedVersion + 1
	user.UpdatedAt = time.Now()
	m.users[user.ID] = user.Clone()
	return true
}

func (m *AdminUserRepository) Delete(ctx context.Context, id uuid.UUID, actingEmail string) (bool, error) {
	m.record("Delete", id)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id, actingEmail)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || models.SameEmail(u.Email, actingEmail) {
		return false, nil
	}
	delete(m.users, id)
	return true, nil
}

func rowIDs(rows []repositories.RowVersion) []uuid.UUID {
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids
}

// pinned returns the stored rows for a bulk write, or false when any row is
// missing or no longer at the pinned version. Callers hold m.mu.
func (m *AdminUserRepository) pinned(rows []repositories.RowVersion) ([]*models.AdminUser, bool) {
	users := make([]*models.AdminUser, 0, len(rows))
	for _, row := range rows {
		u, ok := m.users[row.ID]
		if !ok || u.Version != row.Version {
			return nil, false
		}
		users = append(users, u)
	}
	return users, true
}

func (m *AdminUserRepository) BulkUpdateStatus(ctx context.Context, rows []repositories.RowVersion, status models.Status, reason *string) (int64, error) {
	m.record("BulkUpdateStatus", rowIDs(rows))
	if m.BulkUpdateStatusFunc != nil {
		return m.BulkUpdateStatusFunc(ctx, rows, status, reason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	users, ok := m.pinned(rows)
	if !ok {
		return 0, repositories.ErrStale
	}
	for _, u := range users {
		if status == models.StatusActive && (u.Status == models.StatusSuspended || u.Status == models.StatusInactive) {
			u.FailedLoginAttempts = 0
			u.FirstFailedLoginAt = nil
			u.LastFailedLoginAt = nil
		}
		if status == models.StatusSuspended {
			if reason != nil {
				r := *reason
				u.LockoutReason = &r
			}
		} else {
			u.LockoutReason = nil
		}
		u.Status = status
		u.Version++
	}
	return int64(len(users)), nil
}

func (m *AdminUserRepository) BulkUpdateRole(ctx context.Context, rows []repositories.RowVersion, role models.Role) (int64, error) {
	m.record("BulkUpdateRole", rowIDs(rows))
	m.mu.Lock()
	defer m.mu.Unlock()
	users, ok := m.pinned(rows)
	if !ok {
		return 0, repositories.ErrStale
	}
	for _, u := range users {
		u.Role = role
		u.Version++
	}
	return int64(len(users)), nil
}

func (m *AdminUserRepository) BulkDelete(ctx context.Context, rows []repositories.RowVersion, actingEmail string) (int64, error) {
	m.record("BulkDelete", rowIDs(rows))
	m.mu.Lock()
	defer m.mu.Unlock()
	users, ok := m.pinned(rows)
	if !ok {
		return 0, repositories.ErrStale
	}
	for _, u := range users {
		if models.SameEmail(u.Email, actingEmail) {
			return 0, repositories.ErrStale
		}
	}
	for _, u := range users {
		delete(m.users, u.ID)
	}
	return int64(len(users)), nil
}

// Ensure AdminUserRepository implements the interface
var _ repositories.AdminUserRepository = (*AdminUserRepository)(nil)
