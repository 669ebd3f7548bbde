package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/models"
)

// ErrDuplicate is returned when an insert collides with a unique constraint
var ErrDuplicate = errors.New("duplicate record")

// ErrStale is returned by bulk writes when any row no longer has the version
// the caller read. Nothing is written in that case.
var ErrStale = errors.New("stale row version")

// RowVersion pins a row to the version it was read at
type RowVersion struct {
	ID      uuid.UUID
	Version int64
}

// AdminUserRepository is the admin account store. Lookups tied to an
// authenticated request go through FindByEmail.
type AdminUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error)
	ListAll(ctx context.Context) ([]*models.AdminUser, error)
	Count(ctx context.Context) (int, error)

	Insert(ctx context.Context, user *models.AdminUser) error

	// Update writes role, status, lockout counters and lockout_reason only if
	// the stored version still equals expectedVersion. It returns false on conflict.
	Update(ctx context.Context, user *models.AdminUser, expectedVersion int64) (bool, error)

	// Delete never removes the row whose email equals actingEmail.
	Delete(ctx context.Context, id uuid.UUID, actingEmail string) (bool, error)

	// Bulk writes are all or nothing: every row must still carry the version
	// in rows, otherwise ErrStale is returned and no row changes.
	// BulkUpdateStatus clears lockout state on rows moving from Suspended to Active
	// in the same statement that flips the status.
	BulkUpdateStatus(ctx context.Context, rows []RowVersion, status models.Status, reason *string) (int64, error)
	BulkUpdateRole(ctx context.Context, rows []RowVersion, role models.Role) (int64, error)
	BulkDelete(ctx context.Context, rows []RowVersion, actingEmail string) (int64, error)
}

// EmployeeRepository stores employee records
type EmployeeRepository interface {
	List(ctx context.Context) ([]*models.Employee, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	Create(ctx context.Context, employee *models.Employee) error
	Update(ctx context.Context, employee *models.Employee) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	SetPhotoURL(ctx context.Context, id uuid.UUID, photoURL string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// ImportBatch inserts every employee and its links in one transaction.
	ImportBatch(ctx context.Context, employees []*models.Employee) error
}

// LinkRepository stores professional links attached to employees
type LinkRepository interface {
	ListByEmployee(ctx context.Context, employeeID uuid.UUID, activeOnly bool) ([]models.EmployeeLink, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.EmployeeLink, error)
	Create(ctx context.Context, link *models.EmployeeLink) error
	Update(ctx context.Context, link *models.EmployeeLink) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// IdentityRepository backs the local identity provider
type IdentityRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	Create(ctx context.Context, identity *models.Identity) error
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateToken(ctx context.Context, token *models.IdentityToken) error
	// ConsumeToken marks the token used and returns it. It returns nil when the
	// token is unknown, expired or already used.
	ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (*models.IdentityToken, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}
