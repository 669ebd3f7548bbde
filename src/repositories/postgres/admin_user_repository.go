package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
)

const uniqueViolation = "23505"

const adminUserColumns = `id, email, role, status, failed_login_attempts, first_failed_login_at,
	last_failed_login_at, lockout_reason, version, created_at, updated_at`

// AdminUserRepository is the pgx-backed admin account store
type AdminUserRepository struct {
	pool *pgxpool.Pool
}

// NewAdminUserRepository creates a new admin user repository
func NewAdminUserRepository(pool *pgxpool.Pool) *AdminUserRepository {
	return &AdminUserRepository{pool: pool}
}

func scanAdminUser(row pgx.Row) (*models.AdminUser, error) {
	var u models.AdminUser
	var role, status string
	err := row.Scan(&u.ID, &u.Email, &role, &status, &u.FailedLoginAttempts, &u.FirstFailedLoginAt,
		&u.LastFailedLoginAt, &u.LockoutReason, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.Status = models.Status(status)
	return &u, nil
}

func (r *AdminUserRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.AdminUser, error) {
	u, err := scanAdminUser(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query admin user: %w", err)
	}
	return u, nil
}

// FindByEmail looks up an admin user case-insensitively
func (r *AdminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	return r.findOne(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE lower(email) = lower($1)`,
		models.NormalizeEmail(email))
}

// FindByID looks up an admin user by primary key
func (r *AdminUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	return r.findOne(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE id = $1`, id)
}

// ListAll returns every admin user, newest first
func (r *AdminUserRepository) ListAll(ctx context.Context) ([]*models.AdminUser, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adminUserColumns+` FROM admin_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	defer rows.Close()

	var users []*models.AdminUser
	for rows.Next() {
		u, err := scanAdminUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Count returns the number of admin users
func (r *AdminUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admin users: %w", err)
	}
	return n, nil
}

// Insert creates an admin user and fills in generated fields
func (r *AdminUserRepository) Insert(ctx context.Context, user *models.AdminUser) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO admin_users (id, email, role, status, lockout_reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING version, created_at, updated_at
	`, user.ID, models.NormalizeEmail(user.Email), string(user.Role), string(user.Status), user.LockoutReason,
	).Scan(&user.Version, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repositories.ErrDuplicate
		}
		return fmt.Errorf("insert admin user: %w", err)
	}
	user.Email = models.NormalizeEmail(user.Email)
	return nil
}

// Update applies the user's mutable fields in one conditional statement
func (r *AdminUserRepository) Update(ctx context.Context, user *models.AdminUser, expectedVersion int64) (bool, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE admin_users
		SET role = $3,
		    status = $4,
		    failed_login_attempts = $5,
		    first_failed_login_at = $6,
		    last_failed_login_at = $7,
		    lockout_reason = $8,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`, user.ID, expectedVersion, string(user.Role), string(user.Status), user.FailedLoginAttempts,
		user.FirstFailedLoginAt, user.LastFailedLoginAt, user.LockoutReason,
	).Scan(&user.Version, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update admin user: %w", err)
	}
	return true, nil
}

// Delete removes an admin user unless it belongs to the acting principal
func (r *AdminUserRepository) Delete(ctx context.Context, id uuid.UUID, actingEmail string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM admin_users WHERE id = $1 AND lower(email) <> lower($2)`,
		id, models.NormalizeEmail(actingEmail))
	if err != nil {
		return false, fmt.Errorf("delete admin user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// versionedWhere matches rows whose (id, version) pair is in $1/$2
const versionedWhere = `(id, version) IN (SELECT * FROM unnest($1::uuid[], $2::bigint[]))`

func splitRows(rows []repositories.RowVersion) ([]uuid.UUID, []int64) {
	ids := make([]uuid.UUID, len(rows))
	versions := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		versions[i] = row.Version
	}
	return ids, versions
}

// execVersioned runs a bulk statement in a transaction and commits only when
// every pinned row matched
func (r *AdminUserRepository) execVersioned(ctx context.Context, op string, rows []repositories.RowVersion, sql string, args ...interface{}) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids, versions := splitRows(rows)
	tag, err := tx.Exec(ctx, sql, append([]interface{}{ids, versions}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() != int64(len(rows)) {
		return 0, repositories.ErrStale
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

// BulkUpdateStatus changes status for many rows. Reactivated rows get their
// counters reset and every row leaving Suspended loses its lockout reason.
func (r *AdminUserRepository) BulkUpdateStatus(ctx context.Context, rows []repositories.RowVersion, status models.Status, reason *string) (int64, error) {
	return r.execVersioned(ctx, "bulk update admin status", rows, `
		UPDATE admin_users
		SET failed_login_attempts = CASE WHEN $3::text = 'Active' AND status IN ('Suspended', 'Inactive')
		        THEN 0 ELSE failed_login_attempts END,
		    first_failed_login_at = CASE WHEN $3::text = 'Active' AND status IN ('Suspended', 'Inactive')
		        THEN NULL ELSE first_failed_login_at END,
		    last_failed_login_at = CASE WHEN $3::text = 'Active' AND status IN ('Suspended', 'Inactive')
		        THEN NULL ELSE last_failed_login_at END,
		    lockout_reason = CASE WHEN $3::text = 'Suspended'
		        THEN COALESCE($4::text, lockout_reason) ELSE NULL END,
		    status = $3::text,
		    version = version + 1,
		    updated_at = NOW()
		WHERE `+versionedWhere, string(status), reason)
}

// BulkUpdateRole changes the role of many rows
func (r *AdminUserRepository) BulkUpdateRole(ctx context.Context, rows []repositories.RowVersion, role models.Role) (int64, error) {
	return r.execVersioned(ctx, "bulk update admin role", rows, `
		UPDATE admin_users
		SET role = $3, version = version + 1, updated_at = NOW()
		WHERE `+versionedWhere, string(role))
}

// BulkDelete removes many rows. A row belonging to the acting principal is never
// matched, so including it fails the whole batch with ErrStale.
func (r *AdminUserRepository) BulkDelete(ctx context.Context, rows []repositories.RowVersion, actingEmail string) (int64, error) {
	return r.execVersioned(ctx, "bulk delete admin users", rows,
		`DELETE FROM admin_users WHERE `+versionedWhere+` AND lower(email) <> lower($3)`,
		models.NormalizeEmail(actingEmail))
}

var _ repositories.AdminUserRepository = (*AdminUserRepository)(nil)
