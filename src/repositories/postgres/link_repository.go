package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
)

const linkColumns = `id, employee_id, label, url, icon_type, sort_order, is_active, created_at`

const insertLinkSQL = `
	INSERT INTO employee_links (id, employee_id, label, url, icon_type, sort_order, is_active)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

func insertLinkArgs(l *models.EmployeeLink) []interface{} {
	return []interface{}{l.ID, l.EmployeeID, l.Label, l.URL, l.IconType, l.SortOrder, l.IsActive}
}

// LinkRepository is the pgx-backed professional link store
type LinkRepository struct {
	pool *pgxpool.Pool
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(pool *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{pool: pool}
}

func scanLink(row pgx.Row) (*models.EmployeeLink, error) {
	var l models.EmployeeLink
	if err := row.Scan(&l.ID, &l.EmployeeID, &l.Label, &l.URL, &l.IconType, &l.SortOrder, &l.IsActive, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByEmployee returns an employee's links ordered for display
func (r *LinkRepository) ListByEmployee(ctx context.Context, employeeID uuid.UUID, activeOnly bool) ([]models.EmployeeLink, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+linkColumns+`
		FROM employee_links
		WHERE employee_id = $1 AND (NOT $2 OR is_active)
		ORDER BY sort_order, created_at
	`, employeeID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	links := []models.EmployeeLink{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

// FindByID returns nil when the link does not exist
func (r *LinkRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.EmployeeLink, error) {
	l, err := scanLink(r.pool.QueryRow(ctx, `SELECT `+linkColumns+` FROM employee_links WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find link: %w", err)
	}
	return l, nil
}

// Create inserts a link
func (r *LinkRepository) Create(ctx context.Context, l *models.EmployeeLink) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, insertLinkSQL+` RETURNING created_at`, insertLinkArgs(l)...).Scan(&l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

// Update writes every editable link field
func (r *LinkRepository) Update(ctx context.Context, l *models.EmployeeLink) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE employee_links
		SET label = $3, url = $4, icon_type = $5, sort_order = $6, is_active = $7
		WHERE id = $1 AND employee_id = $2
	`, insertLinkArgs(l)...)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	return nil
}

// Delete removes a link
func (r *LinkRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM employee_links WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete link: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ repositories.LinkRepository = (*LinkRepository)(nil)
