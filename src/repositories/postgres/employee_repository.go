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

const employeeColumns = `id, slug, first_name, last_name, email, phone, whatsapp, job_title,
	department, website, company, photo_url, is_active, created_at, updated_at`

// EmployeeRepository is the pgx-backed employee store
type EmployeeRepository struct {
	pool *pgxpool.Pool
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(pool *pgxpool.Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func scanEmployee(row pgx.Row) (*models.Employee, error) {
	var e models.Employee
	err := row.Scan(&e.ID, &e.Slug, &e.FirstName, &e.LastName, &e.Email, &e.Phone, &e.WhatsApp,
		&e.JobTitle, &e.Department, &e.Website, &e.Company, &e.PhotoURL, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns all employees, newest first
func (r *EmployeeRepository) List(ctx context.Context) ([]*models.Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// FindByID returns nil when the employee does not exist
func (r *EmployeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return e, nil
}

const insertEmployeeSQL = `
	INSERT INTO employees (id, slug, first_name, last_name, email, phone, whatsapp, job_title,
		department, website, company, photo_url, is_active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING created_at, updated_at`

func insertEmployeeArgs(e *models.Employee) []interface{} {
	return []interface{}{e.ID, e.Slug, e.FirstName, e.LastName, e.Email, e.Phone, e.WhatsApp, e.JobTitle,
		e.Department, e.Website, e.Company, e.PhotoURL, e.IsActive}
}

// Create inserts an employee
func (r *EmployeeRepository) Create(ctx context.Context, e *models.Employee) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := r.pool.QueryRow(ctx, insertEmployeeSQL, insertEmployeeArgs(e)...).Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

// Update writes every editable employee field
func (r *EmployeeRepository) Update(ctx context.Context, e *models.Employee) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE employees
		SET slug = $2, first_name = $3, last_name = $4, email = $5, phone = $6, whatsapp = $7,
		    job_title = $8, department = $9, website = $10, company = $11, photo_url = $12,
		    is_active = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, insertEmployeeArgs(e)...).Scan(&e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	return nil
}

// SetActive toggles the employee's public visibility
func (r *EmployeeRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return false, fmt.Errorf("set employee status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetPhotoURL stores the public URL of an uploaded photo
func (r *EmployeeRepository) SetPhotoURL(ctx context.Context, id uuid.UUID, photoURL string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET photo_url = $2, updated_at = NOW() WHERE id = $1`, id, photoURL)
	if err != nil {
		return false, fmt.Errorf("set employee photo: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes an employee; links cascade
func (r *EmployeeRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete employee: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ImportBatch inserts employees with their links atomically
func (r *EmployeeRepository) ImportBatch(ctx context.Context, employees []*models.Employee) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, e := range employees {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if err := tx.QueryRow(ctx, insertEmployeeSQL, insertEmployeeArgs(e)...).Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
			return fmt.Errorf("import employee %s: %w", e.Email, err)
		}
		for i := range e.Links {
			l := &e.Links[i]
			if l.ID == uuid.Nil {
				l.ID = uuid.New()
			}
			l.EmployeeID = e.ID
			batch.Queue(insertLinkSQL, insertLinkArgs(l)...)
		}
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("import links: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

var _ repositories.EmployeeRepository = (*EmployeeRepository)(nil)
