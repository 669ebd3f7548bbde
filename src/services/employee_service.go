package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/authz"
	"github.com/khabaroff/staff-cards/src/logging"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories"
	"github.com/khabaroff/staff-cards/src/validators"
)

// EmployeeService manages employee cards and their professional links
type EmployeeService struct {
	employees repositories.EmployeeRepository
	links     repositories.LinkRepository
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(employees repositories.EmployeeRepository, links repositories.LinkRepository) *EmployeeService {
	return &EmployeeService{employees: employees, links: links}
}

// validateRequest runs struct validation and converts failures to a *ValidationError
func validateRequest(req interface{}) error {
	if errs := validators.Validate(req); len(errs) > 0 {
		return &ValidationError{Fields: validators.Fields(errs)}
	}
	return nil
}

func (s *EmployeeService) authorize(actor *models.AdminUser, action authz.Action) error {
	err := authz.Authorize(authz.ActorFrom(actor), action, nil)
	if err != nil {
		logger := logging.Security(actor.Email)
		logger.Warn().Str("role", string(actor.Role)).Str("action", string(action)).Err(err).Msg("employee action denied")
	}
	return err
}

func (s *EmployeeService) find(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	e, err := s.employees.FindByID(ctx, id)
	if err != nil {
		return nil, upstream("find employee", err)
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

// List returns every employee, active or not
func (s *EmployeeService) List(ctx context.Context, actor *models.AdminUser) ([]*models.Employee, error) {
	if err := s.authorize(actor, authz.ActionViewEmployees); err != nil {
		return nil, err
	}
	employees, err := s.employees.List(ctx)
	if err != nil {
		return nil, upstream("list employees", err)
	}
	return employees, nil
}

// Get returns one employee with all of its links
func (s *EmployeeService) Get(ctx context.Context, actor *models.AdminUser, id uuid.UUID) (*models.Employee, error) {
	if err := s.authorize(actor, authz.ActionViewEmployees); err != nil {
		return nil, err
	}
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Links, err = s.links.ListByEmployee(ctx, id, false); err != nil {
		return nil, upstream("list links", err)
	}
	return e, nil
}

// Create adds an employee. New employees are active unless the request says otherwise.
func (s *EmployeeService) Create(ctx context.Context, actor *models.AdminUser, req *validators.EmployeeRequest) (*models.Employee, error) {
	if err := s.authorize(actor, authz.ActionCreateEmployee); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	e := &models.Employee{IsActive: true}
	req.Apply(e)
	if err := s.employees.Create(ctx, e); err != nil {
		return nil, upstream("create employee", err)
	}

	logger := logging.NewLogger("employees")
	logger.Info().Str("employee_id", e.ID.String()).Str("by", actor.Email).Msg("employee created")
	return e, nil
}

// Update replaces an employee's editable fields
func (s *EmployeeService) Update(ctx context.Context, actor *models.AdminUser, id uuid.UUID, req *validators.EmployeeRequest) (*models.Employee, error) {
	if err := s.authorize(actor, authz.ActionEditEmployee); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	// Toggling visibility has its own, stricter permission.
	if req.IsActive != nil {
		if err := s.authorize(actor, authz.ActionChangeEmployeeStatus); err != nil {
			return nil, err
		}
	}

	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(e)
	if err := s.employees.Update(ctx, e); err != nil {
		return nil, upstream("update employee", err)
	}
	return e, nil
}

// SetActive shows or hides an employee's public card
func (s *EmployeeService) SetActive(ctx context.Context, actor *models.AdminUser, id uuid.UUID, active bool) error {
	if err := s.authorize(actor, authz.ActionChangeEmployeeStatus); err != nil {
		return err
	}
	ok, err := s.employees.SetActive(ctx, id, active)
	if err != nil {
		return upstream("set employee status", err)
	}
	if !ok {
		return ErrNotFound
	}
	logger := logging.NewLogger("employees")
	logger.Info().Str("employee_id", id.String()).Bool("is_active", active).Str("by", actor.Email).Msg("employee status changed")
	return nil
}

// Delete removes an employee and its links
func (s *EmployeeService) Delete(ctx context.Context, actor *models.AdminUser, id uuid.UUID) error {
	if err := s.authorize(actor, authz.ActionDeleteEmployee); err != nil {
		return err
	}
	ok, err := s.employees.Delete(ctx, id)
	if err != nil {
		return upstream("delete employee", err)
	}
	if !ok {
		return ErrNotFound
	}
	logger := logging.NewLogger("employees")
	logger.Info().Str("employee_id", id.String()).Str("by", actor.Email).Msg("employee deleted")
	return nil
}

// PublicProfile returns an active employee with its active links. Inactive
// employees are reported as not found.
func (s *EmployeeService) PublicProfile(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		return nil, ErrNotFound
	}
	if e.Links, err = s.links.ListByEmployee(ctx, id, true); err != nil {
		return nil, upstream("list links", err)
	}
	return e, nil
}

// ListLinks returns every link of an employee ordered by sort order
func (s *EmployeeService) ListLinks(ctx context.Context, actor *models.AdminUser, employeeID uuid.UUID) ([]models.EmployeeLink, error) {
	if err := s.authorize(actor, authz.ActionViewEmployees); err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, employeeID); err != nil {
		return nil, err
	}
	links, err := s.links.ListByEmployee(ctx, employeeID, false)
	if err != nil {
		return nil, upstream("list links", err)
	}
	return links, nil
}

// CreateLink attaches a new link to an employee
func (s *EmployeeService) CreateLink(ctx context.Context, actor *models.AdminUser, employeeID uuid.UUID, req *validators.LinkRequest) (*models.EmployeeLink, error) {
	if err := s.authorize(actor, authz.ActionEditEmployee); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, employeeID); err != nil {
		return nil, err
	}

	link := &models.EmployeeLink{EmployeeID: employeeID, IsActive: true}
	req.Apply(link)
	if err := s.links.Create(ctx, link); err != nil {
		return nil, upstream("create link", err)
	}
	return link, nil
}

func (s *EmployeeService) findLink(ctx context.Context, employeeID, linkID uuid.UUID) (*models.EmployeeLink, error) {
	link, err := s.links.FindByID(ctx, linkID)
	if err != nil {
		return nil, upstream("find link", err)
	}
	if link == nil || link.EmployeeID != employeeID {
		return nil, ErrNotFound
	}
	return link, nil
}

// UpdateLink edits a link that belongs to employeeID
func (s *EmployeeService) UpdateLink(ctx context.Context, actor *models.AdminUser, employeeID, linkID uuid.UUID, req *validators.LinkRequest) (*models.EmployeeLink, error) {
	if err := s.authorize(actor, authz.ActionEditEmployee); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	link, err := s.findLink(ctx, employeeID, linkID)
	if err != nil {
		return nil, err
	}
	req.Apply(link)
	if err := s.links.Update(ctx, link); err != nil {
		return nil, upstream("update link", err)
	}
	return link, nil
}

// DeleteLink removes a link that belongs to employeeID
func (s *EmployeeService) DeleteLink(ctx context.Context, actor *models.AdminUser, employeeID, linkID uuid.UUID) error {
	if err := s.authorize(actor, authz.ActionEditEmployee); err != nil {
		return err
	}
	if _, err := s.findLink(ctx, employeeID, linkID); err != nil {
		return err
	}
	ok, err := s.links.Delete(ctx, linkID)
	if err != nil {
		return upstream("delete link", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
