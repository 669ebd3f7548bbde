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

// EmployeeRepository is an in-memory implementation of repositories.EmployeeRepository
type EmployeeRepository struct {
	ImportBatchFunc func(ctx context.Context, employees []*models.Employee) error

	// Call tracking
	Calls map[string][]interface{}

	mu        sync.Mutex
	employees map[uuid.UUID]*models.Employee
	links     *LinkRepository
}

// NewEmployeeRepository creates a new mock employee repository. Imported
// links are written to links when it is non-nil.
func NewEmployeeRepository(links *LinkRepository) *EmployeeRepository {
	return &EmployeeRepository{
		Calls:     make(map[string][]interface{}),
		employees: make(map[uuid.UUID]*models.Employee),
		links:     links,
	}
}

func (m *EmployeeRepository) record(name string, arg interface{}) {
	m.Calls[name] = append(m.Calls[name], arg)
}

func copyEmployee(e *models.Employee) *models.Employee {
	if e == nil {
		return nil
	}
	c := *e
	c.Links = append([]models.EmployeeLink(nil), e.Links...)
	return &c
}

func (m *EmployeeRepository) List(ctx context.Context) ([]*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("List", nil)
	out := make([]*models.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, copyEmployee(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *EmployeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FindByID", id)
	return copyEmployee(m.employees[id]), nil
}

func (m *EmployeeRepository) Create(ctx context.Context, e *models.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Create", e)
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.employees[e.ID] = copyEmployee(e)
	return nil
}

func (m *EmployeeRepository) Update(ctx context.Context, e *models.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Update", e)
	e.UpdatedAt = time.Now()
	m.employees[e.ID] = copyEmployee(e)
	return nil
}

func (m *EmployeeRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetActive", id)
	e, ok := m.employees[id]
	if !ok {
		return false, nil
	}
	e.IsActive = active
	return true, nil
}

func (m *EmployeeRepository) SetPhotoURL(ctx context.Context, id uuid.UUID, photoURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetPhotoURL", photoURL)
	e, ok := m.employees[id]
	if !ok {
		return false, nil
	}
	e.PhotoURL = photoURL
	return true, nil
}

func (m *EmployeeRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Delete", id)
	if _, ok := m.employees[id]; !ok {
		return false, nil
	}
	delete(m.employees, id)
	return true, nil
}

func (m *EmployeeRepository) ImportBatch(ctx context.Context, employees []*models.Employee) error {
	m.mu.Lock()
	m.record("ImportBatch", len(employees))
	m.mu.Unlock()
	if m.ImportBatchFunc != nil {
		return m.ImportBatchFunc(ctx, employees)
	}
	for _, e := range employees {
		if err := m.Create(ctx, e); err != nil {
			return err
		}
		if m.links == nil {
			continue
		}
		for i := range e.Links {
			e.Links[i].EmployeeID = e.ID
			if err := m.links.Create(ctx, &e.Links[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ repositories.EmployeeRepository = (*EmployeeRepository)(nil)

// LinkRepository is an in-memory implementation of repositories.LinkRepository
type LinkRepository struct {
	mu    sync.Mutex
	links map[uuid.UUID]models.EmployeeLink
}

// NewLinkRepository creates a new mock link repository
func NewLinkRepository() *LinkRepository {
	return &LinkRepository{links: make(map[uuid.UUID]models.EmployeeLink)}
}

func (m *LinkRepository) ListByEmployee(ctx context.Context, employeeID uuid.UUID, activeOnly bool) ([]models.EmployeeLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.EmployeeLink{}
	for _, l := range m.links {
		if l.EmployeeID != employeeID || (activeOnly && !l.IsActive) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *LinkRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.EmployeeLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *LinkRepository) Create(ctx context.Context, l *models.EmployeeLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = time.Now()
	m.links[l.ID] = *l
	return nil
}

func (m *LinkRepository) Update(ctx context.Context, l *models.EmployeeLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[l.ID] = *l
	return nil
}

func (m *LinkRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[id]; !ok {
		return false, nil
	}
	delete(m.links, id)
	return true, nil
}

var _ repositories.LinkRepository = (*LinkRepository)(nil)
