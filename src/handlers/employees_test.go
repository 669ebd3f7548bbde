package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/khabaroff/staff-cards/src/models"
)

func (s *testServer) seedEmployee(t *testing.T, first, last string, active bool) *models.Employee {
	t.Helper()
	e := &models.Employee{FirstName: first, LastName: last, Email: first + "@example.com", IsActive: active}
	if err := s.employees.Create(context.Background(), e); err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	return e
}

func TestEmployees_CreateAndGet(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "ops@example.com", models.RoleOperator, models.StatusActive, password)
	token := s.login(t, "ops@example.com", password)

	w := s.do(http.MethodPost, "/api/employees", token, map[string]string{
		"first_name": "Jane",
		"last_name":  "Smith",
		"email":      "jane@example.com",
		"website":    "example.com",
	})
	assertStatusCode(t, w, http.StatusCreated)
	created := decode(t, w)
	if created["is_active"] != true {
		t.Errorf("expected new employee to be active, got %v", created["is_active"])
	}
	if created["website"] != "https://example.com" {
		t.Errorf("expected sanitized website, got %v", created["website"])
	}

	id, _ := created["id"].(string)
	w = s.do(http.MethodGet, "/api/employees/"+id, token, nil)
	assertStatusCode(t, w, http.StatusOK)
	assertJSONField(t, w, "email", "jane@example.com")
}

func TestEmployees_CreateValidation(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "ops@example.com", models.RoleOperator, models.StatusActive, password)

	w := s.do(http.MethodPost, "/api/employees", s.login(t, "ops@example.com", password), map[string]string{
		"first_name": "Jane",
		"email":      "not-an-email",
	})
	assertStatusCode(t, w, http.StatusBadRequest)
	fields, _ := decode(t, w)["fields"].(map[string]interface{})
	if _, ok := fields["last_name"]; !ok {
		t.Errorf("expected last_name error, got %v", fields)
	}
	if _, ok := fields["email"]; !ok {
		t.Errorf("expected email error, got %v", fields)
	}
}

func TestEmployees_RoleGates(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "viewer@example.com", models.RoleViewer, models.StatusActive, password)
	s.seedAdmin(t, "pending@example.com", models.RoleOperator, models.StatusPending, password)
	s.seedAdmin(t, "ops@example.com", models.RoleOperator, models.StatusActive, password)
	s.seedAdmin(t, "admin@example.com", models.RoleAdmin, models.StatusActive, password)
	e := s.seedEmployee(t, "John", "Doe", true)
	body := map[string]string{"first_name": "Jim", "last_name": "Doe", "email": "jim@example.com"}

	viewer := s.login(t, "viewer@example.com", password)
	assertStatusCode(t, s.do(http.MethodGet, "/api/employees", viewer, nil), http.StatusOK)
	assertStatusCode(t, s.do(http.MethodPost, "/api/employees", viewer, body), http.StatusForbidden)

	// Pending accounts are view-only whatever their role
	pending := s.login(t, "pending@example.com", password)
	assertStatusCode(t, s.do(http.MethodGet, "/api/employees", pending, nil), http.StatusOK)
	assertStatusCode(t, s.do(http.MethodPost, "/api/employees", pending, body), http.StatusForbidden)

	ops := s.login(t, "ops@example.com", password)
	status := map[string]bool{"is_active": false}
	assertStatusCode(t, s.do(http.MethodPut, "/api/employees/"+e.ID.String()+"/status", ops, status), http.StatusForbidden)
	assertStatusCode(t, s.do(http.MethodDelete, "/api/employees/"+e.ID.String(), ops, nil), http.StatusForbidden)

	admin := s.login(t, "admin@example.com", password)
	assertStatusCode(t, s.do(http.MethodPut, "/api/employees/"+e.ID.String()+"/status", admin, status), http.StatusOK)
	assertStatusCode(t, s.do(http.MethodDelete, "/api/employees/"+e.ID.String(), admin, nil), http.StatusForbidden)
}

func TestEmployees_Links(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "ops@example.com", models.RoleOperator, models.StatusActive, password)
	token := s.login(t, "ops@example.com", password)
	e := s.seedEmployee(t, "John", "Doe", true)
	other := s.seedEmployee(t, "Mary", "Major", true)
	base := "/api/employees/" + e.ID.String() + "/links"

	w := s.do(http.MethodPost, base, token, map[string]interface{}{"label": "LinkedIn", "url": "https://linkedin.com/in/jdoe"})
	assertStatusCode(t, w, http.StatusCreated)
	linkID, _ := decode(t, w)["id"].(string)

	w = s.do(http.MethodGet, base, token, nil)
	assertStatusCode(t, w, http.StatusOK)
	if links, _ := decode(t, w)["links"].([]interface{}); len(links) != 1 {
		t.Errorf("expected 1 link, got %d", len(links))
	}

	// A link is only reachable through its owner
	foreign := "/api/employees/" + other.ID.String() + "/links/" + linkID
	assertStatusCode(t, s.do(http.MethodDelete, foreign, token, nil), http.StatusNotFound)
	assertStatusCode(t, s.do(http.MethodDelete, base+"/"+linkID, token, nil), http.StatusOK)

	w = s.do(http.MethodPost, base, token, map[string]interface{}{"label": "", "url": "nope"})
	assertStatusCode(t, w, http.StatusBadRequest)
}

func TestEmployees_UnknownID(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "ops@example.com", models.RoleOperator, models.StatusActive, password)
	token := s.login(t, "ops@example.com", password)

	assertStatusCode(t, s.do(http.MethodGet, "/api/employees/00000000-0000-0000-0000-000000000001", token, nil), http.StatusNotFound)
	assertStatusCode(t, s.do(http.MethodGet, "/api/employees/abc", token, nil), http.StatusBadRequest)
}

func TestEmployees_RequireSession(t *testing.T) {
	s := newTestServer(t)

	assertStatusCode(t, s.do(http.MethodGet, "/api/employees", "", nil), http.StatusUnauthorized)
	assertStatusCode(t, s.do(http.MethodGet, "/api/employees", "garbage", nil), http.StatusUnauthorized)
}
