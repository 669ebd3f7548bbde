package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/khabaroff/staff-cards/src/models"
)

const sampleCSV = "first_name,last_name,email\nJane,Smith,jane@example.com\n"

func (s *testServer) upload(t *testing.T, path, token, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestImportCSV(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "ops@example.com", models.RoleOperator, models.StatusActive, password)
	token := s.login(t, "ops@example.com", password)

	csv := "first_name,last_name,email,linkedin\n" +
		"Jane,Smith,jane@example.com,https://linkedin.com/in/jane\n" +
		"Bob,Stone,bob@example.com,\n"
	w := s.upload(t, "/api/import/csv", token, "staff.csv", []byte(csv), nil)
	assertStatusCode(t, w, http.StatusOK)
	body := decode(t, w)
	if body["success"] != true || body["count"] != float64(2) {
		t.Errorf("unexpected import result: %v", body)
	}
}

func TestImportCSV_RowErrors(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "ops@example.com", models.RoleOperator, models.StatusActive, password)
	token := s.login(t, "ops@example.com", password)

	csv := "first_name,last_name,email\nJane,Smith,not-an-email\n"
	w := s.upload(t, "/api/import/csv", token, "staff.csv", []byte(csv), nil)
	assertStatusCode(t, w, http.StatusBadRequest)
	assertJSONField(t, w, "error", "validation_failed")
	if rows, _ := decode(t, w)["rows"].([]interface{}); len(rows) != 1 {
		t.Errorf("expected one row error, got %v", rows)
	}
	if len(s.employees.Calls["ImportBatch"]) != 0 {
		t.Error("rejected import must not write")
	}
}

func TestImportCSV_ViewerDeniedAndMissingFile(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "viewer@example.com", models.RoleViewer, models.StatusActive, password)
	token := s.login(t, "viewer@example.com", password)

	w := s.upload(t, "/api/import/csv", token, "staff.csv", []byte(sampleCSV), nil)
	assertStatusCode(t, w, http.StatusForbidden)

	w = s.upload(t, "/api/import/csv", token, "", nil, nil)
	assertStatusCode(t, w, http.StatusBadRequest)
}

func TestUploadPhoto(t *testing.T) {
	s := newTestServer(t)
	s.seedAdmin(t, "ops@example.com", models.RoleOperator, models.StatusActive, password)
	token := s.login(t, "ops@example.com", password)
	e := s.seedEmployee(t, "John", "Doe", true)

	w := s.upload(t, "/api/upload", token, "me.png", []byte("\x89PNG fake"), map[string]string{"employeeId": e.ID.String()})
	assertStatusCode(t, w, http.StatusOK)
	url, _ := decode(t, w)["url"].(string)
	if !strings.HasPrefix(url, "https://employee-photos.s3.eu-central-1.amazonaws.com/"+e.ID.String()+"_") {
		t.Errorf("unexpected photo URL %q", url)
	}
	if len(s.bucket.keys) != 1 {
		t.Errorf("expected one stored object, got %d", len(s.bucket.keys))
	}
	stored, _ := s.employees.FindByID(t.Context(), e.ID)
	if stored.PhotoURL != url {
		t.Errorf("expected photo URL to be recorded, got %q", stored.PhotoURL)
	}

	w = s.upload(t, "/api/upload", token, "script.exe", []byte("MZ"), map[string]string{"employeeId": e.ID.String()})
	assertStatusCode(t, w, http.StatusBadRequest)

	w = s.upload(t, "/api/upload", token, "me.png", []byte("x"), nil)
	assertStatusCode(t, w, http.StatusBadRequest)
}
