package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestPublicProfile(t *testing.T) {
	s := newTestServer(t)
	active := s.seedEmployee(t, "John", "Doe", true)
	hidden := s.seedEmployee(t, "Ann", "Hidden", false)

	w := s.do(http.MethodGet, "/api/public/employees/"+active.ID.String(), "", nil)
	assertStatusCode(t, w, http.StatusOK)
	assertJSONField(t, w, "first_name", "John")

	assertStatusCode(t, s.do(http.MethodGet, "/api/public/employees/"+hidden.ID.String(), "", nil), http.StatusNotFound)
	assertStatusCode(t, s.do(http.MethodGet, "/api/public/employees/nope", "", nil), http.StatusBadRequest)
}

func TestQRCode(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/qrcode?id="+uuid.NewString(), "", nil)
	assertStatusCode(t, w, http.StatusOK)
	if qr, _ := decode(t, w)["qrCode"].(string); !strings.HasPrefix(qr, "data:image/png;base64,") {
		t.Errorf("expected PNG data URL, got %.40q", qr)
	}

	assertStatusCode(t, s.do(http.MethodGet, "/api/qrcode", "", nil), http.StatusBadRequest)
}

func TestVCard(t *testing.T) {
	s := newTestServer(t)
	e := s.seedEmployee(t, "John", "Doe", true)
	hidden := s.seedEmployee(t, "Ann", "Hidden", false)

	w := s.do(http.MethodGet, "/api/vcard?id="+e.ID.String(), "", nil)
	assertStatusCode(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/vcard") {
		t.Errorf("expected text/vcard, got %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="John-Doe.vcf"`) {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if body := w.Body.String(); !strings.HasPrefix(body, "BEGIN:VCARD") || !strings.Contains(body, "FN:John Doe") {
		t.Errorf("unexpected vCard body:\n%s", body)
	}

	assertStatusCode(t, s.do(http.MethodGet, "/api/vcard?id="+hidden.ID.String(), "", nil), http.StatusNotFound)
}

func TestCSVTemplate(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/csv-template", "", nil)
	assertStatusCode(t, w, http.StatusOK)
	if !strings.HasPrefix(w.Body.String(), "first_name,last_name,email") {
		t.Errorf("unexpected template header: %q", w.Body.String())
	}
}
