package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/staff-cards/src/database"
)

type stubChecker struct{ err error }

func (s stubChecker) Health(ctx context.Context) error { return s.err }

func TestHandleHealth_Success(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		gin.SetMode(gin.TestMode)
		w, c := createTestContext()
		c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

		handler := NewHealthHandler(database.NewDatabaseFromPool(tdb.Pool), stubChecker{})
		handler.HandleHealth(c)

		assertStatusCode(t, w, http.StatusOK)

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if response["database"] != "connected" || response["sessions"] != "connected" {
			t.Errorf("expected both dependencies connected, got %v", response)
		}
		if _, ok := response["db_latency"]; !ok {
			t.Error("expected db_latency field")
		}
	})
}

func TestHandleHealth_DBError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, c := createTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	// nil pool = DB error
	handler := NewHealthHandler(database.NewDatabaseFromPool(nil), nil)
	handler.HandleHealth(c)

	assertStatusCode(t, w, http.StatusServiceUnavailable)

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["status"] != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got %v", response["status"])
	}
	if response["database"] != "disconnected" {
		t.Errorf("expected database 'disconnected', got %v", response["database"])
	}
	if _, ok := response["sessions"]; ok {
		t.Error("expected no sessions field without a session checker")
	}
}

func TestHandleReady_SessionStoreDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, c := createTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	handler := NewHealthHandler(stubChecker{}, stubChecker{err: errors.New("redis: connection refused")})
	handler.HandleReady(c)

	assertStatusCode(t, w, http.StatusServiceUnavailable)
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["ready"] != false {
		t.Errorf("expected ready false, got %v", response["ready"])
	}
}

func TestHandleReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w, c := createTestContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	NewHealthHandler(stubChecker{}, stubChecker{}).HandleReady(c)

	assertStatusCode(t, w, http.StatusOK)
}
