package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/khabaroff/staff-cards/src/identity"
	"github.com/khabaroff/staff-cards/src/lockout"
	"github.com/khabaroff/staff-cards/src/middleware"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories/mock"
	"github.com/khabaroff/staff-cards/src/services"
)

const supportEmail = "support@example.com"

// createTestContext creates a test Gin context with recorder
func createTestContext() (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return w, c
}

// assertStatusCode checks if response status code matches expected
func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expectedCode int) {
	t.Helper()
	if w.Code != expectedCode {
		t.Errorf("expected status %d, got %d: %s", expectedCode, w.Code, w.Body.String())
	}
}

// assertJSONField checks a top-level string field of the JSON response
func assertJSONField(t *testing.T, w *httptest.ResponseRecorder, field, expected string) {
	t.Helper()
	response := decode(t, w)
	if response[field] != expected {
		t.Errorf("expected %s '%s', got '%v'", field, expected, response[field])
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v (%s)", err, w.Body.String())
	}
	return response
}

type memoryBucket struct {
	keys []string
}

func (b *memoryBucket) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	_, _ = io.Copy(io.Discard, in.Body)
	b.keys = append(b.keys, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

// testServer wires the real services over in-memory stores
type testServer struct {
	router     *gin.Engine
	admins     *mock.AdminUserRepository
	identities *mock.IdentityRepository
	sessions   *identity.MemorySessionStore
	idp        *identity.LocalProvider
	employees  *mock.EmployeeRepository
	links      *mock.LinkRepository
	bucket     *memoryBucket
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		admins:     mock.NewAdminUserRepository(),
		identities: mock.NewIdentityRepository(),
		sessions:   identity.NewMemorySessionStore(),
		links:      mock.NewLinkRepository(),
		bucket:     &memoryBucket{},
	}
	s.employees = mock.NewEmployeeRepository(s.links)
	s.idp = identity.NewLocalProvider(s.identities, s.sessions, services.LogMailer{}, identity.Config{
		JWTSecret: "handler-test-secret-0123456789abcdef",
		BaseURL:   "https://cards.example.com",
	})

	loginSvc := services.NewLoginService(s.admins, s.idp, lockout.DefaultPolicy(), nil, services.LoginOptions{SupportEmail: supportEmail})
	adminSvc := services.NewAdminUserService(s.admins, s.idp, nil, services.AdminUserOptions{ActivationSendsReset: true, BulkActivationSendsReset: true})
	employeeSvc := services.NewEmployeeService(s.employees, s.links)
	photoSvc := services.NewPhotoService(s.bucket, s.employees, services.PhotoConfig{Bucket: "employee-photos", Region: "eu-central-1"})
	cardSvc := services.NewCardService(s.employees, "https://cards.example.com", "UA Company")

	limiter := middleware.NewLoginRateLimiter(600)
	t.Cleanup(limiter.Stop)

	routes := &Routes{
		Health:     NewHealthHandler(stubChecker{}, nil),
		Auth:       NewAuthHandler(loginSvc, s.idp, supportEmail, false),
		AdminUsers: NewAdminUserHandler(adminSvc, supportEmail),
		Employees:  NewEmployeeHandler(employeeSvc, supportEmail),
		Files:      NewFileHandler(services.NewImportService(s.employees), photoSvc, supportEmail),
		Public:     NewPublicHandler(employeeSvc, cardSvc),
		Session:    middleware.SessionAuthMiddleware(s.idp, adminSvc, supportEmail),
		LoginLimit: limiter.Handler(),
	}
	s.router = gin.New()
	s.router.Use(middleware.RequestIDMiddleware())
	routes.Register(s.router)
	return s
}

// seedAdmin creates an admin row and a matching identity with password
func (s *testServer) seedAdmin(t *testing.T, email string, role models.Role, status models.Status, password string) *models.AdminUser {
	t.Helper()
	if err := s.idp.EnsurePassword(context.Background(), email, password); err != nil {
		t.Fatalf("EnsurePassword: %v", err)
	}
	u := &models.AdminUser{Email: email, Role: role, Status: status}
	s.admins.Put(u)
	return u
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	w := s.do(http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", email, w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	if token == "" {
		t.Fatal("expected a session token")
	}
	return token
}
