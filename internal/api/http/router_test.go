package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/authz"
	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/gateway"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/policy"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// memoryStore stands in for the record store behind every gateway interface.
type memoryStore struct {
	mu         sync.Mutex
	complaints map[string]canonical.Bag
	users      map[string]canonical.Bag
	customers  []canonical.Bag
	activity   []domain.ActivityEntry
	seq        int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{complaints: map[string]canonical.Bag{}, users: map[string]canonical.Bag{}}
}

func clone(in canonical.Bag) canonical.Bag {
	out := make(canonical.Bag, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func page(items []canonical.Bag) gateway.Page {
	return gateway.Page{Items: items, Pagination: &domain.Pagination{Page: 1, Limit: 50, Total: len(items), TotalPages: 1}}
}

func (s *memoryStore) Login(_ context.Context, email string) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.users {
		if strings.EqualFold(fmt.Sprint(rec["email"]), email) {
			return clone(rec), nil
		}
	}
	return nil, apperrors.NewNotFound("user", nil)
}

func (s *memoryStore) GetUsers(_ context.Context, q gateway.ListQuery) (gateway.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []canonical.Bag
	for id, rec := range s.users {
		if want := q.Filters["id"]; want != "" && want != id {
			continue
		}
		if want := q.Filters["email"]; want != "" && !strings.EqualFold(fmt.Sprint(rec["email"]), want) {
			continue
		}
		items = append(items, clone(rec))
	}
	return page(items), nil
}

func (s *memoryStore) CreateUser(_ context.Context, attrs canonical.Bag, _ domain.ActivityMeta) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	rec := clone(attrs)
	rec["id"] = fmt.Sprintf("u-%d", s.seq)
	s.users[rec["id"].(string)] = rec
	return clone(rec), nil
}

func (s *memoryStore) UpdateUser(_ context.Context, req gateway.UpdateRequest) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[req.ID]
	if !ok {
		return nil, apperrors.NewNotFound("user", nil)
	}
	for k, v := range req.Updates {
		rec[k] = v
	}
	return clone(rec), nil
}

func (s *memoryStore) DeleteUser(_ context.Context, id string, _ domain.ActivityMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return apperrors.NewNotFound("user", nil)
	}
	rec["active"] = false
	return nil
}

func (s *memoryStore) ResetUserPassword(_ context.Context, id, hash string, _ domain.ActivityMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return apperrors.NewNotFound("user", nil)
	}
	rec["passwordHash"] = hash
	return nil
}

func (s *memoryStore) GetCustomers(context.Context, gateway.ListQuery) (gateway.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]canonical.Bag, 0, len(s.customers))
	for _, rec := range s.customers {
		items = append(items, clone(rec))
	}
	return page(items), nil
}

func (s *memoryStore) CreateCustomer(_ context.Context, attrs canonical.Bag, _ domain.ActivityMeta) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	rec := clone(attrs)
	rec["id"] = fmt.Sprintf("c-%d", s.seq)
	s.customers = append(s.customers, rec)
	return clone(rec), nil
}

func (s *memoryStore) GetComplaints(_ context.Context, q gateway.ListQuery) (gateway.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []canonical.Bag
	for id, rec := range s.complaints {
		if want := q.Filters["id"]; want != "" && want != id {
			continue
		}
		items = append(items, clone(rec))
	}
	return page(items), nil
}

func (s *memoryStore) CreateComplaint(_ context.Context, attrs canonical.Bag, _ domain.ActivityMeta) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := clone(attrs)
	rec["version"] = int64(1)
	s.complaints[rec["id"].(string)] = rec
	return clone(rec), nil
}

func (s *memoryStore) UpdateComplaint(_ context.Context, req gateway.UpdateRequest) (canonical.Bag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.complaints[req.ID]
	if !ok {
		return nil, apperrors.NewNotFound("complaint", nil)
	}
	for k, v := range req.Updates {
		rec[k] = v
	}
	version, _ := rec["version"].(int64)
	rec["version"] = version + 1
	return clone(rec), nil
}

func (s *memoryStore) GetActivityFeed(context.Context, int) ([]domain.ActivityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ActivityEntry(nil), s.activity...), nil
}

func (s *memoryStore) GetDashboardStats(context.Context) (domain.DashboardStats, error) {
	return domain.DashboardStats{"open": float64(len(s.complaints))}, nil
}

type testServer struct {
	app    *fiber.App
	store  *memoryStore
	tokens *auth.TokenManager
	users  map[domain.Role]domain.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4, MinPasswordLength: 8}}
	logger := zap.NewNop()
	store := newMemoryStore()
	policyStore := policy.NewStore(nil)
	engine := authz.NewEngine(policyStore, nil)
	dispatcher := events.NewInMemoryDispatcher()
	quality := service.NewDataQualityReporter(logger, nil, nil)

	hash, err := auth.HashPassword("correct-horse", 4)
	require.NoError(t, err)
	users := map[domain.Role]domain.User{
		domain.RoleAdmin:      {ID: "admin-1", Name: "Admin", Email: "admin@utility.et", Role: domain.RoleAdmin, Region: "Addis Ababa", Active: true},
		domain.RoleTechnician: {ID: "tech-1", Name: "Tech", Email: "tech@utility.et", Role: domain.RoleTechnician, Region: "Oromia", Active: true},
	}
	for _, u := range users {
		u.PasswordHash = hash
		store.users[u.ID] = canonical.UserAttributes(u)
	}

	authService := service.NewAuthService(cfg, service.AuthDependencies{Store: store, Quality: quality, Logger: logger})
	userService := service.NewUserService(service.UserDependencies{Store: store, Authz: engine, Dispatcher: dispatcher, Quality: quality, Logger: logger, BcryptCost: 4, MinPasswordLength: 8})
	complaints := service.NewComplaintService(service.ComplaintDependencies{Store: store, Authz: engine, Dispatcher: dispatcher, Quality: quality, Logger: logger})
	intake := service.NewIntakeService(service.IntakeDependencies{Customers: store, Complaints: store, Quality: quality, Dispatcher: dispatcher, Logger: logger})
	policies := service.NewPolicyService(service.PolicyDependencies{Store: policyStore, Authz: engine, Dispatcher: dispatcher, Logger: logger})
	dashboard := service.NewDashboardService(service.DashboardDependencies{Store: store, Authz: engine, Logger: logger})
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("complaint-service", "test", map[string]handlers.DependencyCheck{
			"record_store": func(context.Context) error { return nil },
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Intake:         handlers.NewIntakeHandler(intake),
		Complaints:     handlers.NewComplaintsHandler(complaints),
		Customers:      handlers.NewCustomersHandler(service.NewCustomerService(store, engine, quality, nil)),
		Users:          handlers.NewUsersHandler(userService),
		Policy:         handlers.NewPolicyHandler(policies, engine),
		Dashboard:      handlers.NewDashboardHandler(dashboard),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userService),
		Permissions:    engine,
		Metrics:        metrics.Handler(),
		IntakeLimiter:  RateLimit(0.001, 2),
	})

	return &testServer{app: app, store: store, tokens: authService.TokenManager(), users: users}
}

func (s *testServer) token(t *testing.T, role domain.Role) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(s.users[role])
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, fiber.MethodPost, "/auth/login", "", map[string]string{"email": "ADMIN@utility.et", "password": "correct-horse"})
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["auth"].(map[string]any)["token"])
	assert.Equal(t, "admin-1", data["user"].(map[string]any)["id"])

	status, body = srv.do(t, fiber.MethodPost, "/auth/login", "", map[string]string{"email": "admin@utility.et", "password": "wrong-password"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(body))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, fiber.MethodGet, "/complaints", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(body))

	status, _ = srv.do(t, fiber.MethodGet, "/complaints", "not-a-jwt", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestComplaintLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.token(t, domain.RoleAdmin)

	status, body := srv.do(t, fiber.MethodPost, "/complaints", admin, map[string]any{
		"customer":    map[string]any{"name": "Abebe Kebede", "phone": "+251911000000", "region": "Oromia"},
		"title":       "No power since morning",
		"description": "Whole street is dark",
		"category":    "no-power",
		"region":      "oromia",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	created := body["data"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, "open", created["status"])
	assert.Equal(t, "Oromia", created["region"])

	status, body = srv.do(t, fiber.MethodPost, "/complaints/"+id+"/transition", admin, map[string]any{"status": "resolved"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(body))

	status, body = srv.do(t, fiber.MethodPost, "/complaints/"+id+"/transition", admin, map[string]any{
		"status":              "resolved",
		"work_classification": "line repair",
		"notes":               "replaced fuse",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	resolved := body["data"].(map[string]any)
	assert.Equal(t, "resolved", resolved["status"])
	assert.NotNil(t, resolved["resolved_at"])
	assert.Equal(t, []any{"replaced fuse"}, resolved["notes"])

	status, body = srv.do(t, fiber.MethodPost, "/complaints/"+id+"/transition", admin, map[string]any{"status": "teleported"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(body))

	status, body = srv.do(t, fiber.MethodGet, "/complaints", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)
	assert.NotNil(t, body["pagination"])
}

func TestTechnicianCannotSetHighPriority(t *testing.T) {
	srv := newTestServer(t)
	srv.store.complaints["CMP-1"] = canonical.Bag{
		"id": "CMP-1", "title": "Meter", "description": "Broken", "region": "Oromia",
		"priority": "low", "status": "open", "customerName": "Almaz", "version": int64(1),
	}
	tech := srv.token(t, domain.RoleTechnician)

	status, body := srv.do(t, fiber.MethodPost, "/complaints/CMP-1/priority", tech, map[string]string{"priority": "critical"})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, apperrors.CodePermissionDenied, errorCode(body))

	status, _ = srv.do(t, fiber.MethodPost, "/complaints/CMP-1/priority", tech, map[string]string{"priority": "medium"})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestTechnicianOutsideRegionIsDenied(t *testing.T) {
	srv := newTestServer(t)
	srv.store.complaints["CMP-2"] = canonical.Bag{
		"id": "CMP-2", "title": "Outage", "description": "Dark", "region": "Amhara",
		"priority": "low", "status": "open", "customerName": "Kebede", "version": int64(1),
	}
	tech := srv.token(t, domain.RoleTechnician)

	status, body := srv.do(t, fiber.MethodGet, "/complaints/CMP-2", tech, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, apperrors.CodePermissionDenied, errorCode(body))

	status, body = srv.do(t, fiber.MethodGet, "/complaints", tech, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["data"])
}

func TestTechnicianCannotManageUsers(t *testing.T) {
	srv := newTestServer(t)
	tech := srv.token(t, domain.RoleTechnician)

	status, body := srv.do(t, fiber.MethodGet, "/users", tech, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, apperrors.CodePermissionDenied, errorCode(body))

	status, body = srv.do(t, fiber.MethodGet, "/users/me", tech, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "tech-1", body["data"].(map[string]any)["id"])
}

func TestUserManagementOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.token(t, domain.RoleAdmin)

	status, body := srv.do(t, fiber.MethodPost, "/users", admin, map[string]string{
		"name": "Sara", "email": "sara@utility.et", "password": "long-enough", "role": "foreman", "region": "Amhara",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	id := body["data"].(map[string]any)["id"].(string)
	assert.NotContains(t, body["data"], "password_hash")

	status, body = srv.do(t, fiber.MethodPost, "/users", admin, map[string]string{
		"name": "Sara Again", "email": "SARA@utility.et", "password": "long-enough", "role": "foreman", "region": "Amhara",
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, apperrors.CodeConflict, errorCode(body))

	status, _ = srv.do(t, fiber.MethodPost, "/users/"+id+"/deactivate", admin, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, body = srv.do(t, fiber.MethodGet, "/users/"+id, admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["data"].(map[string]any)["active"])
}

func TestPolicyUpdateChangesDecisions(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.token(t, domain.RoleAdmin)
	tech := srv.token(t, domain.RoleTechnician)
	check := map[string]string{"resource": "customers", "action": "create"}

	status, body := srv.do(t, fiber.MethodPost, "/authz/check", tech, check)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["data"].(map[string]any)["allowed"])

	status, _ = srv.do(t, fiber.MethodGet, "/policy", tech, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = srv.do(t, fiber.MethodPut, "/policy/permissions", admin, map[string]any{
		"role":        "technician",
		"resource":    "customers",
		"permissions": map[string]bool{"create": true, "read": true},
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.EqualValues(t, 2, body["data"].(map[string]any)["version"])

	status, body = srv.do(t, fiber.MethodPost, "/authz/check", tech, check)
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["allowed"])
	assert.EqualValues(t, 2, data["policy_version"])

	status, body = srv.do(t, fiber.MethodPost, "/authz/check", tech, map[string]string{"resource": "nope", "action": "read"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(body))
}

func TestPublicIntakeIsRateLimited(t *testing.T) {
	srv := newTestServer(t)
	submission := map[string]string{
		"name": "Hanna", "phone": "0911 223 344", "region": "Addis Ababa",
		"title": "Sparks from pole", "description": "Pole near school", "category": "line-damage",
	}

	for i := 0; i < 2; i++ {
		status, body := srv.do(t, fiber.MethodPost, "/public/complaints", "", submission)
		require.Equal(t, fiber.StatusCreated, status, body)
		data := body["data"].(map[string]any)
		assert.NotEmpty(t, data["reference"])
		assert.Equal(t, "open", data["status"])
	}

	status, body := srv.do(t, fiber.MethodPost, "/public/complaints", "", submission)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, apperrors.CodeRateLimited, errorCode(body))
}

func TestPublicIntakeValidation(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, fiber.MethodPost, "/public/complaints", "", map[string]string{"name": "Hanna"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(body))
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, fiber.MethodGet, "/does-not-exist", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(body))
}

func TestDashboardHidesComplaintActivityWithoutAccess(t *testing.T) {
	srv := newTestServer(t)
	srv.store.activity = []domain.ActivityEntry{
		{ID: "a1", Action: "createComplaint", RelatedComplaintID: "CMP-1"},
		{ID: "a2", Action: "createUser"},
	}
	admin := srv.token(t, domain.RoleAdmin)

	status, body := srv.do(t, fiber.MethodGet, "/activity", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 2)

	status, _ = srv.do(t, fiber.MethodGet, "/dashboard", srv.token(t, domain.RoleTechnician), nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}
