package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mertokas/tasknest-backend/internal/config"
	"github.com/mertokas/tasknest-backend/internal/handlers"
	"github.com/mertokas/tasknest-backend/internal/models"
	"github.com/mertokas/tasknest-backend/internal/routes"
	"github.com/mertokas/tasknest-backend/internal/services"
	"github.com/mertokas/tasknest-backend/internal/token"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testAccessSecret  = "access-test-secret"
	testRefreshSecret = "refresh-test-secret"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"),
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Task{}); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	cfg := &config.Config{
		AccessTokenSecret:  testAccessSecret,
		RefreshTokenSecret: testRefreshSecret,
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}

	tokenService := token.NewService(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenExpiry,
		cfg.RefreshTokenExpiry,
	)
	hasher := services.NewPasswordHasher(bcrypt.MinCost)
	authService := services.NewAuthService(db, tokenService, hasher)
	taskService := services.NewTaskService(db)

	app := fiber.New()
	routes.Setup(app, cfg,
		handlers.NewAuthHandler(authService),
		handlers.NewTaskHandler(taskService),
		handlers.NewHealthHandler(),
	)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, bearer string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	var parsed map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}
	return resp, parsed
}

func registerAlice(t *testing.T, app *fiber.App) map[string]interface{} {
	t.Helper()
	resp, body := doJSON(t, app, fiber.MethodPost, "/api/auth/register", fiber.Map{
		"name":     "Alice",
		"email":    "alice@x.com",
		"password": "secret1",
	}, "")
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%v)", resp.StatusCode, body)
	}
	return body
}

func TestRegisterEndpoint(t *testing.T) {
	app := setupTestApp(t)

	body := registerAlice(t, app)
	if tok, ok := body["accessToken"].(string); !ok || tok == "" {
		t.Fatal("expected access token in register response")
	}
	if tok, ok := body["refreshToken"].(string); !ok || tok == "" {
		t.Fatal("expected refresh token in register response")
	}

	user, ok := body["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected user object, got %v", body["user"])
	}
	if user["email"] != "alice@x.com" {
		t.Errorf("unexpected email %v", user["email"])
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("password must never appear in responses")
	}
}

func TestRegisterDuplicateEmailEndpoint(t *testing.T) {
	app := setupTestApp(t)

	registerAlice(t, app)
	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/auth/register", fiber.Map{
		"email":    "alice@x.com",
		"password": "secret1",
	}, "")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestRegisterValidationEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/auth/register", fiber.Map{
		"email":    "alice@x.com",
		"password": "short",
	}, "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", resp.StatusCode)
	}
}

func TestLoginEndpointStatuses(t *testing.T) {
	app := setupTestApp(t)
	registerAlice(t, app)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/auth/login", fiber.Map{
		"email": "nobody@x.com", "password": "secret1",
	}, "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("unknown email: expected 404, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/auth/login", fiber.Map{
		"email": "alice@x.com", "password": "wrong-pass",
	}, "")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", resp.StatusCode)
	}

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/auth/login", fiber.Map{
		"email": "alice@x.com", "password": "secret1",
	}, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("valid login: expected 200, got %d", resp.StatusCode)
	}
	if tok, ok := body["accessToken"].(string); !ok || tok == "" {
		t.Fatal("expected tokens in login response")
	}
}

func TestRefreshEndpoint(t *testing.T) {
	app := setupTestApp(t)
	reg := registerAlice(t, app)
	refreshToken := reg["refreshToken"].(string)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/auth/refresh", fiber.Map{}, "")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/auth/refresh", fiber.Map{
		"refreshToken": "garbage",
	}, "")
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("invalid token: expected 403, got %d", resp.StatusCode)
	}

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/auth/refresh", fiber.Map{
		"refreshToken": refreshToken,
	}, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("valid refresh: expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if tok, ok := body["refreshToken"].(string); !ok || tok == "" {
		t.Fatal("expected new token pair")
	}

	// Rotated-out token is rejected on reuse.
	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/auth/refresh", fiber.Map{
		"refreshToken": refreshToken,
	}, "")
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("reused token: expected 403, got %d", resp.StatusCode)
	}
}

func TestLogoutEndpoint(t *testing.T) {
	app := setupTestApp(t)
	reg := registerAlice(t, app)
	refreshToken := reg["refreshToken"].(string)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/auth/logout", fiber.Map{
		"refreshToken": refreshToken,
	}, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, fiber.MethodPost, "/api/auth/refresh", fiber.Map{
		"refreshToken": refreshToken,
	}, "")
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("refresh after logout: expected 403, got %d", resp.StatusCode)
	}
}

func TestGuardRejectsBadCredentials(t *testing.T) {
	app := setupTestApp(t)

	// No Authorization header.
	resp, _ := doJSON(t, app, fiber.MethodGet, "/api/tasks/", nil, "")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("missing header: expected 401, got %d", resp.StatusCode)
	}

	// Wrong scheme.
	req := httptest.NewRequest(fiber.MethodGet, "/api/tasks/", nil)
	req.Header.Set("Authorization", "Token abc")
	raw, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if raw.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("wrong scheme: expected 401, got %d", raw.StatusCode)
	}

	// Garbage token.
	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/tasks/", nil, "not-a-jwt")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("garbage token: expected 401, got %d", resp.StatusCode)
	}
}

func TestGuardRejectsExpiredAccessToken(t *testing.T) {
	app := setupTestApp(t)

	// Correctly signed but already expired. The guard is stateless, so the
	// subject does not need to exist.
	expiredIssuer := token.NewService(testAccessSecret, testRefreshSecret, -1*time.Minute, -1*time.Minute)
	expired, err := expiredIssuer.IssueAccessToken(uuid.New())
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}

	resp, _ := doJSON(t, app, fiber.MethodGet, "/api/tasks/", nil, expired)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expired token: expected 401, got %d", resp.StatusCode)
	}
}

func TestTaskEndpointsEnforceOwnership(t *testing.T) {
	app := setupTestApp(t)

	reg := registerAlice(t, app)
	aliceToken := reg["accessToken"].(string)

	resp, bobBody := doJSON(t, app, fiber.MethodPost, "/api/auth/register", fiber.Map{
		"email": "bob@x.com", "password": "secret2",
	}, "")
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("bob register: expected 201, got %d", resp.StatusCode)
	}
	bobToken := bobBody["accessToken"].(string)

	resp, created := doJSON(t, app, fiber.MethodPost, "/api/tasks/", fiber.Map{
		"title": "Alice's task",
	}, aliceToken)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create task: expected 201, got %d (%v)", resp.StatusCode, created)
	}
	task := created["task"].(map[string]interface{})
	taskID := task["id"].(string)

	// Owner sees it.
	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/tasks/"+taskID, nil, aliceToken)
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("owner get: expected 200, got %d", resp.StatusCode)
	}

	// Non-owner gets the same 404 a missing task would produce.
	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/tasks/"+taskID, nil, bobToken)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("non-owner get: expected 404, got %d", resp.StatusCode)
	}

	resp, listed := doJSON(t, app, fiber.MethodGet, "/api/tasks/", nil, bobToken)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	if total := listed["total"].(float64); total != 0 {
		t.Errorf("expected bob to see no tasks, got %v", total)
	}

	resp, toggled := doJSON(t, app, fiber.MethodPatch, "/api/tasks/"+taskID+"/toggle", nil, aliceToken)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", resp.StatusCode)
	}
	if status := toggled["task"].(map[string]interface{})["status"]; status != "IN_PROGRESS" {
		t.Errorf("expected IN_PROGRESS after toggle, got %v", status)
	}
}

func TestListValidationEndpoint(t *testing.T) {
	app := setupTestApp(t)
	reg := registerAlice(t, app)
	accessToken := reg["accessToken"].(string)

	resp, _ := doJSON(t, app, fiber.MethodGet, "/api/tasks/?page=0", nil, accessToken)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("page=0: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/tasks/?status=BOGUS", nil, accessToken)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad status: expected 400, got %d", resp.StatusCode)
	}
}
