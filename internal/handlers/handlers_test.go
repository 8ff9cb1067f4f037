package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/blog_backend/internal/adapters/database/memory"
	"github.com/SscSPs/blog_backend/internal/core/services"
	"github.com/SscSPs/blog_backend/internal/dto"
	"github.com/SscSPs/blog_backend/internal/handlers"
	"github.com/SscSPs/blog_backend/internal/middleware"
	"github.com/SscSPs/blog_backend/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Adm1nPassword"
)

// APITestSuite exercises the HTTP surface end to end over the in-memory store.
type APITestSuite struct {
	suite.Suite
	router *gin.Engine
}

func (suite *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:                  "handlers-access-secret-0000000000",
		JWTExpiryDuration:          time.Hour,
		JWTIssuer:                  "blog-backend",
		RefreshTokenSecret:         "handlers-refresh-secret-000000000",
		RefreshTokenExpiryDuration: 7 * 24 * time.Hour,
		BcryptCost:                 bcrypt.MinCost,
		LockoutThreshold:           5,
		LockoutDuration:            15 * time.Minute,
	}
	repos := memory.NewRepositoryProvider()
	container := services.NewServiceContainer(cfg, repos)

	created, err := container.User.EnsureAdmin(context.Background(), "admin", adminEmail, adminPassword)
	suite.Require().NoError(err)
	suite.Require().True(created)

	suite.router = gin.New()
	suite.Require().NoError(handlers.RegisterRoutes(suite.router, cfg, container, repos, handlers.RateLimiters{}))
}

func (suite *APITestSuite) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APITestSuite) decode(w *httptest.ResponseRecorder, out any) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (suite *APITestSuite) errorOf(w *httptest.ResponseRecorder) handlers.ErrorResponse {
	var resp handlers.ErrorResponse
	suite.decode(w, &resp)
	return resp
}

func (suite *APITestSuite) register(username, email, password string) dto.UserResponse {
	w := suite.request(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Username: username, Email: email, Password: password,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp dto.MeResponse
	suite.decode(w, &resp)
	return resp.User
}

func (suite *APITestSuite) login(email, password string) dto.LoginResponse {
	w := suite.request(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp dto.LoginResponse
	suite.decode(w, &resp)
	return resp
}

func (suite *APITestSuite) TestHealth() {
	w := suite.request(http.MethodGet, "/health", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"status":"ok","store":"ok"}`, w.Body.String())
}

func (suite *APITestSuite) TestRegisterLoginMe() {
	alice := suite.register("alice", "alice@example.com", "Passw0rd!")
	suite.Equal("alice", alice.Username)
	suite.False(alice.IsAdmin)

	session := suite.login("alice@example.com", "Passw0rd!")
	suite.Equal("Bearer", session.TokenType)
	suite.NotEmpty(session.AccessToken)
	suite.NotEmpty(session.RefreshToken)
	suite.Equal(alice.UserID, session.User.UserID)
	suite.WithinDuration(time.Now().Add(time.Hour), session.AccessTokenExpiresAt, 5*time.Second)
	suite.WithinDuration(time.Now().Add(7*24*time.Hour), session.RefreshTokenExpiresAt, 5*time.Second)

	w := suite.request(http.MethodGet, "/api/v1/auth/me", session.AccessToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.NotContains(w.Body.String(), "password")
	var me dto.MeResponse
	suite.decode(w, &me)
	suite.Equal(alice, me.User)
}

func (suite *APITestSuite) TestRegisterValidation() {
	w := suite.request(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Username: "al", Email: "not-an-email", Password: "password",
	})
	suite.Equal(http.StatusBadRequest, w.Code)
	resp := suite.errorOf(w)
	suite.Equal("Validation failed", resp.Error)
	suite.Len(resp.Details, 3)

	w = suite.request(http.MethodPost, "/api/v1/auth/register", "", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestRegisterDuplicate() {
	suite.register("alice", "alice@example.com", "Passw0rd!")

	w := suite.request(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Username: "alice", Email: "alice2@example.com", Password: "Passw0rd!",
	})
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("Username or email already in use", suite.errorOf(w).Error)
}

func (suite *APITestSuite) TestLoginInvalidCredentials() {
	suite.register("alice", "alice@example.com", "Passw0rd!")

	wrong := suite.request(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "alice@example.com", Password: "nope"})
	unknown := suite.request(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "ghost@example.com", Password: "nope"})

	suite.Equal(http.StatusUnauthorized, wrong.Code)
	suite.Equal(http.StatusUnauthorized, unknown.Code)
	suite.Equal(wrong.Body.String(), unknown.Body.String())
	suite.Equal("Invalid credentials", suite.errorOf(wrong).Error)
}

func (suite *APITestSuite) TestLoginLockout() {
	suite.register("bob", "bob@example.com", "Passw0rd!")

	for i := 0; i < 5; i++ {
		w := suite.request(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "bob@example.com", Password: "wrong"})
		suite.Equal(http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	w := suite.request(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "bob@example.com", Password: "Passw0rd!"})
	suite.Require().Equal(http.StatusLocked, w.Code)
	suite.NotEmpty(w.Header().Get("Retry-After"))

	var locked handlers.LockedResponse
	suite.decode(w, &locked)
	suite.WithinDuration(time.Now().Add(15*time.Minute), locked.LockedUntil, 5*time.Second)
}

func (suite *APITestSuite) TestChangePasswordLockout() {
	suite.register("bob", "bob@example.com", "Passw0rd!")
	session := suite.login("bob@example.com", "Passw0rd!")

	wrong := dto.ChangePasswordRequest{CurrentPassword: "Guess0rd!", NewPassword: "N3wPassword"}
	for i := 0; i < 5; i++ {
		w := suite.request(http.MethodPut, "/api/v1/auth/password", session.AccessToken, wrong)
		suite.Equal(http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	right := dto.ChangePasswordRequest{CurrentPassword: "Passw0rd!", NewPassword: "N3wPassword"}
	w := suite.request(http.MethodPut, "/api/v1/auth/password", session.AccessToken, right)
	suite.Require().Equal(http.StatusLocked, w.Code, w.Body.String())
	suite.NotEmpty(w.Header().Get("Retry-After"))

	w = suite.request(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "bob@example.com", Password: "Passw0rd!"})
	suite.Equal(http.StatusLocked, w.Code)
}

func (suite *APITestSuite) TestRefreshAndLogout() {
	suite.register("alice", "alice@example.com", "Passw0rd!")
	session := suite.login("alice@example.com", "Passw0rd!")

	w := suite.request(http.MethodPost, "/api/v1/auth/refresh", "", dto.RefreshTokenRequest{RefreshToken: session.RefreshToken})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var rotated dto.RefreshTokenResponse
	suite.decode(w, &rotated)
	suite.NotEqual(session.RefreshToken, rotated.RefreshToken)

	w = suite.request(http.MethodPost, "/api/v1/auth/refresh", "", dto.RefreshTokenRequest{RefreshToken: session.RefreshToken})
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("Invalid refresh token", suite.errorOf(w).Error)

	w = suite.request(http.MethodPost, "/api/v1/auth/logout", rotated.AccessToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"message":"Logged out successfully"}`, w.Body.String())

	w = suite.request(http.MethodPost, "/api/v1/auth/refresh", "", dto.RefreshTokenRequest{RefreshToken: rotated.RefreshToken})
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodPost, "/api/v1/auth/logout", "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(middleware.MsgNoAuthHeader, suite.errorOf(w).Error)
}

func (suite *APITestSuite) TestChangePassword() {
	suite.register("alice", "alice@example.com", "Passw0rd!")
	session := suite.login("alice@example.com", "Passw0rd!")

	w := suite.request(http.MethodPut, "/api/v1/auth/password", session.AccessToken, dto.ChangePasswordRequest{
		CurrentPassword: "Wrong0rd!", NewPassword: "N3wPassword",
	})
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodPut, "/api/v1/auth/password", session.AccessToken, dto.ChangePasswordRequest{
		CurrentPassword: "Passw0rd!", NewPassword: "weak",
	})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPut, "/api/v1/auth/password", session.AccessToken, dto.ChangePasswordRequest{
		CurrentPassword: "Passw0rd!", NewPassword: "N3wPassword",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/api/v1/auth/refresh", "", dto.RefreshTokenRequest{RefreshToken: session.RefreshToken})
	suite.Equal(http.StatusUnauthorized, w.Code)

	suite.login("alice@example.com", "N3wPassword")
}

func (suite *APITestSuite) TestAdminRoutesRequireAdmin() {
	suite.register("alice", "alice@example.com", "Passw0rd!")
	alice := suite.login("alice@example.com", "Passw0rd!")

	w := suite.request(http.MethodGet, "/api/v1/admin/users", "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodGet, "/api/v1/admin/users", alice.AccessToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(middleware.MsgAdminAccessRequired, suite.errorOf(w).Error)
}

func (suite *APITestSuite) TestAdminUserLifecycle() {
	admin := suite.login(adminEmail, adminPassword)
	suite.True(admin.User.IsAdmin)

	w := suite.request(http.MethodPost, "/api/v1/admin/users", admin.AccessToken, dto.CreateUserRequest{
		Username: "editor", Email: "editor@example.com", Password: "Passw0rd!",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var editor dto.AdminUserResponse
	suite.decode(w, &editor)
	suite.False(editor.IsAdmin)
	suite.False(editor.Locked)

	w = suite.request(http.MethodGet, "/api/v1/admin/users?limit=10", admin.AccessToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var list dto.ListUsersResponse
	suite.decode(w, &list)
	suite.Len(list.Users, 2)
	suite.Equal(10, list.Limit)

	w = suite.request(http.MethodGet, "/api/v1/admin/users?limit=1000", admin.AccessToken, nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	promote := true
	w = suite.request(http.MethodPut, "/api/v1/admin/users/"+editor.UserID, admin.AccessToken, dto.UpdateUserRequest{IsAdmin: &promote})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.AdminUserResponse
	suite.decode(w, &updated)
	suite.True(updated.IsAdmin)

	w = suite.request(http.MethodGet, "/api/v1/admin/users/"+editor.UserID, admin.AccessToken, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodDelete, "/api/v1/admin/users/"+editor.UserID, admin.AccessToken, nil)
	suite.Equal(http.StatusNoContent, w.Code)

	w = suite.request(http.MethodGet, "/api/v1/admin/users/"+editor.UserID, admin.AccessToken, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("User not found", suite.errorOf(w).Error)
}

func (suite *APITestSuite) TestAdminSelfGuards() {
	admin := suite.login(adminEmail, adminPassword)

	demote := false
	w := suite.request(http.MethodPut, "/api/v1/admin/users/"+admin.User.UserID, admin.AccessToken, dto.UpdateUserRequest{IsAdmin: &demote})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("You cannot remove your own admin privileges", suite.errorOf(w).Error)

	w = suite.request(http.MethodDelete, "/api/v1/admin/users/"+admin.User.UserID, admin.AccessToken, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("You cannot delete your own account", suite.errorOf(w).Error)
}

func (suite *APITestSuite) TestDeletedUserTokenRejected() {
	suite.register("alice", "alice@example.com", "Passw0rd!")
	alice := suite.login("alice@example.com", "Passw0rd!")
	admin := suite.login(adminEmail, adminPassword)

	w := suite.request(http.MethodDelete, "/api/v1/admin/users/"+alice.User.UserID, admin.AccessToken, nil)
	suite.Require().Equal(http.StatusNoContent, w.Code)

	w = suite.request(http.MethodGet, "/api/v1/auth/me", alice.AccessToken, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(middleware.MsgUserNotFound, suite.errorOf(w).Error)
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

// The shipped defaults must build real limiters and report a lock before the
// login throttle kicks in.
func TestDefaultRateLimitsReportLockBeforeThrottling(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("STORE_DRIVER", config.StoreDriverMemory)
	t.Setenv("BCRYPT_COST", "4")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	store, err := middleware.NewLimiterStore(nil, "handlers_test")
	require.NoError(t, err)
	limits, err := handlers.NewRateLimiters(cfg, store)
	require.NoError(t, err)

	repos := memory.NewRepositoryProvider()
	router := gin.New()
	require.NoError(t, handlers.RegisterRoutes(router, cfg, services.NewServiceContainer(cfg, repos), repos, limits))

	post := func(path string, body any) *httptest.ResponseRecorder {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.10:4242"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := post("/api/v1/auth/register", dto.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "Passw0rd!"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for i := 0; i < cfg.LockoutThreshold; i++ {
		w = post("/api/v1/auth/login", dto.LoginRequest{Email: "bob@example.com", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}
	w = post("/api/v1/auth/login", dto.LoginRequest{Email: "bob@example.com", Password: "Passw0rd!"})
	assert.Equal(t, http.StatusLocked, w.Code)

	for i := cfg.LockoutThreshold + 1; i < cfg.LoginRateLimit; i++ {
		post("/api/v1/auth/login", dto.LoginRequest{Email: "bob@example.com", Password: "Passw0rd!"})
	}
	w = post("/api/v1/auth/login", dto.LoginRequest{Email: "bob@example.com", Password: "Passw0rd!"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHealthDegraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repos := memory.NewRepositoryProvider()
	repos.Ping = func(context.Context) error { return errors.New("store unreachable") }
	cfg := &config.Config{IsProduction: true, BcryptCost: bcrypt.MinCost, LockoutThreshold: 5, LockoutDuration: time.Minute}

	router := gin.New()
	if err := handlers.RegisterRoutes(router, cfg, services.NewServiceContainer(cfg, repos), repos, handlers.RateLimiters{}); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
