package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/memtensor/accounts/api"
	"github.com/memtensor/accounts/pkg/config"
	"github.com/memtensor/accounts/pkg/logger"
	"github.com/memtensor/accounts/pkg/users"
)

func setupTestServer(t *testing.T) (*Client, *users.Manager) {
	t.Helper()

	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode

	repoConfig := cfg.UsersConfig()
	repoConfig.DatabasePath = filepath.Join(t.TempDir(), "client.db")
	repoConfig.JWTSecret = "client-secret"
	repo, err := users.NewRepository(repoConfig)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	log := logger.NewTestLogger()
	tokens := users.NewJWTTokens("client-secret", time.Hour, "accounts", repo)
	manager := users.NewManager(repo, users.NewBcryptHasher(bcrypt.MinCost), tokens, users.WithLogger(log))

	srv := httptest.NewServer(api.NewServer(manager, cfg, log).Router())
	t.Cleanup(srv.Close)

	return New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}), manager
}

func payload(suffix string) users.RegistrationPayload {
	return users.RegistrationPayload{
		FullName: "User " + suffix,
		Phone:    "555000000" + suffix,
		Email:    "user" + suffix + "@example.com",
		Username: "user" + suffix,
		Password: "password" + suffix,
	}
}

func TestClient_Lifecycle(t *testing.T) {
	c, manager := setupTestServer(t)
	ctx := context.Background()

	_, err := manager.EnsureSuperAdmin(ctx, payload("0"))
	require.NoError(t, err)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)

	require.NoError(t, c.Register(ctx, payload("1")))

	result, err := c.Login(ctx, "user0", "password0")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, result.Token, c.Token())
	assert.Equal(t, users.RoleSuperAdmin, result.User.Role)

	require.NoError(t, c.CreateUser(ctx, payload("2")))

	list, err := c.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)

	var target users.User
	for _, u := range list {
		if u.Username == "user2" {
			target = u
		}
	}
	require.NotEmpty(t, target.ID)

	updated, err := c.UpdateUser(ctx, target.ID, map[string]interface{}{"about": "changed"})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "changed", updated.About)

	fetched, err := c.GetUser(ctx, target.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "user2", fetched.Username)

	// super_admin is not admin
	err = c.DeleteUser(ctx, target.ID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "You Are Not Admin", apiErr.Message)
	require.NotNil(t, apiErr.Auth)
	assert.False(t, *apiErr.Auth)
}

func TestClient_GetMissingUserIsNil(t *testing.T) {
	c, _ := setupTestServer(t)

	user, err := c.GetUser(context.Background(), "00000000-0000-4000-8000-000000000000")

	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestClient_ValidationError(t *testing.T) {
	c, _ := setupTestServer(t)

	p := payload("1")
	p.Phone = "12345"
	err := c.Register(context.Background(), p)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "INVALID_PHONE", apiErr.ErrorCode)
	assert.Equal(t, "Phone is not valid", apiErr.Message)
	assert.Equal(t, "error", apiErr.Status)
	assert.Contains(t, apiErr.Error(), "INVALID_PHONE")
}

func TestClient_BadLoginKeepsToken(t *testing.T) {
	c, _ := setupTestServer(t)
	c.SetToken("previous")

	_, err := c.Login(context.Background(), "ghost", "whatever")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.ErrorCode)
	assert.Equal(t, "previous", c.Token())
}

func TestClient_RetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"Too many requests, try again later","error_code":"RATE_LIMITED","status":"error"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	err := c.Register(context.Background(), payload("1"))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter)
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.ListUsers(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestClient_TransportError(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	err := c.Register(context.Background(), payload("1"))

	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
