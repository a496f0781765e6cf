package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-blog-api/internal/model"
)

func TestAuthService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result := env.register(t, "Alice", "alice@example.com")

	assert.Equal(t, model.RoleUser, result.User.Role)
	assert.Equal(t, "/", result.Redirect)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)

	stored, err := env.store.Users().FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.PasswordHash)
	assert.True(t, env.tokens.MatchesStored(stored, result.Tokens.RefreshToken))
}

func TestAuthService_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Alice", "alice@example.com")

	tests := []struct {
		name   string
		req    model.RegisterRequest
		status int
	}{
		{name: "duplicate email", req: model.RegisterRequest{Name: "A2", Email: "alice@example.com", Password: "password123"}, status: http.StatusConflict},
		{name: "bad email", req: model.RegisterRequest{Name: "B", Email: "not-an-email", Password: "password123"}, status: http.StatusBadRequest},
		{name: "missing password", req: model.RegisterRequest{Name: "B", Email: "b@example.com"}, status: http.StatusBadRequest},
		{name: "password over bcrypt limit", req: model.RegisterRequest{Name: "B", Email: "b@example.com", Password: strings.Repeat("p", 73)}, status: http.StatusBadRequest},
		{name: "missing email", req: model.RegisterRequest{Name: "B", Password: "password123"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(ctx, tt.req)
			requireAPIStatus(t, err, tt.status)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Alice", "alice@example.com")

	result, err := env.auth.Login(ctx, model.LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", result.User.Email)

	_, err = env.auth.Login(ctx, model.LoginRequest{Email: "alice@example.com", Password: "wrong-password"})
	requireAPIStatus(t, err, http.StatusUnauthorized)
	wrongPassword := err.Error()

	_, err = env.auth.Login(ctx, model.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	requireAPIStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, wrongPassword, err.Error(), "unknown email and wrong password look the same")
}

func TestAuthService_LoginMatchesEmailExactly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "Alice", "alice@example.com")

	for _, email := range []string{"Alice@example.com", " alice@example.com", "alice@example.com "} {
		t.Run(email, func(t *testing.T) {
			_, err := env.auth.Login(ctx, model.LoginRequest{Email: email, Password: "password123"})
			requireAPIStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestAuthService_LoginRedirectsAdmins(t *testing.T) {
	env := newTestEnv(t)
	env.registerAdmin(t, "Root", "root@example.com")

	result, err := env.auth.Login(context.Background(), model.LoginRequest{Email: "root@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "/admin", result.Redirect)
	assert.Equal(t, model.RoleAdmin, result.User.Role)
}

func TestAuthService_LoginRevokesPreviousRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.register(t, "Alice", "alice@example.com")

	_, err := env.auth.Login(ctx, model.LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = env.auth.Refresh(ctx, first.Tokens.RefreshToken)
	requireAPIStatus(t, err, http.StatusUnauthorized)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "Alice", "alice@example.com")

	rotated, err := env.auth.Refresh(ctx, registered.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, registered.Tokens.RefreshToken, rotated.Tokens.RefreshToken)

	_, err = env.auth.Refresh(ctx, registered.Tokens.RefreshToken)
	requireAPIStatus(t, err, http.StatusUnauthorized)

	again, err := env.auth.Refresh(ctx, rotated.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, again.User.ID)
}

func TestAuthService_RefreshRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "Alice", "alice@example.com")

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "abc.def.ghi",
		"access token": registered.Tokens.AccessToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.auth.Refresh(ctx, token)
			requireAPIStatus(t, err, http.StatusUnauthorized)
		})
	}

	t.Run("expired", func(t *testing.T) {
		env.now = env.now.Add(8 * 24 * time.Hour)
		defer func() { env.now = env.now.Add(-8 * 24 * time.Hour) }()

		_, err := env.auth.Refresh(ctx, registered.Tokens.RefreshToken)
		requireAPIStatus(t, err, http.StatusUnauthorized)
		assert.Contains(t, err.Error(), "expired")
	})
}

func TestAuthService_Logout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "Alice", "alice@example.com")

	userID, err := env.auth.Logout(ctx, registered.Tokens.RefreshToken, nil)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, userID)

	_, err = env.auth.Refresh(ctx, registered.Tokens.RefreshToken)
	requireAPIStatus(t, err, http.StatusUnauthorized)

	userID, err = env.auth.Logout(ctx, "", nil)
	require.NoError(t, err)
	assert.Empty(t, userID)

	userID, err = env.auth.Logout(ctx, "stale", &registered.User)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, userID)
}

func TestAuthService_Profile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "Alice", "alice@example.com")

	profile, err := env.auth.Profile(ctx, &registered.User)
	require.NoError(t, err)
	assert.Equal(t, registered.User, profile)

	_, err = env.auth.Profile(ctx, nil)
	requireAPIStatus(t, err, http.StatusUnauthorized)

	_, err = env.auth.Profile(ctx, &model.AuthUser{ID: "missing"})
	requireAPIStatus(t, err, http.StatusUnauthorized)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin, changed, err := env.auth.EnsureAdmin(ctx, "Root", "root@example.com", "password123")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	_, changed, err = env.auth.EnsureAdmin(ctx, "Root", "root@example.com", "ignored-password")
	require.NoError(t, err)
	assert.False(t, changed)

	env.register(t, "Bob", "bob@example.com")
	promoted, changed, err := env.auth.EnsureAdmin(ctx, "Bob", "bob@example.com", "")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.RoleAdmin, promoted.Role)
}
