package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-blog-api/internal/auth"
	"go-blog-api/internal/metrics"
	"go-blog-api/internal/model"
	"go-blog-api/internal/repository"
	"go-blog-api/pkg/apierror"
)

const (
	redirectAdmin = "/admin"
	redirectHome  = "/"
)

type AuthService struct {
	users       repository.UserStore
	tokens      *auth.TokenService
	hasher      *auth.Hasher
	credentials auth.Strategy
	caches      Caches
	now         func() time.Time
}

func NewAuthService(users repository.UserStore, tokens *auth.TokenService, hasher *auth.Hasher, caches Caches) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		hasher:      hasher,
		credentials: auth.NewCredentialStrategy(users, hasher),
		caches:      caches,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error) {
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, model.RoleUser)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("register", "failure").Inc()
		return model.AuthResult{}, err
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return model.AuthResult{}, err
	}

	metrics.AuthEvents.WithLabelValues("register", "success").Inc()
	return result, nil
}

// Login checks credentials and starts a new session. The refresh token
// issued here replaces whatever was stored, so older refresh tokens stop working.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	result := s.credentials.Authenticate(ctx, auth.Attempt{Email: req.Email, Password: req.Password})
	if !result.OK() {
		metrics.AuthEvents.WithLabelValues("login", string(result.Reason)).Inc()
		if result.Reason == auth.ReasonInternal {
			return model.AuthResult{}, apierror.Internal()
		}
		return model.AuthResult{}, apierror.Unauthorized("invalid email or password")
	}

	out, err := s.startSession(ctx, *result.User)
	if err != nil {
		return model.AuthResult{}, err
	}

	metrics.AuthEvents.WithLabelValues("login", "success").Inc()
	return out, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// be the one currently stored for its subject. Rotation is a compare-and-swap
// on the stored hash, so of two concurrent refreshes with the same token only
// one succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.AuthResult, error) {
	user, reason, err := s.resolveRefresh(ctx, refreshToken)
	if err != nil {
		return model.AuthResult{}, err
	}
	if reason != auth.ReasonNone {
		metrics.AuthEvents.WithLabelValues("refresh", string(reason)).Inc()
		return model.AuthResult{}, refreshRejection(reason)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		slog.Error("issue token pair failed", "user_id", user.ID, "error", err)
		return model.AuthResult{}, apierror.Internal()
	}

	swapped, err := s.tokens.RotateRefreshTokenFrom(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		slog.Error("refresh rotation failed", "user_id", user.ID, "error", err)
		return model.AuthResult{}, apierror.Internal()
	}
	if !swapped {
		metrics.AuthEvents.WithLabelValues("refresh", string(auth.ReasonRevoked)).Inc()
		return model.AuthResult{}, refreshRejection(auth.ReasonRevoked)
	}

	metrics.AuthEvents.WithLabelValues("refresh", "success").Inc()
	return model.AuthResult{User: user.Public(), Redirect: redirectFor(user.Role), Tokens: pair}, nil
}

// Logout revokes the session the refresh token belongs to, or the caller's
// session when only an access token is known. It never fails on bad tokens.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, principal *model.AuthUser) (string, error) {
	userID := ""
	if refreshToken != "" {
		user, reason, err := s.resolveRefresh(ctx, refreshToken)
		if err != nil {
			return "", err
		}
		if reason == auth.ReasonNone {
			userID = user.ID
		}
	}
	if userID == "" && principal != nil {
		userID = principal.ID
	}
	if userID == "" {
		return "", nil
	}

	if err := s.tokens.Revoke(ctx, userID); err != nil && !errors.Is(err, model.ErrUserNotFound) {
		slog.Error("revoke session failed", "user_id", userID, "error", err)
		return "", apierror.Internal()
	}

	metrics.AuthEvents.WithLabelValues("logout", "success").Inc()
	return userID, nil
}

func (s *AuthService) Profile(ctx context.Context, principal *model.AuthUser) (model.AuthUser, error) {
	if principal == nil {
		return model.AuthUser{}, apierror.Unauthorized("authentication required")
	}

	user, err := s.users.FindByID(ctx, principal.ID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.AuthUser{}, apierror.Unauthorized("authentication required")
	}
	if err != nil {
		return model.AuthUser{}, err
	}
	return user.Public(), nil
}

// EnsureAdmin creates an ADMIN account for email unless one exists. An
// existing USER with that email is promoted. It reports whether anything changed.
func (s *AuthService) EnsureAdmin(ctx context.Context, name string, email string, password string) (model.AuthUser, bool, error) {
	email = strings.TrimSpace(email)

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.Role == model.RoleAdmin:
		return existing.Public(), false, nil
	case err == nil:
		promoted, err := s.users.UpdateRole(ctx, existing.ID, model.RoleAdmin)
		if err != nil {
			return model.AuthUser{}, false, fmt.Errorf("promote admin: %w", err)
		}
		s.caches.Users.InvalidateAll()
		s.caches.Stats.Invalidate(statsDashboardKey)
		return promoted.Public(), true, nil
	case !errors.Is(err, model.ErrUserNotFound):
		return model.AuthUser{}, false, fmt.Errorf("look up admin: %w", err)
	}

	user, err := s.createUser(ctx, name, email, password, model.RoleAdmin)
	if err != nil {
		return model.AuthUser{}, false, err
	}
	return user.Public(), true, nil
}

func (s *AuthService) createUser(ctx context.Context, name string, email string, password string, role model.Role) (model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if err := validateEmail(email); err != nil {
		return model.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return model.User{}, err
	}
	if err := validateName(name); err != nil {
		return model.User{}, err
	}
	if !role.Valid() {
		return model.User{}, apierror.BadRequest("invalid role", string(role))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		slog.Error("hash password failed", "error", err)
		return model.User{}, apierror.Internal()
	}

	now := s.now()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return model.User{}, apierror.Conflict("email already registered", email)
		}
		return model.User{}, err
	}

	s.caches.Users.InvalidateAll()
	s.caches.Stats.Invalidate(statsDashboardKey)
	return user, nil
}

func (s *AuthService) startSession(ctx context.Context, user model.User) (model.AuthResult, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		slog.Error("issue token pair failed", "user_id", user.ID, "error", err)
		return model.AuthResult{}, apierror.Internal()
	}

	if err := s.tokens.RotateRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		slog.Error("store refresh token failed", "user_id", user.ID, "error", err)
		return model.AuthResult{}, apierror.Internal()
	}

	return model.AuthResult{User: user.Public(), Redirect: redirectFor(user.Role), Tokens: pair}, nil
}

// resolveRefresh returns the user a refresh token belongs to, or the reason it
// cannot be used. err is only set for store failures.
func (s *AuthService) resolveRefresh(ctx context.Context, token string) (model.User, auth.Reason, error) {
	if token == "" {
		return model.User{}, auth.ReasonMissingToken, nil
	}

	claims, err := s.tokens.VerifyRefreshToken(token)
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return model.User{}, auth.ReasonExpired, nil
	case err != nil:
		return model.User{}, auth.ReasonInvalidToken, nil
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, auth.ReasonUnknownIdentity, nil
	}
	if err != nil {
		slog.Error("refresh lookup failed", "user_id", claims.Subject, "error", err)
		return model.User{}, auth.ReasonNone, apierror.Internal()
	}

	if !s.tokens.MatchesStored(user, token) {
		return model.User{}, auth.ReasonRevoked, nil
	}
	return user, auth.ReasonNone, nil
}

func refreshRejection(reason auth.Reason) error {
	switch reason {
	case auth.ReasonMissingToken:
		return apierror.Unauthorized("refresh token is required")
	case auth.ReasonExpired:
		return apierror.Unauthorized("refresh token expired")
	case auth.ReasonRevoked:
		return apierror.Unauthorized("refresh token has been revoked")
	default:
		return apierror.Unauthorized("refresh token is invalid")
	}
}

func redirectFor(role model.Role) string {
	if role == model.RoleAdmin {
		return redirectAdmin
	}
	return redirectHome
}
