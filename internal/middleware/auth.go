package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go-blog-api/internal/auth"
	"go-blog-api/internal/metrics"
	"go-blog-api/internal/model"
	"go-blog-api/pkg/apierror"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type contextKey string

const principalContextKey contextKey = "auth_principal"

type AuthMiddleware struct {
	bearer   auth.Strategy
	optional auth.Strategy
}

func NewAuthMiddleware(bearer auth.Strategy, optional auth.Strategy) *AuthMiddleware {
	return &AuthMiddleware{bearer: bearer, optional: optional}
}

// RequireAuth rejects the request with 401 unless a valid access token is
// presented in the Authorization header or the access token cookie.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := m.bearer.Authenticate(r.Context(), auth.Attempt{Token: TokenFromRequest(r)})
		if !result.OK() {
			metrics.AuthEvents.WithLabelValues("bearer", string(result.Reason)).Inc()
			writeAPIError(w, bearerRejection(result.Reason))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), result.Principal)))
	})
}

// OptionalAuth attaches a principal when one can be resolved and otherwise
// lets the request through as a guest.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := m.optional.Authenticate(r.Context(), auth.Attempt{Token: TokenFromRequest(r)})
		if result.OK() {
			r = r.WithContext(WithPrincipal(r.Context(), result.Principal))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := PrincipalFromContext(r.Context())
			if err := auth.RequireRole(principal, role).Err(); err != nil {
				writeAPIError(w, err.(*apierror.APIError))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithPrincipal(ctx context.Context, principal *model.AuthUser) context.Context {
	if principal != nil {
		notePrincipal(ctx, principal.ID)
	}
	return context.WithValue(ctx, principalContextKey, principal)
}

func PrincipalFromContext(ctx context.Context) (*model.AuthUser, bool) {
	principal, ok := ctx.Value(principalContextKey).(*model.AuthUser)
	return principal, ok && principal != nil
}

// TokenFromRequest prefers the Authorization header and falls back to the
// access token cookie set by the browser front-ends.
func TokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func bearerRejection(reason auth.Reason) *apierror.APIError {
	switch reason {
	case auth.ReasonMissingToken:
		return apierror.Unauthorized("missing access token")
	case auth.ReasonExpired:
		return apierror.Unauthorized("access token expired")
	case auth.ReasonInternal:
		return apierror.Internal()
	default:
		return apierror.Unauthorized("invalid or expired token")
	}
}

func writeAPIError(w http.ResponseWriter, err *apierror.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		},
	})
}
