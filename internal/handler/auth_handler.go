package handler

import (
	"net/http"
	"strings"
	"time"

	"go-blog-api/internal/middleware"
	"go-blog-api/internal/model"
	"go-blog-api/internal/service"
)

const refreshCookiePath = "/auth"

type CookieOptions struct {
	Secure     bool
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AuthHandler struct {
	service *service.AuthService
	audit   *service.AuditService
	cookies CookieOptions
}

func NewAuthHandler(service *service.AuthService, audit *service.AuditService, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{service: service, audit: audit, cookies: cookies}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), payload)
	status, errText := auditOutcome(err)
	h.audit.Log(r.Context(), "auth.register", model.AuditActor{Email: strings.TrimSpace(payload.Email), IP: clientIP(r)}, status, "", nil, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, result.Tokens)
	writeSuccess(w, http.StatusCreated, model.UserEnvelope{User: result.User}, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), payload)
	if err != nil {
		_, errText := auditOutcome(err)
		h.audit.Log(r.Context(), "auth.login", model.AuditActor{Email: strings.TrimSpace(payload.Email), IP: clientIP(r)}, model.AuditStatusFailure, "", nil, errText)
		writeError(w, err)
		return
	}

	h.audit.Log(r.Context(), "auth.login", actorFromUser(r, result.User), model.AuditStatusSuccess, "", nil, "")
	h.setSessionCookies(w, result.Tokens)
	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Refresh(r.Context(), refreshTokenFromRequest(r))
	if err != nil {
		h.clearSessionCookies(w)
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, result.Tokens)
	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())

	userID, err := h.service.Logout(r.Context(), refreshTokenFromRequest(r), principal)
	h.clearSessionCookies(w)
	if err != nil {
		writeError(w, err)
		return
	}

	if userID != "" {
		h.audit.Log(r.Context(), "auth.logout", model.AuditActor{UserID: userID, IP: clientIP(r)}, model.AuditStatusSuccess, "", nil, "")
	}
	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true}, nil)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())

	user, err := h.service.Profile(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.UserEnvelope{User: user}, nil)
}

// refreshTokenFromRequest reads the refresh cookie, falling back to a JSON
// body for non-browser clients.
func refreshTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(middleware.RefreshTokenCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}

	if r.Body == nil || r.ContentLength == 0 {
		return ""
	}
	var payload model.RefreshRequest
	if err := decodeJSON(nil, r, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.RefreshToken)
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, pair model.TokenPair) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, pair.AccessToken, "/", h.cookies.AccessTTL))
	http.SetCookie(w, h.cookie(middleware.RefreshTokenCookie, pair.RefreshToken, refreshCookiePath, h.cookies.RefreshTTL))
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	access := h.cookie(middleware.AccessTokenCookie, "", "/", 0)
	access.MaxAge = -1
	refresh := h.cookie(middleware.RefreshTokenCookie, "", refreshCookiePath, 0)
	refresh.MaxAge = -1

	http.SetCookie(w, access)
	http.SetCookie(w, refresh)
}

func (h *AuthHandler) cookie(name string, value string, path string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   h.cookies.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
