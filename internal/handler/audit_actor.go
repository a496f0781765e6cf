package handler

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"go-blog-api/internal/middleware"
	"go-blog-api/internal/model"
	"go-blog-api/pkg/apierror"
)

func actorFromRequest(r *http.Request) model.AuditActor {
	actor := model.AuditActor{IP: clientIP(r)}

	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return actor
	}

	actor.UserID = principal.ID
	actor.Email = principal.Email
	actor.Role = principal.Role

	return actor
}

func actorFromUser(r *http.Request, user model.AuthUser) model.AuditActor {
	return model.AuditActor{UserID: user.ID, Email: user.Email, Role: user.Role, IP: clientIP(r)}
}

func auditOutcome(err error) (string, string) {
	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		return model.AuditStatusFailure, apiErr.Code
	case err != nil:
		return model.AuditStatusFailure, err.Error()
	}
	return model.AuditStatusSuccess, ""
}

func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}

	return strings.TrimSpace(r.RemoteAddr)
}
