package auth

import (
	"go-blog-api/internal/model"
	"go-blog-api/pkg/apierror"
)

type Denial int

const (
	NotDenied Denial = iota
	DeniedUnauthorized
	DeniedForbidden
)

type Decision struct {
	Allowed bool
	Denial  Denial
}

var allowed = Decision{Allowed: true}

// Err converts a negative decision into the error returned to clients.
// Unauthorized and Forbidden stay distinct so logs show which one happened.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Denial == DeniedUnauthorized:
		return apierror.Unauthorized("authentication required")
	default:
		return apierror.Forbidden("insufficient permissions")
	}
}

// RequireRole allows only an exact role match. There is no role hierarchy.
func RequireRole(principal *model.AuthUser, role model.Role) Decision {
	if principal == nil {
		return Decision{Denial: DeniedUnauthorized}
	}
	if principal.Role != role {
		return Decision{Denial: DeniedForbidden}
	}
	return allowed
}

// RequireOwnerOrRole allows the resource owner or any principal holding role.
func RequireOwnerOrRole(principal *model.AuthUser, ownerID string, role model.Role) Decision {
	if principal == nil {
		return Decision{Denial: DeniedUnauthorized}
	}
	if ownerID != "" && principal.ID == ownerID {
		return allowed
	}
	if principal.Role == role {
		return allowed
	}
	return Decision{Denial: DeniedForbidden}
}
