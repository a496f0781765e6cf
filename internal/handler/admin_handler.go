package handler

import (
	"context"
	"net/http"

	"go-blog-api/internal/middleware"
	"go-blog-api/internal/model"
	"go-blog-api/internal/service"
)

type AdminHandler struct {
	service *service.AdminService
	audit   *service.AuditService
}

func NewAdminHandler(service *service.AdminService, audit *service.AuditService) *AdminHandler {
	return &AdminHandler{service: service, audit: audit}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)

	result, err := h.service.ListUsers(r.Context(), page, bypassCache(r))
	if err != nil {
		writeError(w, err)
		return
	}

	meta := model.NewMeta(page.Page, page.Limit, result.Total)
	writeSuccess(w, http.StatusOK, model.UserList{Users: result.Users}, &meta)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.GetUser(r.Context(), id, bypassCache(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.UserEnvelope{User: user}, nil)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateUserRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), payload)
	status, errText := auditOutcome(err)
	h.audit.Log(r.Context(), "user.create", actorFromRequest(r), status, "users/"+user.ID, map[string]any{"email": payload.Email, "role": payload.Role}, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, model.UserEnvelope{User: user}, nil)
}

func (h *AdminHandler) MakeAdmin(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, "user.make_admin", h.service.MakeAdmin)
}

func (h *AdminHandler) RevokeAdmin(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, "user.revoke_admin", h.service.RevokeAdmin)
}

type roleChange func(ctx context.Context, actor *model.AuthUser, id string) (model.AuthUser, error)

func (h *AdminHandler) changeRole(w http.ResponseWriter, r *http.Request, action string, change roleChange) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	user, err := change(r.Context(), principal, id)
	status, errText := auditOutcome(err)
	h.audit.Log(r.Context(), action, actorFromRequest(r), status, "users/"+id, nil, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.UserEnvelope{User: user}, nil)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	user, err := h.service.DeleteUser(r.Context(), principal, id)
	status, errText := auditOutcome(err)
	h.audit.Log(r.Context(), "user.delete", actorFromRequest(r), status, "users/"+id, map[string]any{"email": user.Email}, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true, "id": id}, nil)
}

func (h *AdminHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context(), bypassCache(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, stats, nil)
}
