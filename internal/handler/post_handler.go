package handler

import (
	"net/http"

	"go-blog-api/internal/middleware"
	"go-blog-api/internal/model"
	"go-blog-api/internal/service"
)

type PostHandler struct {
	service *service.PostService
	audit   *service.AuditService
}

func NewPostHandler(service *service.PostService, audit *service.AuditService) *PostHandler {
	return &PostHandler{service: service, audit: audit}
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context(), bypassCache(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.PostList{Posts: posts}, nil)
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	post, err := h.service.Get(r.Context(), id, principal, bypassCache(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, post, nil)
}

func (h *PostHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	posts, err := h.service.ListByAuthor(r.Context(), authorID, principal, bypassCache(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.PostList{Posts: posts}, nil)
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.PostRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	post, err := h.service.Create(r.Context(), principal, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, post, nil)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.PostRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	post, err := h.service.Update(r.Context(), principal, id, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, post, nil)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	post, err := h.service.Delete(r.Context(), principal, id)
	status, errText := auditOutcome(err)
	h.audit.Log(r.Context(), "post.delete", actorFromRequest(r), status, "posts/"+id, nil, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true, "id": post.ID}, nil)
}
