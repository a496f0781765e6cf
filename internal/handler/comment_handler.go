package handler

import (
	"net/http"

	"go-blog-api/internal/middleware"
	"go-blog-api/internal/model"
	"go-blog-api/internal/service"
)

type CommentHandler struct {
	service *service.CommentService
	audit   *service.AuditService
}

func NewCommentHandler(service *service.CommentService, audit *service.AuditService) *CommentHandler {
	return &CommentHandler{service: service, audit: audit}
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	comments, err := h.service.ListByPost(r.Context(), postID, principal, bypassCache(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.CommentList{Comments: comments}, nil)
}

// Create accepts guests; the route runs OptionalAuth so a signed-in author is
// attributed automatically.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.CommentRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	comment, err := h.service.Create(r.Context(), principal, postID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, comment, nil)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	comment, err := h.service.Delete(r.Context(), principal, id)
	status, errText := auditOutcome(err)
	h.audit.Log(r.Context(), "comment.delete", actorFromRequest(r), status, "comments/"+id, nil, errText)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true, "id": comment.ID}, nil)
}
