package handler

import (
	"net/http"

	"github.com/google/uuid"

	"go-blog-api/internal/model"
	"go-blog-api/internal/service"
	"go-blog-api/pkg/apierror"
)

type AuditHandler struct {
	audit *service.AuditService
}

func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List serves GET /admin/audit, newest first. Filters: action, actor_id,
// status (success|failure) and resource prefix.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	filter := model.AuditQuery{
		Action:   params.Get("action"),
		Status:   params.Get("status"),
		Resource: params.Get("resource"),
		Page:     pageFromQuery(r),
	}
	if raw := params.Get("actor_id"); raw != "" {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, apierror.BadRequest("invalid actor_id", raw))
			return
		}
		filter.ActorID = actorID.String()
	}

	entries, meta, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuditList{Items: entries}, &meta)
}
