package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go-blog-api/internal/model"
	"go-blog-api/internal/repository"
	"go-blog-api/pkg/apierror"
)

type AuditService struct {
	repo repository.AuditStore
}

func NewAuditService(repo repository.AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log records an entry. Failures are logged and swallowed: an audit outage
// must not fail the request being audited.
func (s *AuditService) Log(ctx context.Context, action string, actor model.AuditActor, status string, resource string, details any, errText string) {
	if s == nil || s.repo == nil {
		return
	}

	entry := model.AuditEntry{
		Action:     action,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Actor:      actor,
		Status:     status,
		Resource:   resource,
		Details:    details,
		Error:      errText,
	}

	if err := s.repo.Log(context.WithoutCancel(ctx), entry); err != nil {
		slog.Error("audit log write failed", "action", action, "error", err)
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	query.Action = strings.TrimSpace(query.Action)
	query.ActorID = strings.TrimSpace(query.ActorID)
	query.Resource = strings.TrimSpace(query.Resource)
	query.Status = strings.ToLower(strings.TrimSpace(query.Status))

	if query.Status != "" && query.Status != model.AuditStatusSuccess && query.Status != model.AuditStatusFailure {
		return nil, model.Meta{}, apierror.BadRequest("invalid status filter", query.Status)
	}

	return s.repo.Query(ctx, query)
}
