package memory

import (
	"context"
	"strings"

	"go-blog-api/internal/model"
)

type auditRecord = model.AuditEntry

type AuditRepository struct {
	s *Store
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	defer r.s.lock(ctx)()
	r.s.audit = append(r.s.audit, entry)
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	defer r.s.lock(ctx)()
	query.Page = query.Page.Normalize()

	matched := make([]model.AuditEntry, 0)
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		e := r.s.audit[i]
		if query.Action != "" && !strings.EqualFold(e.Action, query.Action) {
			continue
		}
		if query.ActorID != "" && e.Actor.UserID != query.ActorID {
			continue
		}
		if query.Status != "" && !strings.EqualFold(e.Status, query.Status) {
			continue
		}
		if query.Resource != "" && !strings.HasPrefix(e.Resource, query.Resource) {
			continue
		}
		matched = append(matched, e)
	}

	meta := model.NewMeta(query.Page.Page, query.Limit, len(matched))
	page := paginate(matched, query.Page)
	if page == nil {
		page = []model.AuditEntry{}
	}
	return page, meta, nil
}
