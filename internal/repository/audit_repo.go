package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go-blog-api/internal/database"
	"go-blog-api/internal/model"
)

type AuditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	occurredAt, err := time.Parse(time.RFC3339Nano, entry.OccurredAt)
	if err != nil {
		occurredAt = time.Now().UTC()
	}

	_, err = r.db.Querier(ctx).Exec(ctx,
		`INSERT INTO audit_entries
		 (action, occurred_at, actor_user_id, actor_email, actor_role, actor_ip,
		  status, resource, details, error_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.Action, occurredAt,
		entry.Actor.UserID, entry.Actor.Email, entry.Actor.Role, entry.Actor.IP,
		entry.Status, entry.Resource, details, entry.Error)
	if err != nil {
		return fmt.Errorf("log audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	query.Page = query.Page.Normalize()

	where := make([]string, 0)
	args := make([]any, 0)

	if action := strings.TrimSpace(query.Action); action != "" {
		args = append(args, action)
		where = append(where, fmt.Sprintf("lower(action) = lower($%d)", len(args)))
	}
	if actorID := strings.TrimSpace(query.ActorID); actorID != "" {
		args = append(args, actorID)
		where = append(where, fmt.Sprintf("actor_user_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("lower(status) = lower($%d)", len(args)))
	}
	if resource := strings.TrimSpace(query.Resource); resource != "" {
		args = append(args, resource)
		where = append(where, fmt.Sprintf("starts_with(resource, $%d)", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	q := r.db.Querier(ctx)

	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM audit_entries "+whereClause, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count audit entries: %w", err)
	}
	meta := model.NewMeta(query.Page.Page, query.Limit, total)

	dataQuery := fmt.Sprintf(
		`SELECT action, occurred_at, actor_user_id, actor_email, actor_role, actor_ip,
		        status, resource, details, error_text
		 FROM audit_entries %s
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, whereClause, len(args)+1, len(args)+2)
	args = append(args, query.Limit, query.Offset())

	rows, err := q.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var e model.AuditEntry
		var occurredAt time.Time
		var details []byte

		if err := rows.Scan(
			&e.Action, &occurredAt,
			&e.Actor.UserID, &e.Actor.Email, &e.Actor.Role, &e.Actor.IP,
			&e.Status, &e.Resource, &details, &e.Error,
		); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan audit entry: %w", err)
		}

		e.OccurredAt = occurredAt.UTC().Format(time.RFC3339Nano)
		if len(details) > 0 {
			var decoded any
			if jsonErr := json.Unmarshal(details, &decoded); jsonErr == nil {
				e.Details = decoded
			}
		}
		entries = append(entries, e)
	}

	return entries, meta, rows.Err()
}
