package model

type AuditActor struct {
	UserID string `json:"user_id,omitempty" db:"actor_user_id"`
	Email  string `json:"email,omitempty" db:"actor_email"`
	Role   Role   `json:"role,omitempty" db:"actor_role"`
	IP     string `json:"ip,omitempty" db:"actor_ip"`
}

type AuditEntry struct {
	Action     string     `json:"action"`
	OccurredAt string     `json:"occurred_at"`
	Actor      AuditActor `json:"actor"`
	Status     string     `json:"status"`
	Resource   string     `json:"resource,omitempty"`
	Details    any        `json:"details,omitempty"`
	Error      string     `json:"error,omitempty"`
}

const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)

type AuditQuery struct {
	Action   string
	ActorID  string
	Status   string
	// Resource matches entries whose resource starts with it, e.g. "posts/".
	Resource string
	Page
}

type AuditList struct {
	Items []AuditEntry `json:"items"`
}
