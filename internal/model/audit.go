package model

import "time"

// Audit actor types.
const (
	ActorUser   = "user"
	ActorToken  = "token"
	ActorLegacy = "legacy"
	ActorSystem = "system"
)

// AuditLog is an immutable record of one inbound request or admin action.
type AuditLog struct {
	ID        string                 `json:"id" db:"id"`
	ActorType string                 `json:"actor_type" db:"actor_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	Action    string                 `json:"action" db:"action"`
	Method    string                 `json:"method" db:"method"`
	Path      string                 `json:"path" db:"path"`
	Status    int                    `json:"status" db:"status"`
	IP        string                 `json:"ip" db:"ip"`
	UserAgent string                 `json:"user_agent" db:"user_agent"`
	RequestID string                 `json:"request_id" db:"request_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// AuditFilter narrows an audit log query. Zero values mean "no filter".
type AuditFilter struct {
	Action   string
	ActorID  string
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// ActionCount is one row of the top-actions aggregate.
type ActionCount struct {
	Action string `json:"action" db:"action"`
	Count  int64  `json:"count" db:"count"`
}

// ToolInstruction holds operator-provided guidance appended to an MCP tool
// description.
type ToolInstruction struct {
	ToolName     string    `json:"tool_name" db:"tool_name"`
	Instructions string    `json:"instructions" db:"instructions"`
	UpdatedBy    string    `json:"updated_by" db:"updated_by"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
