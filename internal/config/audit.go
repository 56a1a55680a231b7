package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

type auditRow struct {
	ID           string    `db:"id"`
	ActorType    string    `db:"actor_type"`
	ActorID      string    `db:"actor_id"`
	Action       string    `db:"action"`
	Method       string    `db:"method"`
	Path         string    `db:"path"`
	Status       int       `db:"status"`
	IP           string    `db:"ip"`
	UserAgent    string    `db:"user_agent"`
	RequestID    string    `db:"request_id"`
	MetadataJSON string    `db:"metadata_json"`
	CreatedAt    time.Time `db:"created_at"`
}

const auditColumns = `id, actor_type, actor_id, action, method, path, status, ip,
	user_agent, request_id, metadata_json, created_at`

// DefaultAuditPageSize is used when a filter carries no limit.
const DefaultAuditPageSize = 50

// InsertAuditLog appends an audit entry. ID and CreatedAt are filled in when
// empty.
func (s *Store) InsertAuditLog(ctx context.Context, e *model.AuditLog) error {
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	meta := "{}"
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		meta = string(b)
	}

	row := auditRow{
		ID:           e.ID,
		ActorType:    e.ActorType,
		ActorID:      e.ActorID,
		Action:       e.Action,
		Method:       e.Method,
		Path:         e.Path,
		Status:       e.Status,
		IP:           e.IP,
		UserAgent:    e.UserAgent,
		RequestID:    e.RequestID,
		MetadataJSON: meta,
		CreatedAt:    e.CreatedAt,
	}

	const q = `INSERT INTO audit_logs (` + auditColumns + `)
		VALUES (:id, :actor_type, :actor_id, :action, :method, :path, :status, :ip,
			:user_agent, :request_id, :metadata_json, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func auditWhere(f model.AuditFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, f.Action)
	}
	if f.ActorID != "" {
		conds = append(conds, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.FromDate != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.FromDate.UTC())
	}
	if f.ToDate != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.ToDate.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListAuditLogs returns one page of audit entries matching f, newest first,
// together with the total number of matching entries.
func (s *Store) ListAuditLogs(ctx context.Context, f model.AuditFilter) ([]model.AuditLog, int64, error) {
	where, args := auditWhere(f)

	var total int64
	if err := s.db.GetContext(ctx, &total, s.rebind("SELECT COUNT(*) FROM audit_logs"+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultAuditPageSize
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	q := s.rebind("SELECT " + auditColumns + " FROM audit_logs" + where +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")
	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, q, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	logs := make([]model.AuditLog, len(rows))
	for i, r := range rows {
		logs[i] = model.AuditLog{
			ID:        r.ID,
			ActorType: r.ActorType,
			ActorID:   r.ActorID,
			Action:    r.Action,
			Method:    r.Method,
			Path:      r.Path,
			Status:    r.Status,
			IP:        r.IP,
			UserAgent: r.UserAgent,
			RequestID: r.RequestID,
			CreatedAt: r.CreatedAt,
		}
		if r.MetadataJSON != "" && r.MetadataJSON != "{}" {
			var meta map[string]interface{}
			if err := json.Unmarshal([]byte(r.MetadataJSON), &meta); err == nil {
				logs[i].Metadata = meta
			}
		}
	}
	return logs, total, nil
}

// DeleteAuditLogsBefore prunes entries created strictly before cutoff and
// returns how many were removed.
func (s *Store) DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM audit_logs WHERE created_at < ?"), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune audit logs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune audit logs rows affected: %w", err)
	}
	return n, nil
}

// CountAuditLogsSince returns the number of entries created at or after since.
func (s *Store) CountAuditLogsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, s.rebind("SELECT COUNT(*) FROM audit_logs WHERE created_at >= ?"), since.UTC()); err != nil {
		return 0, fmt.Errorf("count audit logs: %w", err)
	}
	return n, nil
}

// TopActions returns the n most frequent actions recorded at or after since.
func (s *Store) TopActions(ctx context.Context, since time.Time, n int) ([]model.ActionCount, error) {
	q := s.rebind(`SELECT action, COUNT(*) AS count FROM audit_logs
		WHERE created_at >= ? GROUP BY action ORDER BY count DESC, action LIMIT ?`)
	var out []model.ActionCount
	if err := s.db.SelectContext(ctx, &out, q, since.UTC(), n); err != nil {
		return nil, fmt.Errorf("top actions: %w", err)
	}
	return out, nil
}
