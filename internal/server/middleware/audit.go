package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
)

// AuditRecorder queues audit entries without blocking.
// *audit.Recorder satisfies it.
type AuditRecorder interface {
	Record(e *model.AuditLog)
}

// DefaultAuditAction is recorded for gateway requests that match no entry in
// the permission table.
const DefaultAuditAction = "gateway.request"

type auditInfo struct {
	action   string
	metadata map[string]interface{}
}

const auditKey contextKey = "audit_info"

// SetAuditAction overrides the action recorded for the current request.
func SetAuditAction(ctx context.Context, action string) {
	if info, ok := ctx.Value(auditKey).(*auditInfo); ok {
		info.action = action
	}
}

// AddAuditMetadata attaches a metadata field to the current request's entry.
func AddAuditMetadata(ctx context.Context, key string, value interface{}) {
	if info, ok := ctx.Value(auditKey).(*auditInfo); ok {
		if info.metadata == nil {
			info.metadata = map[string]interface{}{}
		}
		info.metadata[key] = value
	}
}

// Audit enqueues one entry per authenticated gateway request after the
// response is written. Recording never blocks or fails the request. It must
// be used after APIKey.
func Audit(rec AuditRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &auditInfo{action: DefaultAuditAction}
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), auditKey, info)))

			entry := &model.AuditLog{
				ID:        uuid.Must(uuid.NewV7()).String(),
				ActorType: model.ActorToken,
				Action:    info.action,
				Method:    r.Method,
				Path:      r.URL.Path,
				Status:    ww.status,
				IP:        ClientIP(r),
				UserAgent: r.UserAgent(),
				RequestID: GetRequestID(r.Context()),
				Metadata:  info.metadata,
			}
			if p := service.TokenFromContext(r.Context()); p != nil {
				entry.ActorID = p.ActorID()
				if p.Legacy {
					entry.ActorType = model.ActorLegacy
				}
			}
			rec.Record(entry)
		})
	}
}
