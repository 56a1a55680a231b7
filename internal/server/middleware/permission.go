package middleware

import (
	"net/http"
	"strings"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/permission"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
)

// EndpointMapper resolves the permission an endpoint needs.
// *permission.Mapper satisfies it.
type EndpointMapper interface {
	MapEndpoint(method, path string) (permission.Mapping, bool)
}

// Permission rejects with 403 when the endpoint is in the permission table
// and the caller's token lacks the required grant. Endpoints missing from the
// table pass through. It must be used after APIKey.
func Permission(m EndpointMapper) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := service.TokenFromContext(r.Context())
			if p == nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			mapping, ok := m.MapEndpoint(r.Method, r.URL.Path)
			if ok {
				SetAuditAction(r.Context(), string(mapping.Category)+"."+string(mapping.Action))
				if !p.Permissions.Allows(mapping.Category, mapping.Action) {
					writeError(w, http.StatusForbidden,
						"token lacks "+string(mapping.Action)+" permission on "+string(mapping.Category))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CanonicalPath rejects request paths with dot segments, empty segments or
// backslashes, in raw or decoded form. Permission checks and forwarding both
// use the path as received and must see the endpoint Chatwoot will serve.
func CanonicalPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !permission.Canonical(r.URL.Path) || !permission.Canonical(r.URL.EscapedPath()) {
			writeError(w, http.StatusBadRequest, "request path must not contain empty, '.' or '..' segments")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireFullAccess admits only the legacy key and tokens granted every
// action on every category. It guards the Chatwoot platform API, which the
// permission table does not cover. It must be used after APIKey.
func RequireFullAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := service.TokenFromContext(r.Context())
		if p == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		SetAuditAction(r.Context(), "platform."+strings.ToLower(r.Method))
		if !p.Legacy && !p.Permissions.IsFull() {
			writeError(w, http.StatusForbidden, "the platform API requires a full-access token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
