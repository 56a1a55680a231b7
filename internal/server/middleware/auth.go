package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
)

// DefaultAPIKeyHeader carries the gateway API token.
const DefaultAPIKeyHeader = "X-API-Key"

// SessionCookie is the admin session cookie name.
const SessionCookie = "session"

// TokenValidator resolves API tokens. *service.AuthService satisfies it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, plaintext string) (*service.TokenPrincipal, error)
}

// SessionValidator resolves admin session credentials.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*service.SessionPrincipal, error)
}

// APIKey validates the API token in header and attaches the principal to the
// request context. Missing and invalid tokens get the same 401.
func APIKey(v TokenValidator, header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(header))
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing "+header+" header")
				return
			}
			p, err := v.ValidateToken(r.Context(), key)
			if err != nil {
				writeError(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
				return
			}
			noteActor(r, p)
			next.ServeHTTP(w, r.WithContext(service.ContextWithToken(r.Context(), p)))
		})
	}
}

// Session validates the admin session credential from the session cookie or
// an Authorization: Bearer header.
func Session(v SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := SessionToken(r)
			if tok == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			p, err := v.ValidateSession(r.Context(), tok)
			if err != nil {
				writeError(w, http.StatusUnauthorized, service.ErrInvalidSession.Error())
				return
			}
			if h, ok := r.Context().Value(actorKey).(*actorHolder); ok {
				h.id = "user:" + p.User.Username
			}
			next.ServeHTTP(w, r.WithContext(service.ContextWithSession(r.Context(), p)))
		})
	}
}

// SessionToken extracts the session credential, preferring the bearer
// header over the cookie.
func SessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireAdmin enforces the admin role. It must be used after Session.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := service.SessionFromContext(r.Context())
			if p == nil || !p.User.IsAdmin() {
				writeError(w, http.StatusForbidden, "admin role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
