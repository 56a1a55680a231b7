package service

import "context"

type contextKey string

const (
	tokenPrincipalKey   contextKey = "token_principal"
	sessionPrincipalKey contextKey = "session_principal"
)

// ContextWithToken attaches an API token principal to ctx.
func ContextWithToken(ctx context.Context, p *TokenPrincipal) context.Context {
	return context.WithValue(ctx, tokenPrincipalKey, p)
}

// TokenFromContext returns the API token principal, or nil for
// unauthenticated contexts.
func TokenFromContext(ctx context.Context) *TokenPrincipal {
	p, _ := ctx.Value(tokenPrincipalKey).(*TokenPrincipal)
	return p
}

// ContextWithSession attaches an admin session principal to ctx.
func ContextWithSession(ctx context.Context, p *SessionPrincipal) context.Context {
	return context.WithValue(ctx, sessionPrincipalKey, p)
}

// SessionFromContext returns the admin session principal, or nil.
func SessionFromContext(ctx context.Context) *SessionPrincipal {
	p, _ := ctx.Value(sessionPrincipalKey).(*SessionPrincipal)
	return p
}
