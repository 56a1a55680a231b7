package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/ratelimit"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
)

// RateLimit applies the gateway's fixed-window limit per client IP. With
// perToken set, the calling token's own rate_limit_per_minute is enforced as
// well. Rejections get a bare 429 without Retry-After.
func RateLimit(l *ratelimit.Limiter, perIP int, perToken bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow("ip:"+ClientIP(r), perIP) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			if perToken {
				if p := service.TokenFromContext(r.Context()); p != nil && p.RateLimitPerMinute > 0 {
					if !l.Allow("token:"+p.ActorID(), p.RateLimitPerMinute) {
						writeError(w, http.StatusTooManyRequests, "token rate limit exceeded")
						return
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRateLimit guards the admin login endpoint against password guessing.
func LoginRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "too many login attempts")
		}),
	)
}

// ClientIP returns the caller's address without the port. chi's RealIP
// middleware has already replaced RemoteAddr when proxy headers are present.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
