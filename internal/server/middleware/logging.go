package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
)

// Logger logs every request with method, path, status, size, duration,
// request ID, remote address and, once authenticated, the calling token.
// Health probes are logged at debug level.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			actor := &actorHolder{}
			r = r.WithContext(withActorHolder(r.Context(), actor))

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			switch {
			case ww.status >= 500:
				level = slog.LevelError
			case ww.status >= 400:
				level = slog.LevelWarn
			case r.URL.Path == "/healthz" || r.URL.Path == "/readyz":
				level = slog.LevelDebug
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.status,
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
				"bytes", ww.bytes,
				"request_id", GetRequestID(r.Context()),
				"remote_addr", r.RemoteAddr,
			}
			if actor.id != "" {
				attrs = append(attrs, "actor", actor.id)
			}
			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}

// actorHolder lets authentication, which runs deeper in the chain, report the
// caller back to the request logger.
type actorHolder struct {
	id string
}

const actorKey contextKey = "log_actor"

func withActorHolder(ctx context.Context, h *actorHolder) context.Context {
	return context.WithValue(ctx, actorKey, h)
}

func noteActor(r *http.Request, p *service.TokenPrincipal) {
	if h, ok := r.Context().Value(actorKey).(*actorHolder); ok && p != nil {
		h.id = p.ActorID()
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// bytes written.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Flush forwards to the underlying writer so streaming transports (SSE,
// Streamable HTTP) work through the chain.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		if !w.wroteHeader {
			w.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter, required for
// http.ResponseController and other interface assertions.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
