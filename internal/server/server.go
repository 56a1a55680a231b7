package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/handler"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/mcp"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/openapi"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/permission"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/ratelimit"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/server/middleware"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes
	TLSCertFile     string
	TLSKeyFile      string

	APIKeyHeader          string
	DefaultAccountID      int
	RateLimitPerMinute    int
	EnforceTokenRateLimit bool
	LoginAttemptsPerMin   int
	SecureCookies         bool
	Version               string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:                "0.0.0.0",
		Port:                3000,
		ShutdownTimeout:     30 * time.Second,
		CORSOrigins:         []string{"*"},
		MaxBodySize:         10 * 1024 * 1024, // 10MB
		APIKeyHeader:        middleware.DefaultAPIKeyHeader,
		RateLimitPerMinute:  100,
		LoginAttemptsPerMin: 10,
		Version:             "dev",
	}
}

// Deps are the services the router is wired to. MCP may be nil to disable
// the MCP HTTP transports.
type Deps struct {
	Store    *config.Store
	Auth     *service.AuthService
	Users    *service.UserService
	Tokens   *service.TokenService
	Audit    handler.AuditRecorder
	Mapper   *permission.Mapper
	Registry *tools.Registry
	Client   tools.Doer
	Limiter  *ratelimit.Limiter
	MCP      *mcp.Server
}

// Server is the gateway's HTTP server. It owns the chi router that carries
// the Chatwoot pass-through routes, the tool endpoints, the MCP transports
// and the admin API.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger

	specOnce sync.Once
	spec     []byte
	specErr  error
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = middleware.DefaultAPIKeyHeader
	}
	if cfg.LoginAttemptsPerMin <= 0 {
		cfg.LoginAttemptsPerMin = 10
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", s.cfg.APIKeyHeader, middleware.AccountHeader, "X-Request-ID", "Mcp-Session-Id"},
		ExposedHeaders:   []string{"X-Request-ID", "Mcp-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(answerOptions)
	r.Use(s.limitBody)
	r.Use(chimw.Compress(5, "application/json"))

	gw := handler.NewGatewayHandler(s.deps.Client, s.deps.Registry, s.logger)
	r.NotFound(gw.NotFound)
	r.MethodNotAllowed(gw.NotFound)

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- OpenAPI document (no auth required) ---
	r.Get("/openapi.json", s.handleOpenAPI)

	// --- Gateway ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.CanonicalPath)
		r.Use(middleware.APIKey(s.deps.Auth, s.cfg.APIKeyHeader))
		r.Use(middleware.Audit(s.deps.Audit))
		r.Use(middleware.Permission(s.deps.Mapper))
		r.Use(middleware.RateLimit(s.deps.Limiter, s.cfg.RateLimitPerMinute, s.cfg.EnforceTokenRateLimit))

		r.Group(func(r chi.Router) {
			r.Use(middleware.ResolveAccount(s.cfg.DefaultAccountID, true))
			for _, root := range s.deps.Mapper.ResourceRoots() {
				r.Handle("/"+root, http.HandlerFunc(gw.Forward))
				r.Handle("/"+root+"/*", http.HandlerFunc(gw.Forward))
			}
		})

		r.With(middleware.RequireFullAccess).Handle("/platform/*", http.HandlerFunc(gw.Forward))
		r.Handle("/public/*", http.HandlerFunc(gw.Forward))

		r.Group(func(r chi.Router) {
			r.Use(middleware.ResolveAccount(s.cfg.DefaultAccountID, false))
			r.Get("/tools", gw.ListTools)
			r.Post("/tools/{name}", gw.InvokeTool)
		})
	})

	// --- MCP over HTTP. Tool calls are audited by the MCP server itself. ---
	if s.deps.MCP != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKey(s.deps.Auth, s.cfg.APIKeyHeader))
			r.Use(middleware.RateLimit(s.deps.Limiter, s.cfg.RateLimitPerMinute, s.cfg.EnforceTokenRateLimit))

			r.Handle("/mcp", s.deps.MCP.StreamableHTTPHandler("/mcp"))
			stream, message := s.deps.MCP.SSEHandlers()
			r.Handle("/sse", stream)
			r.Handle("/message", message)
		})
	}

	// --- Admin API ---
	r.Route("/admin/api", func(r chi.Router) {
		admin := handler.NewAdminHandler(handler.AdminDeps{
			Store:    s.deps.Store,
			Auth:     s.deps.Auth,
			Users:    s.deps.Users,
			Tokens:   s.deps.Tokens,
			Audit:    s.deps.Audit,
			Registry: s.deps.Registry,
			InstructionsChanged: func() {
				if s.deps.MCP != nil {
					s.deps.MCP.ReloadInstructions(context.Background())
				}
			},
			SecureCookies: s.cfg.SecureCookies,
			Logger:        s.logger,
		})

		r.With(middleware.LoginRateLimit(s.cfg.LoginAttemptsPerMin)).Post("/auth/login", admin.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(s.deps.Auth))

			r.Post("/auth/logout", admin.Logout)
			r.Get("/auth/me", admin.Me)

			// Users
			r.Get("/users", admin.ListUsers)
			r.Get("/users/{id}", admin.GetUser)
			r.Post("/users/{id}/password", admin.ChangePassword)
			r.With(middleware.RequireAdmin()).Post("/users", admin.CreateUser)
			r.With(middleware.RequireAdmin()).Patch("/users/{id}", admin.UpdateUser)
			r.With(middleware.RequireAdmin()).Delete("/users/{id}", admin.DeactivateUser)

			// API tokens
			r.Get("/tokens", admin.ListTokens)
			r.Post("/tokens", admin.CreateToken)
			r.Get("/tokens/{id}", admin.GetToken)
			r.Patch("/tokens/{id}", admin.UpdateToken)
			r.Delete("/tokens/{id}", admin.RevokeToken)
			r.Post("/tokens/{id}/regenerate", admin.RegenerateToken)

			// Audit and dashboard
			r.Get("/audit-logs", admin.ListAuditLogs)
			r.With(middleware.RequireAdmin()).Delete("/audit-logs", admin.PruneAuditLogs)
			r.Get("/stats", admin.Stats)

			// Tool instructions
			r.Get("/tool-instructions", admin.ListToolInstructions)
			r.With(middleware.RequireAdmin()).Put("/tool-instructions/{tool}", admin.PutToolInstruction)
			r.With(middleware.RequireAdmin()).Delete("/tool-instructions/{tool}", admin.DeleteToolInstruction)
		})
	})

	s.router = r
}

// answerOptions replies 200 to every OPTIONS request the CORS handler let
// through, preflight or not.
func answerOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.MaxBodySize > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: model.ErrorKind(status), Message: msg})
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the store answers, or
// 503 otherwise. Audit recorder counters are included.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.deps.Store.Ping(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	body := map[string]interface{}{
		"status": status,
		"checks": checks,
	}
	if s.deps.Audit != nil {
		body["audit"] = s.deps.Audit.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(body)
}

// handleOpenAPI serves the gateway's OpenAPI document, built once.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	s.specOnce.Do(func() {
		doc := openapi.Generate(openapi.Info{
			Version:      s.cfg.Version,
			APIKeyHeader: s.cfg.APIKeyHeader,
		}, s.deps.Mapper.Entries(), s.deps.Registry.List())
		s.spec, s.specErr = json.MarshalIndent(doc, "", "  ")
	})
	if s.specErr != nil {
		s.logger.Error("failed to render openapi document", "error", s.specErr)
		writeError(w, http.StatusInternalServerError, "failed to render openapi document")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.spec)
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled or
// a SIGINT or SIGTERM is received. It then performs a graceful shutdown,
// draining in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		// No WriteTimeout: SSE and streamable MCP responses are long-lived.
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "tls", s.cfg.TLSCertFile != "")
		var err error
		if s.cfg.TLSCertFile != "" {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
