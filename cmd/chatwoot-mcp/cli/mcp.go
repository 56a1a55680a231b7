package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/audit"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/mcp"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/ratelimit"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/server/middleware"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the Chatwoot API
as tools for AI agents. Supports stdio (default) and HTTP transports.

In stdio mode the server speaks JSON-RPC over stdin/stdout and acts with full
permissions: whoever launches the process already holds the Chatwoot token.

In HTTP mode the server listens on --port and serves the streamable HTTP
transport at /mcp and the SSE transport at /sse and /message. Every request
must carry an API token; the tools listed and callable follow its permissions.`,
		Example: `  chatwoot-mcp mcp                              # stdio mode (for desktop MCP clients)
  chatwoot-mcp mcp --transport http --port 3001  # HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport mode: stdio or http (default from mcp.transport)")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(ctx context.Context, transport string, port int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if transport == "" {
		transport = cfg.MCP.Transport
	}
	// stdout belongs to the protocol in stdio mode.
	logger := newLogger(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	recorder := audit.NewRecorder(store, audit.Options{
		QueueSize:    cfg.Audit.QueueSize,
		WriteTimeout: config.Duration(cfg.Audit.WriteTimeout, audit.DefaultWriteTimeout),
		Logger:       logger,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		recorder.Close(closeCtx)
	}()

	client, err := newChatwootClient(cfg, logger)
	if err != nil {
		return err
	}

	opts := mcp.Options{
		Registry:       tools.Default(),
		Client:         client,
		Instructions:   store,
		Audit:          recorder,
		DefaultAccount: cfg.Chatwoot.AccountID,
		Version:        versionString(),
		Logger:         logger,
	}

	switch transport {
	case "stdio":
		opts.Local = true
		return mcp.NewServer(ctx, opts).ServeStdio(ctx, os.Stdin, os.Stdout)
	case "http":
		return serveMCPHTTP(ctx, cfg, port, mcp.NewServer(ctx, opts), store, logger)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}

// serveMCPHTTP runs only the MCP transports, behind API-token authentication
// and the per-client rate limit.
func serveMCPHTTP(ctx context.Context, cfg *config.YAMLConfig, port int, srv *mcp.Server, store *config.Store, logger *slog.Logger) error {
	authSvc, err := newAuthService(cfg, store, logger)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(ratelimit.WithMaxKeys(cfg.Gateway.MaxRateLimitKeys))
	limiter.Start(ctx)
	defer limiter.Close()

	header := cfg.Auth.APIKeyHeader
	if header == "" {
		header = middleware.DefaultAPIKeyHeader
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(authSvc, header))
		r.Use(middleware.RateLimit(limiter, cfg.Gateway.RateLimitPerMinute, cfg.Gateway.EnforceTokenRateLimit))
		r.Handle("/mcp", srv.StreamableHTTPHandler("/mcp"))
		stream, message := srv.SSEHandlers()
		r.Handle("/sse", stream)
		r.Handle("/message", message)
	})

	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting MCP HTTP server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("mcp listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout, 30*time.Second))
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
