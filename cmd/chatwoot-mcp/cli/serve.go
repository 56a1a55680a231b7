package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/audit"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/mcp"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/permission"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/ratelimit"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/server"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

const banner = `
  ___ _         _                   _     __  __  ___ ___
 / __| |_  __ _| |___ __ _____  ___| |_  |  \/  |/ __| _ \
| (__| ' \/ _' |  _\ V  V / _ \/ _ \  _| | |\/| | (__|  _/
 \___|_||_\__,_|\__|\_/\_/\___/\___/\__| |_|  |_|\___|_|
`

func newServeCmd() *cobra.Command {
	var noMCP bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway, admin API and MCP HTTP endpoints",
		Long: `Start the HTTP server. It exposes the authenticated Chatwoot gateway, the
tool endpoints, the admin API under /admin/api, and the MCP streamable HTTP
(/mcp) and SSE (/sse, /message) transports.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), noMCP)
		},
	}

	cmd.Flags().IntP("port", "p", 3000, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&noMCP, "no-mcp", false, "Do not mount the MCP HTTP endpoints")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context, noMCP bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging, os.Stderr)

	fmt.Print(banner)
	fmt.Println()

	// 1. Token store
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("store initialized", "driver", store.Driver())

	// 2. Services
	authSvc, err := newAuthService(cfg, store, logger)
	if err != nil {
		return err
	}
	users := service.NewUserService(store, 0, logger)
	tokens := service.NewTokenService(store, 0)

	if total, _, err := store.CountUsers(ctx); err != nil {
		logger.Warn("failed to count users", "error", err)
	} else if total == 0 {
		logger.Warn("no users found - run: chatwoot-mcp user create --username admin --role admin")
	}

	// 3. Audit recorder
	recorder := audit.NewRecorder(store, audit.Options{
		QueueSize:    cfg.Audit.QueueSize,
		WriteTimeout: config.Duration(cfg.Audit.WriteTimeout, audit.DefaultWriteTimeout),
		Logger:       logger,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := recorder.Close(closeCtx); err != nil {
			logger.Warn("audit recorder did not drain", "error", err)
		}
	}()

	// 4. Downstream client, tool registry, MCP server
	client, err := newChatwootClient(cfg, logger)
	if err != nil {
		return err
	}
	registry := tools.Default()

	var mcpServer *mcp.Server
	if cfg.MCP.Enabled && !noMCP {
		mcpServer = mcp.NewServer(ctx, mcp.Options{
			Registry:       registry,
			Client:         client,
			Instructions:   store,
			Audit:          recorder,
			DefaultAccount: cfg.Chatwoot.AccountID,
			Version:        versionString(),
			Logger:         logger,
		})
	}

	// 5. Background work
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := ratelimit.New(ratelimit.WithMaxKeys(cfg.Gateway.MaxRateLimitKeys))
	limiter.Start(bgCtx)
	defer limiter.Close()
	go service.NewJanitor(store, cfg.Audit.RetentionDays, logger).Run(bgCtx)

	// 6. HTTP server
	srvCfg := serverConfig(cfg)
	srv := server.New(srvCfg, server.Deps{
		Store:    store,
		Auth:     authSvc,
		Users:    users,
		Tokens:   tokens,
		Audit:    recorder,
		Mapper:   permission.NewMapper(logger),
		Registry: registry,
		Client:   client,
		Limiter:  limiter,
		MCP:      mcpServer,
	}, logger)

	scheme := "http"
	if srvCfg.TLSCertFile != "" {
		scheme = "https"
	}
	base := fmt.Sprintf("%s://%s:%d", scheme, srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ chatwoot-mcp %s\n", versionString())
	fmt.Printf("→ Listening on %s\n", base)
	fmt.Printf("→ Chatwoot:   %s\n", cfg.Chatwoot.BaseURL)
	fmt.Printf("→ Admin API:  %s/admin/api\n", base)
	fmt.Printf("→ OpenAPI:    %s/openapi.json\n", base)
	if mcpServer != nil {
		fmt.Printf("→ MCP:        %s/mcp (SSE: %s/sse)\n", base, base)
	}
	fmt.Printf("→ Tools:      %d\n", registry.Len())
	fmt.Println()

	return srv.ListenAndServe(ctx)
}

// serverConfig maps the file configuration onto the HTTP server settings.
func serverConfig(cfg *config.YAMLConfig) server.Config {
	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = cfg.Server.Port
	srvCfg.ShutdownTimeout = config.Duration(cfg.Server.ShutdownTimeout, srvCfg.ShutdownTimeout)
	srvCfg.MaxBodySize = config.ByteSize(cfg.Server.MaxBodySize, srvCfg.MaxBodySize)
	if len(cfg.Server.CORSOrigins) > 0 {
		srvCfg.CORSOrigins = cfg.Server.CORSOrigins
	}
	if cfg.Server.TLS.Enabled {
		srvCfg.TLSCertFile = cfg.Server.TLS.CertFile
		srvCfg.TLSKeyFile = cfg.Server.TLS.KeyFile
		srvCfg.SecureCookies = true
	}
	if cfg.Auth.APIKeyHeader != "" {
		srvCfg.APIKeyHeader = cfg.Auth.APIKeyHeader
	}
	srvCfg.DefaultAccountID = cfg.Chatwoot.AccountID
	srvCfg.RateLimitPerMinute = cfg.Gateway.RateLimitPerMinute
	srvCfg.EnforceTokenRateLimit = cfg.Gateway.EnforceTokenRateLimit
	srvCfg.Version = versionString()
	return srvCfg
}
