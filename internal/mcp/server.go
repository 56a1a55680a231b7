package mcp

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

const serverName = "Chatwoot MCP"

// InstructionSource supplies operator-written tool instructions keyed by
// tool name. *config.Store satisfies it.
type InstructionSource interface {
	ToolInstructionMap(ctx context.Context) (map[string]string, error)
}

// AuditRecorder receives one entry per tool call. *audit.Recorder satisfies
// it.
type AuditRecorder interface {
	Record(e *model.AuditLog)
}

// Options configures a Server.
type Options struct {
	Registry       *tools.Registry
	Client         tools.Doer
	Instructions   InstructionSource
	Audit          AuditRecorder
	DefaultAccount int
	Version        string

	// Local grants full access to calls that carry no token principal. Only
	// the stdio transport sets it.
	Local bool

	Logger *slog.Logger
}

// Server wraps the mcp-go server with one MCP tool per registry entry and the
// catalog resources. It exposes the Chatwoot API to AI agents so they can
// read and act on support data within their token's permissions.
type Server struct {
	registry       *tools.Registry
	client         tools.Doer
	instructions   InstructionSource
	audit          AuditRecorder
	defaultAccount int
	local          bool
	logger         *slog.Logger

	mu     sync.Mutex
	server *server.MCPServer
}

// NewServer creates a Server pre-loaded with every registry tool and the
// catalog resources. Stored tool instructions are appended to descriptions.
func NewServer(ctx context.Context, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{
		registry:       opts.Registry,
		client:         opts.Client,
		instructions:   opts.Instructions,
		audit:          opts.Audit,
		defaultAccount: opts.DefaultAccount,
		local:          opts.Local,
		logger:         opts.Logger,
	}

	s.server = server.NewMCPServer(
		serverName,
		opts.Version,
		server.WithResourceCapabilities(false, false),
		server.WithToolCapabilities(true),
		server.WithToolFilter(s.filterTools),
		server.WithInstructions("Tools call the Chatwoot API of the configured instance. "+
			"Account-scoped tools accept an optional account_id argument; "+
			"read chatwoot://categories to discover what is available."),
	)

	s.registerTools(ctx)
	s.registerResources()
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *Server) Server() *server.MCPServer {
	return s.server
}

// ReloadInstructions re-registers every tool so changed tool instructions
// show up in descriptions. Connected clients receive a list_changed
// notification.
func (s *Server) ReloadInstructions(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerTools(ctx)
}

// ServeStdio serves MCP over the given reader and writer until ctx is done or
// the input is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("starting MCP server in stdio mode", "tools", s.registry.Len())
	stdio := server.NewStdioServer(s.server)
	return stdio.Listen(ctx, in, out)
}

// StreamableHTTPHandler serves the Streamable HTTP transport at path. The
// token principal attached by the gateway's authentication is carried into
// tool calls.
func (s *Server) StreamableHTTPHandler(path string) http.Handler {
	return server.NewStreamableHTTPServer(s.server,
		server.WithEndpointPath(path),
		server.WithHTTPContextFunc(carryPrincipal),
	)
}

// SSEHandlers returns the SSE stream and message endpoints of the legacy SSE
// transport.
func (s *Server) SSEHandlers() (stream, message http.Handler) {
	sse := server.NewSSEServer(s.server,
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithSSEContextFunc(carryPrincipal),
	)
	return sse.SSEHandler(), sse.MessageHandler()
}

func carryPrincipal(ctx context.Context, r *http.Request) context.Context {
	if p := service.TokenFromContext(r.Context()); p != nil {
		return service.ContextWithToken(ctx, p)
	}
	return ctx
}

// permissions returns the grants of the caller behind ctx. ok is false for
// unauthenticated calls on a non-local server.
func (s *Server) permissions(ctx context.Context) (model.Permissions, bool) {
	if p := service.TokenFromContext(ctx); p != nil {
		return p.Permissions, true
	}
	if s.local {
		return model.FullAccess(), true
	}
	return nil, false
}

// filterTools hides tools the caller's token cannot invoke.
func (s *Server) filterTools(ctx context.Context, all []mcp.Tool) []mcp.Tool {
	perms, ok := s.permissions(ctx)
	if !ok {
		return nil
	}
	out := make([]mcp.Tool, 0, len(all))
	for _, t := range all {
		if def, found := s.registry.Get(t.Name); found && perms.Allows(def.Category, def.Action) {
			out = append(out, t)
		}
	}
	return out
}

func boolPtr(b bool) *bool {
	return &b
}
