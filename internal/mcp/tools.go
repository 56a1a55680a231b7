package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/chatwoot"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

const instructionsTimeout = 5 * time.Second

// registerTools adds (or replaces) one MCP tool per registry entry.
func (s *Server) registerTools(ctx context.Context) {
	extra := s.loadInstructions(ctx)

	entries := make([]server.ServerTool, 0, s.registry.Len())
	for _, t := range s.registry.List() {
		entries = append(entries, server.ServerTool{
			Tool:    Definition(t, extra[t.Name]),
			Handler: s.handler(t),
		})
	}
	s.server.AddTools(entries...)
}

func (s *Server) loadInstructions(ctx context.Context) map[string]string {
	if s.instructions == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, instructionsTimeout)
	defer cancel()
	m, err := s.instructions.ToolInstructionMap(ctx)
	if err != nil {
		s.logger.Warn("loading tool instructions failed", "error", err)
		return nil
	}
	return m
}

// Definition builds the MCP tool for t. instructions, when set, is appended
// to the description.
func Definition(t *tools.Tool, instructions string) mcp.Tool {
	desc := t.Description
	if s := strings.TrimSpace(instructions); s != "" {
		desc += "\n\nInstructions: " + s
	}

	raw, _ := json.Marshal(InputSchema(t))
	tool := mcp.NewToolWithRawSchema(t.Name, desc, raw)
	tool.Annotations = mcp.ToolAnnotation{
		Title:           strings.ReplaceAll(t.Name, "_", " "),
		ReadOnlyHint:    boolPtr(t.ReadOnly()),
		DestructiveHint: boolPtr(t.Destructive()),
		IdempotentHint:  boolPtr(t.Method == "GET" || t.Method == "PUT" || t.Method == "DELETE"),
		OpenWorldHint:   boolPtr(true),
	}
	return tool
}

// InputSchema returns the JSON schema of t's arguments. Account-scoped tools
// also accept an optional account_id.
func InputSchema(t *tools.Tool) map[string]interface{} {
	props := map[string]interface{}{}
	required := []string{}
	for _, p := range t.Params {
		prop := map[string]interface{}{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = enumValues(p)
		}
		if p.Type == tools.TypeArray {
			prop["items"] = map[string]interface{}{}
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	if t.Scope == chatwoot.ScopeAccount {
		props[tools.AccountParam] = map[string]interface{}{
			"type":        "integer",
			"description": "Chatwoot account id; defaults to the configured account",
			"minimum":     1,
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// enumValues types enum members to match the parameter's JSON type.
func enumValues(p tools.Param) []interface{} {
	out := make([]interface{}, 0, len(p.Enum))
	for _, v := range p.Enum {
		if p.Type == tools.TypeInteger {
			if n, err := strconv.Atoi(v); err == nil {
				out = append(out, n)
				continue
			}
		}
		out = append(out, v)
	}
	return out
}

// handler returns the MCP handler for one registry tool. Failures are
// reported as tool errors so the model can correct itself; the session is
// never torn down.
func (s *Server) handler(t *tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		perms, ok := s.permissions(ctx)
		if !ok {
			return errorResult(model.ErrKindUnauthorized, "authentication required", 0), nil
		}
		if !perms.Allows(t.Category, t.Action) {
			s.record(ctx, t, "forbidden")
			return errorResult(model.ErrKindForbidden,
				fmt.Sprintf("token lacks %s permission on %s", t.Action, t.Category), 0), nil
		}

		data, err := s.registry.Invoke(ctx, s.client, t.Name, req.GetArguments(), s.defaultAccount)
		if err != nil {
			s.logger.Debug("tool call failed", "tool", t.Name, "error", err)
			s.record(ctx, t, "error")
			return callError(err), nil
		}
		s.logger.Debug("tool call", "tool", t.Name, "duration_ms", time.Since(start).Milliseconds())
		s.record(ctx, t, "ok")
		return successJSON(data)
	}
}

func (s *Server) record(ctx context.Context, t *tools.Tool, outcome string) {
	if s.audit == nil {
		return
	}
	entry := &model.AuditLog{
		ID:        uuid.NewString(),
		ActorType: model.ActorSystem,
		ActorID:   "stdio",
		Action:    "mcp.tool_call",
		Method:    t.Method,
		Path:      t.Path,
		Metadata:  map[string]interface{}{"tool": t.Name, "outcome": outcome},
	}
	if p := service.TokenFromContext(ctx); p != nil {
		entry.ActorType = model.ActorToken
		if p.Legacy {
			entry.ActorType = model.ActorLegacy
		}
		entry.ActorID = p.ActorID()
	}
	s.audit.Record(entry)
}

// callError converts an Invoke error into a tool error result.
func callError(err error) *mcp.CallToolResult {
	var apiErr *chatwoot.APIError
	switch {
	case errors.As(err, &apiErr):
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("chatwoot returned status %d", apiErr.Status)
		}
		return errorResult(model.ErrorKind(apiErr.Status), msg, apiErr.Status)
	case errors.Is(err, tools.ErrInvalidArguments), errors.Is(err, chatwoot.ErrMissingAccount):
		return errorResult(model.ErrKindBadRequest, err.Error(), 0)
	case errors.Is(err, tools.ErrUnknownTool):
		return errorResult(model.ErrKindNotFound, err.Error(), 0)
	default:
		return errorResult(model.ErrKindInternal, err.Error(), 0)
	}
}
