package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/chatwoot"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/server/middleware"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

const (
	platformPrefix = "/platform"
	publicPrefix   = "/public"
)

// GatewayHandler forwards authenticated requests to Chatwoot and exposes the
// tool registry over plain HTTP.
type GatewayHandler struct {
	client   tools.Doer
	registry *tools.Registry
	logger   *slog.Logger
}

// NewGatewayHandler creates a new GatewayHandler.
func NewGatewayHandler(client tools.Doer, registry *tools.Registry, logger *slog.Logger) *GatewayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GatewayHandler{client: client, registry: registry, logger: logger}
}

// Forward relays the request to Chatwoot. /platform/... and /public/... map
// to the platform and public APIs; everything else is account scoped and
// needs the account id resolved earlier in the chain.
func (h *GatewayHandler) Forward(w http.ResponseWriter, r *http.Request) {
	req := chatwoot.Request{
		Method: r.Method,
		Scope:  chatwoot.ScopeAccount,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
	}
	switch {
	case hasRoot(req.Path, platformPrefix):
		req.Scope = chatwoot.ScopePlatform
		req.Path = strings.TrimPrefix(req.Path, platformPrefix)
	case hasRoot(req.Path, publicPrefix):
		req.Scope = chatwoot.ScopePublic
		req.Path = strings.TrimPrefix(req.Path, publicPrefix)
	default:
		req.AccountID = middleware.AccountID(r.Context())
		req.Query.Del(tools.AccountParam)
	}
	if req.Path == "" {
		req.Path = "/"
	}

	if r.Body != nil {
		raw, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		if len(bytes.TrimSpace(raw)) > 0 {
			req.Body = raw
			req.ContentType = r.Header.Get("Content-Type")
		}
	}

	resp, err := h.client.Do(r.Context(), req)
	if err != nil {
		h.relayError(w, r, err)
		return
	}
	relay(w, resp.Status, resp.ContentType, resp.Body)
}

// hasRoot reports whether path is root itself or lies below it.
func hasRoot(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+"/")
}

func relay(w http.ResponseWriter, status int, contentType string, body []byte) {
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(body)
}

// relayError passes Chatwoot error replies through untouched and turns
// everything else into a 500.
func (h *GatewayHandler) relayError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *chatwoot.APIError
	if errors.As(err, &apiErr) {
		if len(apiErr.Body) == 0 {
			writeError(w, apiErr.Status, apiErr.Error())
			return
		}
		relay(w, apiErr.Status, apiErr.ContentType, apiErr.Body)
		return
	}
	if errors.Is(err, chatwoot.ErrMissingAccount) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("chatwoot request failed",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetRequestID(r.Context()),
	)
	writeError(w, http.StatusInternalServerError, "chatwoot request failed")
}

// NotFound answers routes outside the gateway's resource roots.
func (h *GatewayHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
}

type toolSummary struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    model.Category `json:"category"`
	Action      model.Action   `json:"action"`
	Method      string         `json:"method"`
	Path        string         `json:"path"`
	Scope       string         `json:"scope"`
	Params      []tools.Param  `json:"params"`
}

// ListTools returns the tools the caller's token may invoke.
// GET /tools
func (h *GatewayHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	p := service.TokenFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	visible := h.registry.Visible(p.Permissions)
	out := make([]toolSummary, 0, len(visible))
	for _, t := range visible {
		params := t.Params
		if params == nil {
			params = []tools.Param{}
		}
		out = append(out, toolSummary{
			Name:        t.Name,
			Description: t.Description,
			Category:    t.Category,
			Action:      t.Action,
			Method:      t.Method,
			Path:        t.Path,
			Scope:       t.Scope.String(),
			Params:      params,
		})
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: out,
		Meta:     &model.ResponseMeta{Count: len(out)},
	})
}

// InvokeTool runs one registry tool with the JSON object in the body as its
// arguments. The account resolved by the middleware chain is the default.
// POST /tools/{name}
func (h *GatewayHandler) InvokeTool(w http.ResponseWriter, r *http.Request) {
	p := service.TokenFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	name := chi.URLParam(r, "name")
	t, ok := h.registry.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown tool: "+name)
		return
	}
	middleware.SetAuditAction(r.Context(), "tool."+t.Name)
	if !p.Permissions.Allows(t.Category, t.Action) {
		writeError(w, http.StatusForbidden, "token lacks "+string(t.Action)+" permission on "+string(t.Category))
		return
	}

	args := map[string]interface{}{}
	raw, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil || args == nil {
			writeError(w, http.StatusBadRequest, "arguments must be a JSON object")
			return
		}
	}

	data, err := h.registry.Invoke(r.Context(), h.client, t.Name, args, middleware.AccountID(r.Context()))
	if err != nil {
		var apiErr *chatwoot.APIError
		if errors.As(err, &apiErr) {
			h.relayError(w, r, err)
			return
		}
		status, msg := classifyError(err, "tool call failed")
		if status == http.StatusInternalServerError {
			h.logger.Error("tool call failed", "tool", t.Name, "error", err,
				"request_id", middleware.GetRequestID(r.Context()))
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
}
