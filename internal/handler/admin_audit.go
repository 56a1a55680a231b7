package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/audit"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

const (
	maxAuditPageSize = 500
	topActionsLimit  = 10
)

// parseDate accepts RFC 3339 timestamps or plain dates. A plain date used as
// an upper bound covers the whole day.
func parseDate(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// ListAuditLogs returns audit entries newest first.
// GET /admin/api/audit-logs?action=&actor_id=&from_date=&to_date=&page=&limit=
func (h *AdminHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(queryString(r, "from_date"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from_date must be YYYY-MM-DD or RFC 3339")
		return
	}
	to, err := parseDate(queryString(r, "to_date"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "to_date must be YYYY-MM-DD or RFC 3339")
		return
	}

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := clampInt(queryInt(r, "limit", config.DefaultAuditPageSize), 1, maxAuditPageSize)

	logs, total, err := h.Store.ListAuditLogs(r.Context(), model.AuditFilter{
		Action:   queryString(r, "action"),
		ActorID:  queryString(r, "actor_id"),
		FromDate: from,
		ToDate:   to,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		h.fail(w, r, err, "failed to list audit logs")
		return
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: logs,
		Meta: &model.ResponseMeta{
			Count: len(logs),
			Total: &total,
			Page:  page,
			Limit: limit,
		},
	})
}

// PruneAuditLogs deletes entries older than older_than_days. Admin only.
// DELETE /admin/api/audit-logs?older_than_days=N
func (h *AdminHandler) PruneAuditLogs(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(queryString(r, "older_than_days"))
	if err != nil || days < 1 {
		writeError(w, http.StatusBadRequest, "older_than_days must be a positive integer")
		return
	}
	cutoff := h.now().UTC().AddDate(0, 0, -days)
	n, err := h.Store.DeleteAuditLogsBefore(r.Context(), cutoff)
	if err != nil {
		h.fail(w, r, err, "failed to prune audit logs")
		return
	}
	h.record(r, "audit.prune", http.StatusOK, map[string]interface{}{"older_than_days": days, "deleted": n})
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": n, "cutoff": cutoff})
}

type statsResponse struct {
	Users        int64               `json:"users"`
	ActiveUsers  int64               `json:"active_users"`
	Tokens       int64               `json:"tokens"`
	ActiveTokens int64               `json:"active_tokens"`
	Requests24h  int64               `json:"requests_24h"`
	Requests7d   int64               `json:"requests_7d"`
	TopActions   []model.ActionCount `json:"top_actions"`
	Tools        int                 `json:"tools"`
	Audit        *audit.Stats        `json:"audit,omitempty"`
}

// Stats returns dashboard counters.
// GET /admin/api/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now().UTC()
	var out statsResponse
	var err error

	if out.Users, out.ActiveUsers, err = h.Store.CountUsers(ctx); err != nil {
		h.fail(w, r, err, "failed to count users")
		return
	}
	if out.Tokens, out.ActiveTokens, err = h.Store.CountTokens(ctx, now); err != nil {
		h.fail(w, r, err, "failed to count tokens")
		return
	}
	if out.Requests24h, err = h.Store.CountAuditLogsSince(ctx, now.Add(-24*time.Hour)); err != nil {
		h.fail(w, r, err, "failed to count requests")
		return
	}
	weekAgo := now.AddDate(0, 0, -7)
	if out.Requests7d, err = h.Store.CountAuditLogsSince(ctx, weekAgo); err != nil {
		h.fail(w, r, err, "failed to count requests")
		return
	}
	if out.TopActions, err = h.Store.TopActions(ctx, weekAgo, topActionsLimit); err != nil {
		h.fail(w, r, err, "failed to aggregate actions")
		return
	}
	if out.TopActions == nil {
		out.TopActions = []model.ActionCount{}
	}
	if h.Registry != nil {
		out.Tools = h.Registry.Len()
	}
	if h.Audit != nil {
		s := h.Audit.Stats()
		out.Audit = &s
	}
	writeJSON(w, http.StatusOK, out)
}

// ---------------------------------------------------------------------------
// Tool instructions
// ---------------------------------------------------------------------------

// ListToolInstructions returns every stored instruction.
// GET /admin/api/tool-instructions
func (h *AdminHandler) ListToolInstructions(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListToolInstructions(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to list tool instructions")
		return
	}
	if list == nil {
		list = []model.ToolInstruction{}
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: list,
		Meta:     &model.ResponseMeta{Count: len(list)},
	})
}

type instructionRequest struct {
	Instructions string `json:"instructions"`
}

// PutToolInstruction sets the instructions appended to a tool's description.
// Admin only.
// PUT /admin/api/tool-instructions/{tool}
func (h *AdminHandler) PutToolInstruction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "tool")
	if _, ok := h.Registry.Get(name); !ok {
		writeError(w, http.StatusNotFound, "unknown tool: "+name)
		return
	}
	var req instructionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	ti := &model.ToolInstruction{
		ToolName:     name,
		Instructions: req.Instructions,
		UpdatedBy:    actor(r).Username,
		UpdatedAt:    h.now().UTC(),
	}
	if err := h.Store.PutToolInstruction(r.Context(), ti); err != nil {
		h.fail(w, r, err, "failed to save tool instruction")
		return
	}
	h.instructionsChanged()
	h.record(r, "tool_instruction.put", http.StatusOK, map[string]interface{}{"tool": name})
	writeJSON(w, http.StatusOK, ti)
}

// DeleteToolInstruction removes a tool's instructions. Admin only.
// DELETE /admin/api/tool-instructions/{tool}
func (h *AdminHandler) DeleteToolInstruction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "tool")
	if _, ok := h.Registry.Get(name); !ok {
		writeError(w, http.StatusNotFound, "unknown tool: "+name)
		return
	}
	if err := h.Store.DeleteToolInstruction(r.Context(), name); err != nil {
		h.fail(w, r, err, "tool instruction")
		return
	}
	h.instructionsChanged()
	h.record(r, "tool_instruction.delete", http.StatusOK, map[string]interface{}{"tool": name})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "tool": name})
}

func (h *AdminHandler) instructionsChanged() {
	if h.InstructionsChanged != nil {
		h.InstructionsChanged()
	}
}
