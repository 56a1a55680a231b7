package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/audit"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

const (
	testJWTSecret = "test-secret-for-handler-tests"
	testPassword  = "supersecretpassword"
)

// memoryAudit keeps recorded entries in memory.
type memoryAudit struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

func (m *memoryAudit) Record(e *model.AuditLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

func (m *memoryAudit) Stats() audit.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return audit.Stats{Written: int64(len(m.entries))}
}

func (m *memoryAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

// adminEnv holds shared state for admin handler tests.
type adminEnv struct {
	store    *config.Store
	handler  *AdminHandler
	router   chi.Router
	audit    *memoryAudit
	admin    *model.User
	reloaded int
}

// newAdminEnv creates an in-memory store with one admin and mounts the admin
// handlers without session middleware; the acting user is injected per
// request.
func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()

	store, err := config.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := quietLogger()
	users := service.NewUserService(store, bcrypt.MinCost, logger)
	admin, err := users.Create(context.Background(), service.CreateUserInput{
		Username: "admin", Password: testPassword, Role: model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	env := &adminEnv{store: store, audit: &memoryAudit{}, admin: admin}
	env.handler = NewAdminHandler(AdminDeps{
		Store: store,
		Auth: service.NewAuthService(store, service.AuthOptions{
			JWTSecret: testJWTSecret, BcryptCost: bcrypt.MinCost, Logger: logger,
		}),
		Users:               users,
		Tokens:              service.NewTokenService(store, bcrypt.MinCost),
		Audit:               env.audit,
		Registry:            tools.Default(),
		InstructionsChanged: func() { env.reloaded++ },
		Logger:              logger,
	})

	h := env.handler
	r := chi.NewRouter()
	r.Post("/auth/login", h.Login)
	r.Get("/auth/me", h.Me)
	r.Get("/users", h.ListUsers)
	r.Post("/users", h.CreateUser)
	r.Get("/users/{id}", h.GetUser)
	r.Patch("/users/{id}", h.UpdateUser)
	r.Delete("/users/{id}", h.DeactivateUser)
	r.Post("/users/{id}/password", h.ChangePassword)
	r.Get("/tokens", h.ListTokens)
	r.Post("/tokens", h.CreateToken)
	r.Get("/tokens/{id}", h.GetToken)
	r.Patch("/tokens/{id}", h.UpdateToken)
	r.Delete("/tokens/{id}", h.RevokeToken)
	r.Post("/tokens/{id}/regenerate", h.RegenerateToken)
	r.Get("/audit-logs", h.ListAuditLogs)
	r.Delete("/audit-logs", h.PruneAuditLogs)
	r.Get("/stats", h.Stats)
	r.Get("/tool-instructions", h.ListToolInstructions)
	r.Put("/tool-instructions/{tool}", h.PutToolInstruction)
	r.Delete("/tool-instructions/{tool}", h.DeleteToolInstruction)
	env.router = r
	return env
}

// do sends a request as user (nil for anonymous).
func (e *adminEnv) do(t *testing.T, user *model.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(service.ContextWithSession(req.Context(), &service.SessionPrincipal{
			SessionID: "test-session",
			User:      user,
		}))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLogin(t *testing.T) {
	env := newAdminEnv(t)

	w := env.do(t, nil, "POST", "/auth/login", map[string]string{"username": "admin", "password": testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp loginResponse
	decodeBody(t, w, &resp)
	if resp.Token == "" || resp.TokenType != "bearer" || resp.User == nil || resp.User.Username != "admin" {
		t.Errorf("resp = %+v", resp)
	}
	if !resp.ExpiresAt.After(time.Now()) {
		t.Errorf("expires_at = %v", resp.ExpiresAt)
	}
	if strings.Contains(w.Body.String(), "password_hash") {
		t.Error("password hash leaked")
	}
	setCookie := w.Header().Get("Set-Cookie")
	if !strings.Contains(setCookie, "session=") || !strings.Contains(setCookie, "HttpOnly") {
		t.Errorf("Set-Cookie = %q", setCookie)
	}
}

func TestLoginFailureIsAudited(t *testing.T) {
	env := newAdminEnv(t)

	w := env.do(t, nil, "POST", "/auth/login", map[string]string{"username": "admin", "password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	actions := env.audit.actions()
	if len(actions) != 1 || actions[0] != "auth.login_failed" {
		t.Errorf("audit actions = %v", actions)
	}

	w = env.do(t, nil, "POST", "/auth/login", map[string]string{"username": "admin"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing password: status = %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestUserLifecycle(t *testing.T) {
	env := newAdminEnv(t)

	w := env.do(t, env.admin, "POST", "/users", map[string]string{
		"username": "agent.smith", "password": "longenoughpw", "role": model.RoleViewer, "email": "smith@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d: %s", w.Code, w.Body.String())
	}
	var u model.User
	decodeBody(t, w, &u)
	if u.ID == "" || u.Role != model.RoleViewer || !u.IsActive {
		t.Errorf("created = %+v", u)
	}

	w = env.do(t, env.admin, "POST", "/users", map[string]string{
		"username": "agent.smith", "password": "longenoughpw", "role": model.RoleViewer,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate: status = %d", w.Code)
	}

	name := "Agent Smith"
	w = env.do(t, env.admin, "PATCH", "/users/"+u.ID, map[string]*string{"display_name": &name})
	if w.Code != http.StatusOK {
		t.Fatalf("update: status = %d", w.Code)
	}
	decodeBody(t, w, &u)
	if u.DisplayName != name {
		t.Errorf("display_name = %q", u.DisplayName)
	}

	w = env.do(t, env.admin, "GET", "/users", nil)
	var list struct {
		Resource []model.User      `json:"resource"`
		Meta     model.ResponseMeta `json:"meta"`
	}
	decodeBody(t, w, &list)
	if list.Meta.Count != 2 {
		t.Errorf("count = %d", list.Meta.Count)
	}

	w = env.do(t, env.admin, "DELETE", "/users/"+u.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate: status = %d", w.Code)
	}
	w = env.do(t, env.admin, "GET", "/users/"+u.ID, nil)
	decodeBody(t, w, &u)
	if u.IsActive {
		t.Error("user still active after deactivate")
	}

	if w := env.do(t, env.admin, "GET", "/users/does-not-exist", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing user: status = %d", w.Code)
	}

	want := []string{"user.create", "user.update", "user.deactivate"}
	got := env.audit.actions()
	if len(got) != len(want) {
		t.Fatalf("audit actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("audit[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChangePassword(t *testing.T) {
	env := newAdminEnv(t)

	w := env.do(t, env.admin, "POST", "/users/"+env.admin.ID+"/password", map[string]string{
		"current_password": "wrong", "new_password": "anotherlongpassword",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("wrong current: status = %d", w.Code)
	}

	w = env.do(t, env.admin, "POST", "/users/"+env.admin.ID+"/password", map[string]string{
		"current_password": testPassword, "new_password": "anotherlongpassword",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("change: status = %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, nil, "POST", "/auth/login", map[string]string{"username": "admin", "password": "anotherlongpassword"})
	if w.Code != http.StatusOK {
		t.Errorf("login with new password: status = %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

func TestTokenLifecycle(t *testing.T) {
	env := newAdminEnv(t)

	w := env.do(t, env.admin, "POST", "/tokens", map[string]interface{}{
		"name":                  "support bot",
		"permissions":           map[string]interface{}{"contacts": map[string]bool{"read": true}},
		"rate_limit_per_minute": 30,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d: %s", w.Code, w.Body.String())
	}
	var created tokenSecretResponse
	decodeBody(t, w, &created)
	if !strings.HasPrefix(created.Plaintext, service.TokenPlaintextPrefix) || created.Warning == "" {
		t.Errorf("secret response = %+v", created)
	}
	if strings.Contains(w.Body.String(), "token_hash") {
		t.Error("hash leaked")
	}
	id := created.Token.ID

	w = env.do(t, env.admin, "GET", "/tokens/"+id, nil)
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), created.Plaintext) {
		t.Errorf("get: status = %d, body must not contain plaintext", w.Code)
	}

	w = env.do(t, env.admin, "PATCH", "/tokens/"+id, map[string]interface{}{"name": "renamed"})
	var updated model.APIToken
	decodeBody(t, w, &updated)
	if updated.Name != "renamed" || updated.RateLimitPerMinute != 30 {
		t.Errorf("updated = %+v", updated)
	}

	w = env.do(t, env.admin, "POST", "/tokens/"+id+"/regenerate", nil)
	var regen tokenSecretResponse
	decodeBody(t, w, &regen)
	if regen.Plaintext == "" || regen.Plaintext == created.Plaintext || regen.Token.ID != id {
		t.Errorf("regenerate = %+v", regen)
	}

	if w := env.do(t, env.admin, "DELETE", "/tokens/"+id, nil); w.Code != http.StatusOK {
		t.Errorf("revoke: status = %d", w.Code)
	}
	w = env.do(t, env.admin, "GET", "/tokens", nil)
	var list struct {
		Resource []model.APIToken `json:"resource"`
	}
	decodeBody(t, w, &list)
	if len(list.Resource) != 1 || list.Resource[0].IsActive {
		t.Errorf("list after revoke = %+v", list.Resource)
	}
}

func TestViewerTokensStayReadOnly(t *testing.T) {
	env := newAdminEnv(t)
	viewer, err := service.NewUserService(env.store, bcrypt.MinCost, quietLogger()).Create(context.Background(),
		service.CreateUserInput{Username: "viewer", Password: "viewer-password", Role: model.RoleViewer})
	if err != nil {
		t.Fatalf("create viewer: %v", err)
	}

	w := env.do(t, viewer, "POST", "/tokens", map[string]interface{}{
		"name": "everything", "permissions": model.FullAccess(),
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("viewer full-access token: status = %d, want 403", w.Code)
	}

	w = env.do(t, viewer, "POST", "/tokens", map[string]interface{}{
		"name": "reader", "permissions": model.Permissions{model.CategoryContacts: {Read: true}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("viewer read-only token: status = %d: %s", w.Code, w.Body.String())
	}
	var created tokenSecretResponse
	decodeBody(t, w, &created)
	id := created.Token.ID

	w = env.do(t, viewer, "PATCH", "/tokens/"+id, map[string]interface{}{
		"permissions": model.Permissions{model.CategoryAgents: {Read: true, Write: true}},
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("viewer granting write: status = %d, want 403", w.Code)
	}

	if w := env.do(t, env.admin, "DELETE", "/tokens/"+id, nil); w.Code != http.StatusOK {
		t.Fatalf("admin revoke: status = %d", w.Code)
	}
	w = env.do(t, viewer, "PATCH", "/tokens/"+id, map[string]interface{}{"is_active": true})
	if w.Code != http.StatusForbidden {
		t.Errorf("viewer reactivating: status = %d, want 403", w.Code)
	}
	tok, err := env.store.GetToken(context.Background(), id)
	if err != nil || tok.IsActive {
		t.Fatalf("token after viewer reactivation attempt = %+v, %v", tok, err)
	}

	w = env.do(t, env.admin, "PATCH", "/tokens/"+id, map[string]interface{}{"is_active": true})
	var updated model.APIToken
	decodeBody(t, w, &updated)
	if w.Code != http.StatusOK || !updated.IsActive {
		t.Errorf("admin reactivation: status = %d, active = %v", w.Code, updated.IsActive)
	}
}

func TestCreateTokenValidation(t *testing.T) {
	env := newAdminEnv(t)
	w := env.do(t, env.admin, "POST", "/tokens", map[string]interface{}{
		"name":        "bad",
		"permissions": map[string]interface{}{"spaceships": map[string]bool{"read": true}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown category: status = %d", w.Code)
	}
	if w := env.do(t, env.admin, "POST", "/tokens", "{"); w.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Audit logs, stats, tool instructions
// ---------------------------------------------------------------------------

func TestListAuditLogsPagination(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		action := "contacts.read"
		if i%2 == 1 {
			action = "contacts.write"
		}
		if err := env.store.InsertAuditLog(ctx, &model.AuditLog{
			ActorType: model.ActorToken, ActorID: "tok", Action: action,
			Method: "GET", Path: "/contacts", Status: 200,
			CreatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	w := env.do(t, env.admin, "GET", "/audit-logs?limit=2&page=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Resource []model.AuditLog  `json:"resource"`
		Meta     model.ResponseMeta `json:"meta"`
	}
	decodeBody(t, w, &resp)
	if len(resp.Resource) != 2 || resp.Meta.Total == nil || *resp.Meta.Total != 5 || resp.Meta.Page != 2 {
		t.Errorf("meta = %+v, n = %d", resp.Meta, len(resp.Resource))
	}
	if !resp.Resource[0].CreatedAt.After(resp.Resource[1].CreatedAt) {
		t.Error("entries not newest first")
	}

	w = env.do(t, env.admin, "GET", "/audit-logs?action=contacts.write", nil)
	decodeBody(t, w, &resp)
	if len(resp.Resource) != 2 {
		t.Errorf("action filter returned %d", len(resp.Resource))
	}

	w = env.do(t, env.admin, "GET", "/audit-logs?from_date=2024-05-02&to_date=2024-05-03", nil)
	decodeBody(t, w, &resp)
	if len(resp.Resource) != 2 {
		t.Errorf("date filter returned %d", len(resp.Resource))
	}

	w = env.do(t, env.admin, "GET", "/audit-logs?limit=100000", nil)
	decodeBody(t, w, &resp)
	if resp.Meta.Limit != maxAuditPageSize {
		t.Errorf("limit = %d, want clamp to %d", resp.Meta.Limit, maxAuditPageSize)
	}
}

func TestPruneAuditLogs(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()
	old := time.Now().UTC().AddDate(0, 0, -40)
	env.store.InsertAuditLog(ctx, &model.AuditLog{ActorType: model.ActorToken, Action: "old", CreatedAt: old})
	env.store.InsertAuditLog(ctx, &model.AuditLog{ActorType: model.ActorToken, Action: "new"})

	for _, q := range []string{"", "?older_than_days=0", "?older_than_days=abc"} {
		if w := env.do(t, env.admin, "DELETE", "/audit-logs"+q, nil); w.Code != http.StatusBadRequest {
			t.Errorf("DELETE /audit-logs%s: status = %d", q, w.Code)
		}
	}

	w := env.do(t, env.admin, "DELETE", "/audit-logs?older_than_days=30", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	decodeBody(t, w, &resp)
	if resp.Deleted != 1 {
		t.Errorf("deleted = %d", resp.Deleted)
	}
}

func TestStats(t *testing.T) {
	env := newAdminEnv(t)
	env.store.InsertAuditLog(context.Background(), &model.AuditLog{ActorType: model.ActorToken, Action: "contacts.read"})
	env.do(t, env.admin, "POST", "/tokens", map[string]interface{}{"name": "t", "permissions": map[string]interface{}{}})

	w := env.do(t, env.admin, "GET", "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var s statsResponse
	decodeBody(t, w, &s)
	if s.Users != 1 || s.ActiveUsers != 1 || s.Tokens != 1 || s.Requests24h != 1 || s.Requests7d != 1 {
		t.Errorf("stats = %+v", s)
	}
	if len(s.TopActions) != 1 || s.TopActions[0].Action != "contacts.read" {
		t.Errorf("top actions = %+v", s.TopActions)
	}
	if s.Tools != tools.Default().Len() || s.Audit == nil {
		t.Errorf("tools = %d, audit = %v", s.Tools, s.Audit)
	}
}

func TestToolInstructionsHandlers(t *testing.T) {
	env := newAdminEnv(t)

	w := env.do(t, env.admin, "PUT", "/tool-instructions/send_message", map[string]string{"instructions": "Always sign off politely."})
	if w.Code != http.StatusOK {
		t.Fatalf("put: status = %d: %s", w.Code, w.Body.String())
	}
	var ti model.ToolInstruction
	decodeBody(t, w, &ti)
	if ti.ToolName != "send_message" || ti.UpdatedBy != "admin" {
		t.Errorf("instruction = %+v", ti)
	}
	if env.reloaded != 1 {
		t.Errorf("reloaded = %d", env.reloaded)
	}

	w = env.do(t, env.admin, "GET", "/tool-instructions", nil)
	var list struct {
		Resource []model.ToolInstruction `json:"resource"`
	}
	decodeBody(t, w, &list)
	if len(list.Resource) != 1 || list.Resource[0].Instructions != "Always sign off politely." {
		t.Errorf("list = %+v", list.Resource)
	}

	if w := env.do(t, env.admin, "PUT", "/tool-instructions/teleport", map[string]string{"instructions": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown tool put: status = %d", w.Code)
	}
	if w := env.do(t, env.admin, "DELETE", "/tool-instructions/teleport", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown tool delete: status = %d", w.Code)
	}

	if w := env.do(t, env.admin, "DELETE", "/tool-instructions/send_message", nil); w.Code != http.StatusOK {
		t.Errorf("delete: status = %d", w.Code)
	}
	if env.reloaded != 2 {
		t.Errorf("reloaded = %d", env.reloaded)
	}
	if w := env.do(t, env.admin, "DELETE", "/tool-instructions/send_message", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d", w.Code)
	}
}
