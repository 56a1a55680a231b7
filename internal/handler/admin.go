package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/audit"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/server/middleware"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

// AuditRecorder queues audit entries and reports its counters.
// *audit.Recorder satisfies it.
type AuditRecorder interface {
	Record(e *model.AuditLog)
	Stats() audit.Stats
}

// AdminDeps wires an AdminHandler.
type AdminDeps struct {
	Store    *config.Store
	Auth     *service.AuthService
	Users    *service.UserService
	Tokens   *service.TokenService
	Audit    AuditRecorder
	Registry *tools.Registry

	// InstructionsChanged runs after a tool instruction is written or
	// removed, e.g. to refresh MCP tool descriptions.
	InstructionsChanged func()

	SecureCookies bool
	Logger        *slog.Logger
}

// AdminHandler serves the admin JSON API: sessions, users, API tokens, audit
// logs, dashboard stats and tool instructions.
type AdminHandler struct {
	AdminDeps
	now func() time.Time
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &AdminHandler{AdminDeps: deps, now: time.Now}
}

func actor(r *http.Request) *model.User {
	if p := service.SessionFromContext(r.Context()); p != nil {
		return p.User
	}
	return nil
}

// record enqueues an audit entry for an admin action taken by the session
// user, or by target when the actor is not yet known (login).
func (h *AdminHandler) record(r *http.Request, action string, status int, metadata map[string]interface{}) {
	if h.Audit == nil {
		return
	}
	e := &model.AuditLog{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ActorType: model.ActorUser,
		Action:    action,
		Method:    r.Method,
		Path:      r.URL.Path,
		Status:    status,
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		RequestID: middleware.GetRequestID(r.Context()),
		Metadata:  metadata,
	}
	if u := actor(r); u != nil {
		e.ActorID = u.ID
	} else if id, ok := metadata["user_id"].(string); ok {
		e.ActorID = id
	}
	h.Audit.Record(e)
}

// fail writes the error response for err, logging unexpected failures.
func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status, text := classifyError(err, msg)
	if status == http.StatusInternalServerError {
		h.Logger.Error(msg, "error", err, "request_id", middleware.GetRequestID(r.Context()))
	}
	writeError(w, status, text)
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Login authenticates a user and opens a session. The credential is returned
// in the body and set as an HttpOnly cookie.
// POST /admin/api/auth/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, user, err := h.Auth.Login(r.Context(), req.Username, req.Password, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.record(r, "auth.login_failed", http.StatusUnauthorized, map[string]interface{}{"username": req.Username})
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.fail(w, r, err, "login failed")
		return
	}

	expires := h.now().Add(h.Auth.SessionTTL()).UTC()
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	h.record(r, "auth.login", http.StatusOK, map[string]interface{}{"user_id": user.ID})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: expires,
		User:      user,
	})
}

// Logout ends the current session and clears the cookie.
// POST /admin/api/auth/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p := service.SessionFromContext(r.Context())
	if err := h.Auth.Logout(r.Context(), p.SessionID); err != nil {
		h.fail(w, r, err, "logout failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	h.record(r, "auth.logout", http.StatusOK, nil)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Me returns the current user.
// GET /admin/api/auth/me
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actor(r))
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// ListUsers returns all users.
// GET /admin/api/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: users,
		Meta:     &model.ResponseMeta{Count: len(users)},
	})
}

// CreateUser adds a user. Admin only.
// POST /admin/api/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in service.CreateUserInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	u, err := h.Users.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "failed to create user")
		return
	}
	h.record(r, "user.create", http.StatusCreated, map[string]interface{}{"target_id": u.ID, "username": u.Username, "role": u.Role})
	writeJSON(w, http.StatusCreated, u)
}

// GetUser returns one user.
// GET /admin/api/users/{id}
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateUser changes a user's profile, role or active flag. Admin only.
// PATCH /admin/api/users/{id}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateUserInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	u, err := h.Users.Update(r.Context(), actor(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err, "user")
		return
	}
	h.record(r, "user.update", http.StatusOK, map[string]interface{}{"target_id": u.ID})
	writeJSON(w, http.StatusOK, u)
}

// DeactivateUser disables a user and ends their sessions. Admin only.
// DELETE /admin/api/users/{id}
func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Users.Deactivate(r.Context(), actor(r), id); err != nil {
		h.fail(w, r, err, "user")
		return
	}
	h.record(r, "user.deactivate", http.StatusOK, map[string]interface{}{"target_id": id})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id})
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword sets a user's password. Users may change their own with the
// current password; admins may change anyone's.
// POST /admin/api/users/{id}/password
func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	err := h.Users.ChangePassword(r.Context(), actor(r), id, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeError(w, http.StatusBadRequest, "current password is incorrect")
		return
	}
	if err != nil {
		h.fail(w, r, err, "user")
		return
	}
	h.record(r, "user.password_change", http.StatusOK, map[string]interface{}{"target_id": id})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
