package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
)

// tokenSecretResponse is returned by create and regenerate, the only two
// places a plaintext token ever leaves the service.
type tokenSecretResponse struct {
	Token     *model.APIToken `json:"token"`
	Plaintext string          `json:"plaintext"`
	Warning   string          `json:"warning"`
}

const plaintextWarning = "Store this token now. It cannot be shown again."

// ListTokens returns the caller's tokens, or every token for admins.
// GET /admin/api/tokens
func (h *AdminHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tokens.List(r.Context(), actor(r))
	if err != nil {
		h.fail(w, r, err, "failed to list tokens")
		return
	}
	if list == nil {
		list = []model.APIToken{}
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: list,
		Meta:     &model.ResponseMeta{Count: len(list)},
	})
}

// CreateToken issues a token owned by the caller.
// POST /admin/api/tokens
func (h *AdminHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTokenInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	tok, plaintext, err := h.Tokens.Create(r.Context(), actor(r), in)
	if err != nil {
		h.fail(w, r, err, "failed to create token")
		return
	}
	h.record(r, "token.create", http.StatusCreated, map[string]interface{}{
		"token_id":    tok.ID,
		"name":        tok.Name,
		"categories":  tok.Permissions.Granted(),
		"rate_limit":  tok.RateLimitPerMinute,
		"has_expires": tok.ExpiresAt != nil,
	})
	writeJSON(w, http.StatusCreated, tokenSecretResponse{Token: tok, Plaintext: plaintext, Warning: plaintextWarning})
}

// GetToken returns one token. Other users' tokens are 404 for non-admins.
// GET /admin/api/tokens/{id}
func (h *AdminHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	tok, err := h.Tokens.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "token")
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// UpdateToken changes name, permissions, rate limit, expiry or active flag.
// PATCH /admin/api/tokens/{id}
func (h *AdminHandler) UpdateToken(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateTokenInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	tok, err := h.Tokens.Update(r.Context(), actor(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err, "token")
		return
	}
	h.record(r, "token.update", http.StatusOK, map[string]interface{}{"token_id": tok.ID})
	writeJSON(w, http.StatusOK, tok)
}

// RevokeToken deactivates a token.
// DELETE /admin/api/tokens/{id}
func (h *AdminHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Tokens.Revoke(r.Context(), actor(r), id); err != nil {
		h.fail(w, r, err, "token")
		return
	}
	h.record(r, "token.revoke", http.StatusOK, map[string]interface{}{"token_id": id})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id})
}

// RegenerateToken rotates a token's secret and returns the new plaintext.
// POST /admin/api/tokens/{id}/regenerate
func (h *AdminHandler) RegenerateToken(w http.ResponseWriter, r *http.Request) {
	tok, plaintext, err := h.Tokens.Regenerate(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "token")
		return
	}
	h.record(r, "token.regenerate", http.StatusOK, map[string]interface{}{"token_id": tok.ID})
	writeJSON(w, http.StatusOK, tokenSecretResponse{Token: tok, Plaintext: plaintext, Warning: plaintextWarning})
}
