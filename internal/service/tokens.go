package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

// TokenPlaintextPrefix starts every issued API token.
const TokenPlaintextPrefix = "mcp_"

const tokenRandomBytes = 24

var (
	// ErrInvalidInput wraps every validation failure of a create or update
	// request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when the acting user may not touch a resource.
	ErrForbidden = errors.New("forbidden")
)

// GenerateToken returns a fresh plaintext token and its lookup prefix.
func GenerateToken() (plaintext, prefix string, err error) {
	b := make([]byte, tokenRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	plaintext = TokenPlaintextPrefix + hex.EncodeToString(b)
	return plaintext, plaintext[:model.TokenPrefixLength], nil
}

// CreateTokenInput describes a new API token.
type CreateTokenInput struct {
	Name               string            `json:"name"`
	Permissions        model.Permissions `json:"permissions"`
	RateLimitPerMinute int               `json:"rate_limit_per_minute"`
	ExpiresAt          *time.Time        `json:"expires_at"`
}

// UpdateTokenInput carries the fields to change; nil fields are left alone.
type UpdateTokenInput struct {
	Name               *string            `json:"name"`
	Permissions        *model.Permissions `json:"permissions"`
	RateLimitPerMinute *int               `json:"rate_limit_per_minute"`
	ExpiresAt          *time.Time         `json:"expires_at"`
	ClearExpiry        bool               `json:"clear_expiry"`
	IsActive           *bool              `json:"is_active"`
}

// TokenService manages the API token lifecycle on behalf of admin users.
type TokenService struct {
	store *config.Store
	cost  int
	now   func() time.Time
}

func NewTokenService(store *config.Store, bcryptCost int) *TokenService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &TokenService{store: store, cost: bcryptCost, now: time.Now}
}

// Create issues a new token owned by actor. The plaintext is returned once and
// never stored.
func (s *TokenService) Create(ctx context.Context, actor *model.User, in CreateTokenInput) (*model.APIToken, string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := in.Permissions.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := checkGrant(actor, in.Permissions); err != nil {
		return nil, "", err
	}
	limit := in.RateLimitPerMinute
	if limit == 0 {
		limit = model.DefaultTokenRateLimit
	}
	if limit < 0 {
		return nil, "", fmt.Errorf("%w: rate_limit_per_minute must be positive", ErrInvalidInput)
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return nil, "", fmt.Errorf("%w: expires_at must be in the future", ErrInvalidInput)
	}

	plaintext, prefix, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash token: %w", err)
	}

	perms := in.Permissions
	if perms == nil {
		perms = model.Permissions{}
	}
	tok := &model.APIToken{
		UserID:             actor.ID,
		Name:               name,
		TokenHash:          string(hash),
		TokenPrefix:        prefix,
		Permissions:        perms,
		RateLimitPerMinute: limit,
		IsActive:           true,
		ExpiresAt:          in.ExpiresAt,
	}
	if err := s.store.CreateToken(ctx, tok); err != nil {
		return nil, "", err
	}
	return tok, plaintext, nil
}

// checkGrant limits non-admin users to read-only tokens.
func checkGrant(actor *model.User, p model.Permissions) error {
	if actor.IsAdmin() || p.ReadOnly() {
		return nil
	}
	return fmt.Errorf("%w: only admins can grant write or delete permissions", ErrForbidden)
}

// List returns the tokens visible to actor: all of them for admins, only
// their own otherwise.
func (s *TokenService) List(ctx context.Context, actor *model.User) ([]model.APIToken, error) {
	if actor.IsAdmin() {
		return s.store.ListTokens(ctx, "")
	}
	return s.store.ListTokens(ctx, actor.ID)
}

// Get returns a token if actor may see it. Tokens owned by someone else are
// reported as not found to non-admins.
func (s *TokenService) Get(ctx context.Context, actor *model.User, id string) (*model.APIToken, error) {
	tok, err := s.store.GetToken(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && tok.UserID != actor.ID {
		return nil, config.ErrNotFound
	}
	return tok, nil
}

// Update applies in to a token. Only admins and the owner may update.
func (s *TokenService) Update(ctx context.Context, actor *model.User, id string, in UpdateTokenInput) (*model.APIToken, error) {
	tok, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		tok.Name = name
	}
	if in.Permissions != nil {
		if err := in.Permissions.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if err := checkGrant(actor, *in.Permissions); err != nil {
			return nil, err
		}
		tok.Permissions = *in.Permissions
	}
	if in.RateLimitPerMinute != nil {
		if *in.RateLimitPerMinute <= 0 {
			return nil, fmt.Errorf("%w: rate_limit_per_minute must be positive", ErrInvalidInput)
		}
		tok.RateLimitPerMinute = *in.RateLimitPerMinute
	}
	switch {
	case in.ClearExpiry:
		tok.ExpiresAt = nil
	case in.ExpiresAt != nil:
		tok.ExpiresAt = in.ExpiresAt
	}
	if in.IsActive != nil && *in.IsActive != tok.IsActive {
		// Revocation is final unless an admin reverses it.
		if *in.IsActive && !actor.IsAdmin() {
			return nil, fmt.Errorf("%w: only admins can reactivate a token", ErrForbidden)
		}
		tok.IsActive = *in.IsActive
	}

	if err := s.store.UpdateToken(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Regenerate rotates the secret of a token. The id, name, permissions and
// limits are kept; the previous plaintext stops working immediately.
func (s *TokenService) Regenerate(ctx context.Context, actor *model.User, id string) (*model.APIToken, string, error) {
	tok, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}

	plaintext, prefix, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash token: %w", err)
	}
	if err := s.store.ReplaceTokenSecret(ctx, tok.ID, string(hash), prefix); err != nil {
		return nil, "", err
	}

	tok.TokenHash = string(hash)
	tok.TokenPrefix = prefix
	tok.UpdatedAt = s.now().UTC()
	return tok, plaintext, nil
}

// Revoke deactivates a token. The row is kept so audit entries still resolve.
func (s *TokenService) Revoke(ctx context.Context, actor *model.User, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	return s.store.RevokeToken(ctx, id)
}
