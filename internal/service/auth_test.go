package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

const testLegacyKey = "legacy-shared-secret-0123456789"

type testEnv struct {
	store  *config.Store
	auth   *AuthService
	tokens *TokenService
	users  *UserService
	admin  *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		store: store,
		auth: NewAuthService(store, AuthOptions{
			JWTSecret:    "test-secret-key-for-jwt",
			LegacyAPIKey: testLegacyKey,
			BcryptCost:   bcrypt.MinCost,
		}),
		tokens: NewTokenService(store, bcrypt.MinCost),
		users:  NewUserService(store, bcrypt.MinCost, nil),
	}

	admin, err := env.users.Create(context.Background(), CreateUserInput{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "correct-horse",
		Role:     model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	env.admin = admin
	return env
}

func (e *testEnv) createToken(t *testing.T, perms model.Permissions) (*model.APIToken, string) {
	t.Helper()
	tok, plaintext, err := e.tokens.Create(context.Background(), e.admin, CreateTokenInput{
		Name:        "test",
		Permissions: perms,
	})
	if err != nil {
		t.Fatalf("Create token: %v", err)
	}
	return tok, plaintext
}

func TestGenerateTokenFormat(t *testing.T) {
	plaintext, prefix, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if len(plaintext) != len(TokenPlaintextPrefix)+48 {
		t.Errorf("plaintext length = %d, want %d", len(plaintext), len(TokenPlaintextPrefix)+48)
	}
	if plaintext[:4] != "mcp_" {
		t.Errorf("plaintext %q should start with mcp_", plaintext)
	}
	if prefix != plaintext[:8] {
		t.Errorf("prefix = %q, want %q", prefix, plaintext[:8])
	}

	other, _, _ := GenerateToken()
	if other == plaintext {
		t.Error("two generated tokens should differ")
	}
}

func TestValidateTokenLegacyKey(t *testing.T) {
	env := newTestEnv(t)

	p, err := env.auth.ValidateToken(context.Background(), testLegacyKey)
	if err != nil {
		t.Fatalf("ValidateToken(legacy): %v", err)
	}
	if !p.Legacy {
		t.Error("expected legacy principal")
	}
	if p.RateLimitPerMinute != LegacyRateLimit {
		t.Errorf("rate limit = %d, want %d", p.RateLimitPerMinute, LegacyRateLimit)
	}
	for _, c := range model.Categories {
		if !p.Permissions.Allows(c, model.ActionDelete) {
			t.Errorf("legacy key should allow delete on %s", c)
		}
	}
}

func TestValidateTokenIssued(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tok, plaintext := env.createToken(t, model.Permissions{model.CategoryContacts: {Read: true}})

	p, err := env.auth.ValidateToken(ctx, plaintext)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if p.TokenID != tok.ID || p.UserID != env.admin.ID || p.Legacy {
		t.Errorf("principal = %+v", p)
	}
	if !p.Permissions.Allows(model.CategoryContacts, model.ActionRead) {
		t.Error("expected contacts read")
	}
	if p.Permissions.Allows(model.CategoryContacts, model.ActionWrite) {
		t.Error("contacts write should not be granted")
	}
	if p.RateLimitPerMinute != model.DefaultTokenRateLimit {
		t.Errorf("rate limit = %d, want default", p.RateLimitPerMinute)
	}
}

func TestValidateTokenFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expired, expiredPlain := env.createToken(t, nil)
	past := time.Now().Add(-time.Minute)
	expired.ExpiresAt = &past
	if err := env.store.UpdateToken(ctx, expired); err != nil {
		t.Fatalf("UpdateToken: %v", err)
	}

	revoked, revokedPlain := env.createToken(t, nil)
	if err := env.tokens.Revoke(ctx, env.admin, revoked.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	_, valid := env.createToken(t, nil)
	wrongSuffix := valid[:len(valid)-1] + "x"

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"short", "mcp_"},
		{"unknown", "mcp_ffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"wrong suffix", wrongSuffix},
		{"expired", expiredPlain},
		{"revoked", revokedPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.ValidateToken(ctx, tt.plaintext)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
			if err != nil && err.Error() != "invalid or expired token" {
				t.Errorf("message = %q", err.Error())
			}
		})
	}
}

func TestValidateTokenSharedPrefix(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	plainA := "mcp_abcd" + "1111111111111111111111111111111111111111111111"
	plainB := "mcp_abcd" + "2222222222222222222222222222222222222222222222"
	ids := map[string]string{}
	for _, plain := range []string{plainA, plainB} {
		hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
		if err != nil {
			t.Fatal(err)
		}
		tok := &model.APIToken{
			UserID:      env.admin.ID,
			Name:        plain[len(plain)-1:],
			TokenHash:   string(hash),
			TokenPrefix: plain[:8],
			IsActive:    true,
		}
		if err := env.store.CreateToken(ctx, tok); err != nil {
			t.Fatalf("CreateToken: %v", err)
		}
		ids[plain] = tok.ID
	}

	for _, plain := range []string{plainA, plainB} {
		p, err := env.auth.ValidateToken(ctx, plain)
		if err != nil {
			t.Fatalf("ValidateToken: %v", err)
		}
		if p.TokenID != ids[plain] {
			t.Errorf("matched token %s, want %s", p.TokenID, ids[plain])
		}
	}
}

func TestValidateTokenUpdatesLastUsed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tok, plaintext := env.createToken(t, nil)

	if _, err := env.auth.ValidateToken(ctx, plaintext); err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := env.store.GetToken(ctx, tok.ID)
		if err == nil && got.LastUsedAt != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("last_used_at was not updated")
}

func TestLoginAndSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, user, err := env.auth.Login(ctx, "admin", "correct-horse", "10.0.0.1", "test")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != env.admin.ID || user.LastLoginAt == nil {
		t.Errorf("Login user = %+v", user)
	}

	p, err := env.auth.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if p.User.Username != "admin" {
		t.Errorf("session user = %q", p.User.Username)
	}

	if err := env.auth.Logout(ctx, p.SessionID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := env.auth.ValidateSession(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("after logout err = %v, want ErrInvalidSession", err)
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	viewer, err := env.users.Create(ctx, CreateUserInput{Username: "viewer", Password: "viewer-pass"})
	if err != nil {
		t.Fatalf("create viewer: %v", err)
	}
	if err := env.users.Deactivate(ctx, env.admin, viewer.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	tests := []struct {
		name, username, password string
	}{
		{"wrong password", "admin", "nope-nope"},
		{"unknown user", "ghost", "whatever1"},
		{"inactive user", "viewer", "viewer-pass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.auth.Login(ctx, tt.username, tt.password, "", "")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestValidateSessionRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.auth.ValidateSession(context.Background(), "garbage.token.here"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
}

func TestValidateSessionExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, _, err := env.auth.Login(ctx, "admin", "correct-horse", "", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	env.auth.now = func() time.Time { return time.Now().Add(DefaultSessionTTL + time.Minute) }
	if _, err := env.auth.ValidateSession(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
}
