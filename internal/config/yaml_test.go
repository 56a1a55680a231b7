package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadYAMLConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_CHATWOOT_TOKEN", "secret-access-token")

	path := filepath.Join(t.TempDir(), "chatwoot-mcp.yaml")
	content := `
chatwoot:
  base_url: https://chat.example.com
  api_token: ${TEST_CHATWOOT_TOKEN}
  account_id: 7
gateway:
  enforce_token_rate_limit: true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Chatwoot.APIToken != "secret-access-token" {
		t.Errorf("api_token = %q", cfg.Chatwoot.APIToken)
	}
	if cfg.Chatwoot.AccountID != 7 {
		t.Errorf("account_id = %d, want 7", cfg.Chatwoot.AccountID)
	}
	if !cfg.Gateway.EnforceTokenRateLimit {
		t.Error("enforce_token_rate_limit should be true")
	}
	// Unset keys keep their defaults.
	if cfg.Gateway.RateLimitPerMinute != 100 {
		t.Errorf("rate_limit_per_minute = %d, want default 100", cfg.Gateway.RateLimitPerMinute)
	}
	if cfg.Audit.QueueSize != 1024 {
		t.Errorf("queue_size = %d, want default 1024", cfg.Audit.QueueSize)
	}
}

func TestWriteDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatwoot-mcp.yaml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultYAMLConfig()
	cfg.Store.Driver = "oracle"
	cfg.Chatwoot.Timeout = "soon"
	cfg.Gateway.RateLimitPerMinute = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"store.driver", "chatwoot.timeout", "rate_limit_per_minute"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestMaskedHidesSecrets(t *testing.T) {
	cfg := DefaultYAMLConfig()
	cfg.Chatwoot.APIToken = "abcdefghijklmnop"
	cfg.Auth.LegacyAPIKey = "short"
	cfg.Store.DSN = "postgres://user:pass@db/mcp"

	m := cfg.Masked()
	if m.Chatwoot.APIToken != "abcd********" {
		t.Errorf("api_token masked as %q", m.Chatwoot.APIToken)
	}
	if m.Auth.LegacyAPIKey != "********" {
		t.Errorf("legacy key masked as %q", m.Auth.LegacyAPIKey)
	}
	if strings.Contains(m.Store.DSN, "pass") {
		t.Errorf("dsn not masked: %q", m.Store.DSN)
	}
	if cfg.Chatwoot.APIToken != "abcdefghijklmnop" {
		t.Error("Masked must not modify the original")
	}
}

func TestDurationAndByteSize(t *testing.T) {
	if got := Duration("5s", time.Minute); got != 5*time.Second {
		t.Errorf("Duration(5s) = %v", got)
	}
	if got := Duration("bogus", time.Minute); got != time.Minute {
		t.Errorf("Duration(bogus) = %v, want fallback", got)
	}

	tests := []struct {
		in   string
		want int64
	}{
		{"10MB", 10 << 20},
		{"512kb", 512 << 10},
		{"2048", 2048},
		{"", 99},
		{"lots", 99},
	}
	for _, tt := range tests {
		if got := ByteSize(tt.in, 99); got != tt.want {
			t.Errorf("ByteSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
