package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level chatwoot-mcp configuration file.
// The mapstructure tags let viper decode the merged file/env settings into
// the same struct.
type YAMLConfig struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Chatwoot ChatwootConfig `yaml:"chatwoot" mapstructure:"chatwoot"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Gateway  GatewayConfig  `yaml:"gateway" mapstructure:"gateway"`
	Audit    AuditConfig    `yaml:"audit" mapstructure:"audit"`
	MCP      MCPConfig      `yaml:"mcp" mapstructure:"mcp"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string    `yaml:"host" mapstructure:"host"`
	Port            int       `yaml:"port" mapstructure:"port"`
	MaxBodySize     string    `yaml:"max_body_size" mapstructure:"max_body_size"`
	ShutdownTimeout string    `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORSOrigins     []string  `yaml:"cors_origins" mapstructure:"cors_origins"`
	TLS             TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// TLSConfig controls TLS termination at the server level.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`
}

// ChatwootConfig points the gateway at a Chatwoot installation.
type ChatwootConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	APIToken      string `yaml:"api_token" mapstructure:"api_token"`
	PlatformToken string `yaml:"platform_token" mapstructure:"platform_token"`
	AccountID     int    `yaml:"account_id" mapstructure:"account_id"`
	Timeout       string `yaml:"timeout" mapstructure:"timeout"`
}

// AuthConfig controls authentication settings.
type AuthConfig struct {
	LegacyAPIKey string `yaml:"legacy_api_key" mapstructure:"legacy_api_key"`
	JWTSecret    string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	SessionTTL   string `yaml:"session_ttl" mapstructure:"session_ttl"`
	APIKeyHeader string `yaml:"api_key_header" mapstructure:"api_key_header"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver  string `yaml:"driver" mapstructure:"driver"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
}

// GatewayConfig controls per-request limits on the gateway.
type GatewayConfig struct {
	RateLimitPerMinute    int  `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	EnforceTokenRateLimit bool `yaml:"enforce_token_rate_limit" mapstructure:"enforce_token_rate_limit"`
	MaxRateLimitKeys      int  `yaml:"max_rate_limit_keys" mapstructure:"max_rate_limit_keys"`
}

// AuditConfig controls the asynchronous audit recorder.
type AuditConfig struct {
	QueueSize     int    `yaml:"queue_size" mapstructure:"queue_size"`
	WriteTimeout  string `yaml:"write_timeout" mapstructure:"write_timeout"`
	RetentionDays int    `yaml:"retention_days" mapstructure:"retention_days"`
}

// MCPConfig controls the MCP (Model Context Protocol) server.
type MCPConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Transport string `yaml:"transport" mapstructure:"transport"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before parsing.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	content, err := ReadExpanded(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ReadExpanded returns the contents of a config file with ${VAR_NAME}
// references expanded.
func ReadExpanded(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return []byte(os.ExpandEnv(string(data))), nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			MaxBodySize:     "10MB",
			ShutdownTimeout: "30s",
			CORSOrigins:     []string{"*"},
		},
		Chatwoot: ChatwootConfig{
			BaseURL: "http://localhost:3000",
			Timeout: "30s",
		},
		Auth: AuthConfig{
			SessionTTL:   "24h",
			APIKeyHeader: "X-API-Key",
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
		},
		Gateway: GatewayConfig{
			RateLimitPerMinute: 100,
			MaxRateLimitKeys:   100000,
		},
		Audit: AuditConfig{
			QueueSize:     1024,
			WriteTimeout:  "5s",
			RetentionDays: 90,
		},
		MCP: MCPConfig{
			Enabled:   true,
			Transport: "stdio",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	cfg := DefaultYAMLConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Masked returns a copy of the configuration with secrets replaced, suitable
// for printing.
func (c YAMLConfig) Masked() YAMLConfig {
	c.Chatwoot.APIToken = maskSecret(c.Chatwoot.APIToken)
	c.Chatwoot.PlatformToken = maskSecret(c.Chatwoot.PlatformToken)
	c.Auth.LegacyAPIKey = maskSecret(c.Auth.LegacyAPIKey)
	c.Auth.JWTSecret = maskSecret(c.Auth.JWTSecret)
	if c.Store.DSN != "" {
		c.Store.DSN = "********"
	}
	c.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	return c
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + strings.Repeat("*", 8)
}

// Validate checks the settings the gateway cannot run without.
func (c *YAMLConfig) Validate() error {
	var problems []string
	if c.Chatwoot.BaseURL == "" {
		problems = append(problems, "chatwoot.base_url is required")
	}
	if c.Chatwoot.AccountID < 0 {
		problems = append(problems, "chatwoot.account_id must be positive")
	}
	if c.Gateway.RateLimitPerMinute <= 0 {
		problems = append(problems, "gateway.rate_limit_per_minute must be positive")
	}
	if c.Audit.QueueSize <= 0 {
		problems = append(problems, "audit.queue_size must be positive")
	}
	switch c.Store.Driver {
	case "", DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	for name, v := range map[string]string{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"chatwoot.timeout":        c.Chatwoot.Timeout,
		"auth.session_ttl":        c.Auth.SessionTTL,
		"audit.write_timeout":     c.Audit.WriteTimeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			problems = append(problems, fmt.Sprintf("%s: invalid duration %q", name, v))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Duration parses a duration setting, falling back to def when the value is
// empty or malformed.
func Duration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// ByteSize parses sizes such as "10MB", "512KB" or "1048576". Malformed or
// empty values return def.
func ByteSize(v string, def int64) int64 {
	s := strings.ToUpper(strings.TrimSpace(v))
	if s == "" {
		return def
	}
	mult := int64(1)
	for _, u := range []struct {
		suffix string
		mult   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return def
	}
	return n * mult
}
