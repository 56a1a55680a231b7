package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/chatwoot"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
)

// defaultDataDir returns ~/.chatwoot-mcp, or a relative directory when the
// home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatwoot-mcp"
	}
	return filepath.Join(home, ".chatwoot-mcp")
}

// newLogger builds the process logger. Logs go to w so that stdout stays
// clean for the stdio MCP transport.
func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStore opens the configured token store and runs migrations.
func openStore(cfg *config.YAMLConfig) (*config.Store, error) {
	store, err := config.OpenStore(config.StoreOptions{
		Driver:  cfg.Store.Driver,
		DSN:     cfg.Store.DSN,
		DataDir: cfg.Store.DataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

func newChatwootClient(cfg *config.YAMLConfig, logger *slog.Logger) (*chatwoot.Client, error) {
	client, err := chatwoot.NewClient(chatwoot.Config{
		BaseURL:       cfg.Chatwoot.BaseURL,
		APIToken:      cfg.Chatwoot.APIToken,
		PlatformToken: cfg.Chatwoot.PlatformToken,
		Timeout:       config.Duration(cfg.Chatwoot.Timeout, 30*time.Second),
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("chatwoot client: %w", err)
	}
	return client, nil
}

// jwtSecret returns the configured session signing secret. Without one, a
// random per-process secret is used and sessions do not survive restarts.
func jwtSecret(cfg *config.YAMLConfig, logger *slog.Logger) (string, error) {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret, nil
	}
	secret, _, err := service.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	logger.Warn("auth.jwt_secret is not set; admin sessions will not survive a restart")
	return secret, nil
}

func newAuthService(cfg *config.YAMLConfig, store *config.Store, logger *slog.Logger) (*service.AuthService, error) {
	secret, err := jwtSecret(cfg, logger)
	if err != nil {
		return nil, err
	}
	return service.NewAuthService(store, service.AuthOptions{
		JWTSecret:    secret,
		LegacyAPIKey: cfg.Auth.LegacyAPIKey,
		SessionTTL:   config.Duration(cfg.Auth.SessionTTL, service.DefaultSessionTTL),
		Logger:       logger,
	}), nil
}

// cliActor is the identity the CLI acts as. It has the admin role so that it
// may manage any user or token.
var cliActor = &model.User{ID: "cli", Username: "cli", Role: model.RoleAdmin, IsActive: true}

// parsePermissions parses grants such as "contacts:read,write" or
// "reports:read". The special value "all" grants everything.
func parsePermissions(specs []string) (model.Permissions, error) {
	perms := model.Permissions{}
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if spec == "all" {
			return model.FullAccess(), nil
		}
		cat, actions, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid permission %q: want category:action[,action]", spec)
		}
		c := model.Category(cat)
		if !c.Valid() {
			return nil, fmt.Errorf("unknown permission category %q", cat)
		}
		access := perms[c]
		for _, a := range strings.Split(actions, ",") {
			switch model.Action(strings.TrimSpace(a)) {
			case model.ActionRead:
				access.Read = true
			case model.ActionWrite:
				access.Write = true
			case model.ActionDelete:
				access.Delete = true
			default:
				return nil, fmt.Errorf("unknown action %q in %q", a, spec)
			}
		}
		perms[c] = access
	}
	return perms, nil
}

// formatPermissions renders a permission set compactly for tables.
func formatPermissions(p model.Permissions) string {
	var parts []string
	for _, c := range p.Granted() {
		a := p[c]
		var acts []string
		if a.Read {
			acts = append(acts, "r")
		}
		if a.Write {
			acts = append(acts, "w")
		}
		if a.Delete {
			acts = append(acts, "d")
		}
		parts = append(parts, string(c)+":"+strings.Join(acts, ""))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

// printPlaintext shows a freshly issued token with the one-time warning.
func printPlaintext(w io.Writer, tok *model.APIToken, plaintext string) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow, color.Bold)

	green.Fprintf(w, "Token %q issued\n", tok.Name)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  ID:          %s\n", tok.ID)
	fmt.Fprintf(w, "  Token:       %s\n", plaintext)
	fmt.Fprintf(w, "  Permissions: %s\n", formatPermissions(tok.Permissions))
	fmt.Fprintf(w, "  Rate limit:  %d/min\n", tok.RateLimitPerMinute)
	if tok.ExpiresAt != nil {
		fmt.Fprintf(w, "  Expires:     %s\n", tok.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Fprintln(w)
	yellow.Fprintln(w, "  Save this token now. It cannot be shown again.")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
