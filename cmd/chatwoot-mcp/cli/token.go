package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "token",
		Aliases: []string{"key"},
		Short:   "Manage API tokens",
		Long:    "Create, list, revoke and regenerate the API tokens that authenticate gateway and MCP clients.",
	}

	cmd.AddCommand(newTokenCreateCmd())
	cmd.AddCommand(newTokenListCmd())
	cmd.AddCommand(newTokenRevokeCmd())
	cmd.AddCommand(newTokenRegenerateCmd())

	return cmd
}

// withStore loads the configuration, opens the store and runs fn.
func withStore(fn func(ctx context.Context, store *config.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(context.Background(), store)
}

// ---------- token create ----------

func newTokenCreateCmd() *cobra.Command {
	var (
		owner     string
		name      string
		perms     []string
		rateLimit int
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API token",
		Long:  "Issue a new API token owned by a user. The plaintext is shown once and cannot be retrieved again.",
		Example: `  chatwoot-mcp token create --user admin --name "support bot" --perm contacts:read --perm conversations:read,write
  chatwoot-mcp token create --user admin --name ops --perm all --expires-in 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *config.Store) error {
				u, err := store.GetUserByUsername(ctx, owner)
				if err != nil {
					return fmt.Errorf("user %q: %w", owner, err)
				}
				p, err := parsePermissions(perms)
				if err != nil {
					return err
				}
				in := service.CreateTokenInput{Name: name, Permissions: p, RateLimitPerMinute: rateLimit}
				if expiresIn > 0 {
					at := time.Now().Add(expiresIn).UTC()
					in.ExpiresAt = &at
				}
				tok, plaintext, err := service.NewTokenService(store, 0).Create(ctx, u, in)
				if err != nil {
					return err
				}
				printPlaintext(cmd.OutOrStdout(), tok, plaintext)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&owner, "user", "", "Username that owns the token (required)")
	cmd.Flags().StringVar(&name, "name", "", "Token name (required)")
	cmd.Flags().StringArrayVar(&perms, "perm", nil, "Grant as category:action[,action], repeatable; 'all' grants everything")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "Requests per minute recorded on the token (default 100)")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Expire the token after this duration (e.g. 720h)")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("name")

	return cmd
}

// ---------- token list ----------

func newTokenListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *config.Store) error {
				list, err := service.NewTokenService(store, 0).List(ctx, cliActor)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(list)
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No API tokens. Use 'chatwoot-mcp token create' to issue one.")
					return nil
				}
				now := time.Now()
				fmt.Fprintf(out, "%-36s  %-20s  %-10s  %-6s  %-16s  %s\n", "ID", "NAME", "PREFIX", "USABLE", "LAST USED", "PERMISSIONS")
				for _, t := range list {
					fmt.Fprintf(out, "%-36s  %-20s  %-10s  %-6s  %-16s  %s\n",
						t.ID, t.Name, t.TokenPrefix, yesNo(t.Usable(now)), formatTime(t.LastUsedAt), formatPermissions(t.Permissions))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// ---------- token revoke ----------

func newTokenRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *config.Store) error {
				if err := service.NewTokenService(store, 0).Revoke(ctx, cliActor, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Token %s revoked\n", args[0])
				return nil
			})
		},
	}
}

// ---------- token regenerate ----------

func newTokenRegenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <id>",
		Short: "Replace a token's secret, keeping its name and permissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *config.Store) error {
				tok, plaintext, err := service.NewTokenService(store, 0).Regenerate(ctx, cliActor, args[0])
				if err != nil {
					return err
				}
				printPlaintext(cmd.OutOrStdout(), tok, plaintext)
				fmt.Fprintln(os.Stderr, "The previous secret no longer works.")
				return nil
			})
		},
	}
}
