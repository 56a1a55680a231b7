package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"admin"},
		Short:   "Manage admin API users",
		Long:    "Create, list and deactivate the users who sign in to the admin API, and reset their passwords.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserDeactivateCmd())
	cmd.AddCommand(newUserPasswdCmd())

	return cmd
}

// promptPassword reads a password twice from the terminal without echo.
func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pw) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pw), nil
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var in service.CreateUserInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Example: `  chatwoot-mcp user create --username admin --role admin
  chatwoot-mcp user create --username ops --email ops@example.com --password 's3cret-pass'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				pw, err := promptPassword()
				if err != nil {
					return err
				}
				in.Password = pw
			}
			return withStore(func(ctx context.Context, store *config.Store) error {
				u, err := service.NewUserService(store, 0, nil).Create(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %q (%s)\n", u.Role, u.Username, u.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "Login name (required)")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.DisplayName, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Role, "role", model.RoleViewer, "Role: admin or viewer")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (prompted if omitted)")
	cmd.MarkFlagRequired("username")

	return cmd
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *config.Store) error {
				users, err := service.NewUserService(store, 0, nil).List(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(users)
				}
				if len(users) == 0 {
					fmt.Fprintln(out, "No users. Use 'chatwoot-mcp user create' to create one.")
					return nil
				}
				fmt.Fprintf(out, "%-36s  %-20s  %-8s  %-6s  %s\n", "ID", "USERNAME", "ROLE", "ACTIVE", "LAST LOGIN")
				for _, u := range users {
					fmt.Fprintf(out, "%-36s  %-20s  %-8s  %-6s  %s\n", u.ID, u.Username, u.Role, yesNo(u.IsActive), formatTime(u.LastLoginAt))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// lookupUser accepts a user id or username.
func lookupUser(ctx context.Context, store *config.Store, ref string) (*model.User, error) {
	if u, err := store.GetUserByUsername(ctx, ref); err == nil {
		return u, nil
	}
	u, err := store.GetUser(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", ref, err)
	}
	return u, nil
}

// ---------- user deactivate ----------

func newUserDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <username|id>",
		Short: "Deactivate a user and end their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *config.Store) error {
				u, err := lookupUser(ctx, store, args[0])
				if err != nil {
					return err
				}
				if err := service.NewUserService(store, 0, nil).Deactivate(ctx, cliActor, u.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %q deactivated\n", u.Username)
				return nil
			})
		},
	}
}

// ---------- user passwd ----------

func newUserPasswdCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd <username|id>",
		Short: "Reset a user's password and end their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := promptPassword()
				if err != nil {
					return err
				}
				password = pw
			}
			return withStore(func(ctx context.Context, store *config.Store) error {
				u, err := lookupUser(ctx, store, args[0])
				if err != nil {
					return err
				}
				if err := service.NewUserService(store, 0, nil).ChangePassword(ctx, cliActor, u.ID, "", password); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Password for %q updated\n", u.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (prompted if omitted)")

	return cmd
}
