package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and prune the audit log",
	}

	cmd.AddCommand(newAuditListCmd())
	cmd.AddCommand(newAuditPruneCmd())

	return cmd
}

// ---------- audit list ----------

func newAuditListCmd() *cobra.Command {
	var (
		f          model.AuditFilter
		since      time.Duration
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show recent audit entries, newest first",
		Example: `  chatwoot-mcp audit list --limit 20
  chatwoot-mcp audit list --action tool.send_message --since 24h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if since > 0 {
				from := time.Now().Add(-since).UTC()
				f.FromDate = &from
			}
			return withStore(func(ctx context.Context, store *config.Store) error {
				logs, total, err := store.ListAuditLogs(ctx, f)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(logs)
				}
				fmt.Fprintf(out, "%-19s  %-6s  %-28s  %-6s  %-4s  %s\n", "TIME", "ACTOR", "ACTION", "METHOD", "CODE", "PATH")
				for _, e := range logs {
					fmt.Fprintf(out, "%-19s  %-6s  %-28s  %-6s  %-4d  %s\n",
						e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.ActorType, e.Action, e.Method, e.Status, e.Path)
				}
				fmt.Fprintf(out, "\n%d of %d entries\n", len(logs), total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&f.Action, "action", "", "Only entries with this action")
	cmd.Flags().StringVar(&f.ActorID, "actor", "", "Only entries by this user or token id")
	cmd.Flags().DurationVar(&since, "since", 0, "Only entries newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&f.Limit, "limit", config.DefaultAuditPageSize, "Maximum number of entries")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// ---------- audit prune ----------

func newAuditPruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit entries older than a number of days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--older-than-days must be at least 1")
			}
			return withStore(func(ctx context.Context, store *config.Store) error {
				n, err := store.DeleteAuditLogsBefore(ctx, time.Now().AddDate(0, 0, -days))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d audit entries older than %d days\n", n, days)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "older-than-days", 0, "Age threshold in days (required)")
	cmd.MarkFlagRequired("older-than-days")

	return cmd
}
