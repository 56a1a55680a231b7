package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
)

const defaultConfigFile = "chatwoot-mcp.yaml"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage chatwoot-mcp configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default chatwoot-mcp.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := config.WriteDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", path)
			fmt.Fprintln(out, "Set chatwoot.base_url and chatwoot.api_token (or CHATWOOT_MCP_CHATWOOT_API_TOKEN),")
			fmt.Fprintln(out, "then run 'chatwoot-mcp serve'.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVarP(&path, "output", "o", defaultConfigFile, "Path of the file to write")

	return cmd
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := decodeConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if f := viper.ConfigFileUsed(); f != "" {
				fmt.Fprintf(out, "# Config file: %s\n", f)
			} else {
				fmt.Fprintln(out, "# Config file: (none found, using defaults and environment)")
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "# WARNING: %v\n", err)
			}
			data, err := yaml.Marshal(cfg.Masked())
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}
