package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
)

// EnvPrefix is prepended to every environment override, e.g.
// CHATWOOT_MCP_CHATWOOT_API_TOKEN for chatwoot.api_token.
const EnvPrefix = "CHATWOOT_MCP"

var (
	cfgFile    string
	appVersion string // set in Execute, reported by serve and the MCP server
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatwoot-mcp",
		Short: "Expose the Chatwoot API to AI agents over MCP and an authenticated gateway",
		Long: `chatwoot-mcp exposes a Chatwoot installation to AI agents.

It serves the Chatwoot REST API as MCP tools (stdio, streamable HTTP and SSE)
and as an HTTP gateway guarded by per-token permissions and rate limits, plus
an admin API for users, API tokens, tool instructions and audit logs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./chatwoot-mcp.yaml)")
	cmd.PersistentFlags().String("data-dir", "", "data directory for the SQLite store (default: ~/.chatwoot-mcp)")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "", "log format: text or json")
	viper.BindPFlag("store.data_dir", cmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

// configReadErr remembers a config file that exists but could not be read,
// so commands can report it instead of silently running on defaults.
var configReadErr error

func initConfig() {
	registerDefaults(viper.GetViper())

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	path := cfgFile
	if path == "" {
		viper.SetConfigName("chatwoot-mcp")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.chatwoot-mcp")
		if err := viper.ReadInConfig(); err != nil {
			// Config file is optional.
			return
		}
		path = viper.ConfigFileUsed()
	}

	// Re-read with ${VAR} references expanded.
	data, err := config.ReadExpanded(path)
	if err != nil {
		configReadErr = err
		return
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	if err := viper.ReadConfig(bytes.NewReader(data)); err != nil {
		configReadErr = fmt.Errorf("parse config file %s: %w", path, err)
	}
}

// registerDefaults seeds v with every key of the default configuration, so
// that environment variables override keys the config file never mentions.
func registerDefaults(v *viper.Viper) {
	data, err := yaml.Marshal(config.DefaultYAMLConfig())
	if err != nil {
		return
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	setDefaults(v, "", tree)
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]interface{}); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig decodes the merged defaults, config file, environment and flags
// and validates the result.
func loadConfig() (*config.YAMLConfig, error) {
	cfg, err := decodeConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeConfig() (*config.YAMLConfig, error) {
	if configReadErr != nil {
		return nil, configReadErr
	}
	cfg := config.DefaultYAMLConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if cfg.Store.Driver == config.DriverSQLite && cfg.Store.DataDir == "" {
		cfg.Store.DataDir = defaultDataDir()
	}
	return cfg, nil
}
