package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

type buildInfo struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	Built      string `json:"built"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Tools      int    `json:"tools"`
	Categories int    `json:"permission_categories"`
}

func newVersionCmd(version, commit, date string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildInfo{
				Version:    version,
				Commit:     commit,
				Built:      date,
				GoVersion:  runtime.Version(),
				Platform:   runtime.GOOS + "/" + runtime.GOARCH,
				Tools:      tools.Default().Len(),
				Categories: len(model.Categories),
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Fprintf(out, "chatwoot-mcp %s\n", info.Version)
			fmt.Fprintf(out, "  commit:   %s\n", info.Commit)
			fmt.Fprintf(out, "  built:    %s\n", info.Built)
			fmt.Fprintf(out, "  go:       %s (%s)\n", info.GoVersion, info.Platform)
			fmt.Fprintf(out, "  tools:    %d across %d permission categories\n", info.Tools, info.Categories)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	return cmd
}
