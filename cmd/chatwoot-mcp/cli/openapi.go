package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/openapi"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/permission"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

func newOpenAPICmd() *cobra.Command {
	var (
		outputFile string
		baseURL    string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the gateway OpenAPI specification",
		Long: `Generate an OpenAPI 3.1 document for the gateway: every mapped Chatwoot
endpoint with its required permission, plus the tool invocation endpoints.`,
		Example: `  chatwoot-mcp openapi                 # print to stdout
  chatwoot-mcp openapi -o openapi.json  # write to file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(cmd, outputFile, baseURL)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server URL advertised in the document")

	return cmd
}

func runOpenAPI(cmd *cobra.Command, outputFile, baseURL string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	doc := openapi.Generate(openapi.Info{
		Version:      versionString(),
		BaseURL:      baseURL,
		APIKeyHeader: cfg.Auth.APIKeyHeader,
	}, permission.NewMapper(nil).Entries(), tools.Default().List())

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode openapi: %w", err)
	}
	if outputFile == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	if err := os.WriteFile(outputFile, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", outputFile, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", outputFile)
	return nil
}
