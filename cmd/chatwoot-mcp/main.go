package main

import (
	"fmt"
	"os"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/cmd/chatwoot-mcp/cli"
)

// Set via -ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
