// Command laminarkctl is the operator-facing control surface for
// Laminark: start the RPC/web servers, run an ad-hoc recall or save,
// render the SessionStart context bundle, and inspect registry/graph
// stats without a live MCP client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/laminark/laminark/internal/config"
)

var version = "dev"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "laminarkctl",
		Short:        "Operator CLI for Laminark's persistent project memory",
		Version:      version,
		SilenceUsage: true,
	}

	root.AddCommand(
		buildServeCmd(),
		buildHookCmd(),
		buildRecallCmd(),
		buildSaveCmd(),
		buildContextCmd(),
		buildStatsCmd(),
		buildToolsCmd(),
	)
	return root
}

// loadConfig resolves configuration the same way every subcommand
// needs it: environment first, then the optional on-disk file.
func loadConfig() (config.Config, error) {
	return config.Load()
}
