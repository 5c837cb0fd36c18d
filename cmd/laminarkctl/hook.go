package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/laminark/laminark/internal/capture"
	"github.com/laminark/laminark/internal/logging"
)

// buildHookCmd exposes the same stdin-driven capture path as the
// standalone laminark-hook binary, for hosts that prefer invoking one
// binary with a subcommand over installing a second executable.
func buildHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "hook",
		Short:  "Run the capture pipeline once against a hook event on stdin",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewQuiet("laminarkctl-hook")
			raw, err := capture.ReadAll(os.Stdin)
			if err != nil {
				log.Warn().Err(err).Msg("failed to read stdin")
				return nil
			}
			cwd, err := os.Getwd()
			if err != nil {
				log.Warn().Err(err).Msg("failed to resolve working directory")
				return nil
			}
			capture.RunHook(raw, cwd, log)
			return nil
		},
	}
}
