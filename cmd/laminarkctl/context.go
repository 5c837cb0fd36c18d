package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/laminark/laminark/internal/contextbundle"
)

func buildContextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Render the same context bundle injected at session start",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContext()
		},
	}
}

func runContext() error {
	d, repos, err := openRepos()
	if err != nil {
		return err
	}
	defer d.Close()

	bundle, err := contextbundle.New(repos).Assemble()
	if err != nil {
		return fmt.Errorf("laminark: assemble context: %w", err)
	}
	fmt.Println(bundle)
	return nil
}
