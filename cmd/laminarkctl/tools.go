package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List tools, commands, and skills discovered in this project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTools()
		},
	}
}

func runTools() error {
	d, repos, err := openRepos()
	if err != nil {
		return err
	}
	defer d.Close()

	entries, err := repos.ToolRegistry.GetAvailableForSession()
	if err != nil {
		return fmt.Errorf("laminark: list tools: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No tools recorded yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-30s [%s/%s] used %d times\n", e.Name, e.ToolType, e.Scope, e.UsageCount)
	}
	return nil
}
