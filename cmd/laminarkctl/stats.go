package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show observation and memory-graph counts for this project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func runStats() error {
	d, repos, err := openRepos()
	if err != nil {
		return err
	}
	defer d.Close()

	count, err := repos.Observations.Count()
	if err != nil {
		return fmt.Errorf("laminark: count observations: %w", err)
	}
	graphStats, err := repos.Graph.Stats()
	if err != nil {
		return fmt.Errorf("laminark: graph stats: %w", err)
	}

	fmt.Printf("Observations:   %d\n", count)
	fmt.Printf("Thought branches: %d (%d open)\n", graphStats.ThoughtBranchCount, graphStats.OpenThoughtBranches)
	fmt.Printf("Debug paths:      %d (%d unresolved)\n", graphStats.DebugPathCount, graphStats.UnresolvedDebugPaths)
	fmt.Printf("Waypoints:        %d\n", graphStats.WaypointCount)
	fmt.Printf("Vector search:    %v\n", d.HasVectors())
	return nil
}
