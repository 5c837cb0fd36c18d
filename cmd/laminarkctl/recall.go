package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/laminark/laminark/internal/embedding"
	"github.com/laminark/laminark/internal/store"
)

func buildRecallCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Search this project's persisted memory from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecall(joinArgs(args), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "max results")
	return cmd
}

func runRecall(query string, limit int) error {
	d, repos, err := openRepos()
	if err != nil {
		return err
	}
	defer d.Close()

	var queryVec []float32
	if client, err := embedding.NewClient(); err == nil {
		if v, err := client.Embed(context.Background(), query); err == nil {
			queryVec = v
		}
	}

	results, err := repos.Search.HybridSearch(query, queryVec, store.SearchOptions{Limit: limit})
	if err != nil {
		return fmt.Errorf("laminark: recall: %w", err)
	}
	if len(results) == 0 {
		fmt.Printf("No memories found for: %q\n", query)
		return nil
	}
	for i, r := range results {
		obs := r.Observation
		fmt.Printf("[%d] %s (%s, %s)\n    %s\n\n", i+1, obs.ID[:8], obs.Kind, obs.CreatedAt.Format("2006-01-02"), obs.Content)
	}
	return nil
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}
