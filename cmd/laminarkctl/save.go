package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/laminark/laminark/internal/store"
)

func buildSaveCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "save <content>",
		Short: "Save a memory to this project's store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(joinArgs(args), kind)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "change, decision, finding, or reference (default: unclassified)")
	return cmd
}

func runSave(content, kindArg string) error {
	d, repos, err := openRepos()
	if err != nil {
		return err
	}
	defer d.Close()

	kind := store.KindUnclassified
	if kindArg != "" {
		kind = store.Kind(kindArg)
	}

	obs, err := repos.Observations.Create(store.ObservationInput{
		Source:  "cli:save",
		Content: content,
		Kind:    kind,
	})
	if err != nil {
		return fmt.Errorf("laminark: save: %w", err)
	}
	fmt.Printf("Saved as %s\n", obs.ID[:8])
	return nil
}
