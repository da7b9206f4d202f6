package main

import (
	"github.com/spf13/cobra"

	"kudos/internal/api"
	"kudos/internal/config"
)

func newAdminCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}

	cmd.AddCommand(newAdminGCLikesCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminUserCmd(cfg, jsonOutput))
	return cmd
}

func newAdminGCLikesCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		apply     bool
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "gc-likes",
		Short: "Delete likes left without an element link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GCLikes(cmd.Context(), api.LikeGCRequest{Apply: apply, BatchSize: batchSize})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(resp)
				}
				mode := "dry run"
				if !resp.DryRun {
					mode = "applied"
				}
				if err := writePlain("%s: candidates=%d deleted=%d failed=%d\n", mode, resp.CandidateCount, resp.DeletedCount, resp.FailedCount); err != nil {
					return err
				}
				for _, guid := range resp.CandidateGUIDs {
					if err := writePlain("  %s\n", guid); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "delete orphaned likes (default is a dry run)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "maximum likes examined (default: likes.gc_batch_size on the server)")
	return cmd
}
