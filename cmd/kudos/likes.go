package main

import (
	"net/url"

	"github.com/spf13/cobra"

	"kudos/internal/api"
	"kudos/internal/config"
)

type likeSaveOptions struct {
	private    bool
	sourceGUID string
	sourceName string
	readFilters
}

func newLikeCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "like",
		Short: "Save, remove and list likes on an element",
	}
	cmd.AddCommand(
		newLikeListCmd(cfg, jsonOutput),
		newLikeSaveCmd(cfg, jsonOutput),
		newLikeRemoveCmd(cfg, jsonOutput),
	)
	return cmd
}

func newLikeListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		start    int
		pageSize int
		filters  readFilters
	)

	cmd := &cobra.Command{
		Use:   "list <element-guid>",
		Short: "List likes attached to an element, newest first",
		Args:  requireElementGUID,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if start > 0 {
				query.Set("start", intToString(start))
			}
			if pageSize > 0 {
				query.Set("page_size", intToString(pageSize))
			}
			filters.apply(query)

			return withClient(cfg, func(client *api.Client) error {
				likes, err := client.ListLikes(cmd.Context(), args[0], query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(likes)
				}
				return writeLikeList(likes)
			})
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "offset of the first like returned")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "maximum likes returned (0 = server maximum)")
	bindReadFilterFlags(cmd, &filters)
	return cmd
}

func newLikeSaveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &likeSaveOptions{}

	cmd := &cobra.Command{
		Use:   "save <element-guid>",
		Short: "Like an element, replacing your previous like",
		Args:  requireElementGUID,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildLikeSaveRequest(opts)
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.SaveLike(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(resp)
				}
				if resp.Declined {
					return writePlain("like declined by the repository\n")
				}
				return writePlain("%s\n", resp.GUID)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.private, "private", false, "only you can see this like")
	bindExternalSourceFlags(cmd, &opts.sourceGUID, &opts.sourceName)
	bindReadFilterFlags(cmd, &opts.readFilters)
	return cmd
}

func buildLikeSaveRequest(opts *likeSaveOptions) (api.LikeSaveRequest, error) {
	effectiveTime, err := parseOptionalTime("effective-time", opts.effectiveTime)
	if err != nil {
		return api.LikeSaveRequest{}, err
	}
	isPublic := !opts.private
	return api.LikeSaveRequest{
		IsPublic:               &isPublic,
		ExternalSourceGUID:     opts.sourceGUID,
		ExternalSourceName:     opts.sourceName,
		EffectiveTime:          effectiveTime,
		ForLineage:             opts.forLineage,
		ForDuplicateProcessing: opts.forDuplicateProcessing,
	}, nil
}

func newLikeRemoveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		sourceGUID    string
		sourceName    string
		effectiveTime string
	)

	cmd := &cobra.Command{
		Use:     "remove <element-guid>",
		Aliases: []string{"rm"},
		Short:   "Remove your like from an element",
		Args:    requireElementGUID,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			setIfNotEmpty(query, "external_source_guid", sourceGUID)
			setIfNotEmpty(query, "external_source_name", sourceName)
			setIfNotEmpty(query, "effective_time", effectiveTime)

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.RemoveLike(cmd.Context(), args[0], query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(resp)
				}
				if !resp.Removed {
					return writePlain("no like to remove on %s\n", resp.ElementGUID)
				}
				return writePlain("removed like on %s\n", resp.ElementGUID)
			})
		},
	}

	bindExternalSourceFlags(cmd, &sourceGUID, &sourceName)
	cmd.Flags().StringVar(&effectiveTime, "effective-time", "", "evaluate effectivity at this time (RFC3339 or YYYY-MM-DD)")
	return cmd
}

func bindExternalSourceFlags(cmd *cobra.Command, guid, name *string) {
	cmd.Flags().StringVar(guid, "external-source-guid", "", "attribute the change to this external source")
	cmd.Flags().StringVar(name, "external-source-name", "", "name of the external source")
}
