package main

import (
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"kudos/internal/api"
	"kudos/internal/config"
)

type elementCreateOptions struct {
	typeName       string
	qualifiedName  string
	zones          []string
	anchorGUID     string
	properties     []string
	propertiesJSON string
	effectiveFrom  string
	effectiveTo    string
	sourceGUID     string
	sourceName     string
}

func newElementCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "element",
		Aliases: []string{"el"},
		Short:   "Manage repository elements",
	}
	cmd.AddCommand(
		newElementCreateCmd(cfg, jsonOutput),
		newElementShowCmd(cfg, jsonOutput),
		newElementListCmd(cfg, jsonOutput),
		newElementDeleteCmd(cfg, jsonOutput),
		newElementRetireCmd(cfg, jsonOutput),
		newElementDuplicateCmd(cfg, jsonOutput),
		newElementImportCmd(cfg, jsonOutput),
	)
	return cmd
}

func newElementCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &elementCreateOptions{}
	cmd := &cobra.Command{
		Use:   "create <qualified-name>",
		Short: "Create an element",
		Args:  requireExactlyArgs(1, "qualified name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.qualifiedName = args[0]
			req, err := buildElementCreateRequest(cfg, opts)
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CreateElement(cmd.Context(), req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(resp)
				}
				if resp.GUID == "" {
					return writePlain("element declined by the repository\n")
				}
				return writePlain("%s\n", resp.GUID)
			})
		},
	}

	cmd.Flags().StringVar(&opts.typeName, "type", "", "element type name (default Referenceable)")
	cmd.Flags().StringSliceVar(&opts.zones, "zone", nil, "zone membership (repeatable; default zones.default)")
	cmd.Flags().StringVar(&opts.anchorGUID, "anchor", "", "anchor element guid")
	cmd.Flags().StringArrayVar(&opts.properties, "property", nil, "property key=value (repeatable)")
	cmd.Flags().StringVar(&opts.propertiesJSON, "properties-json", "", "properties as a JSON object")
	cmd.Flags().StringVar(&opts.effectiveFrom, "effective-from", "", "start of effectivity (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.effectiveTo, "effective-to", "", "end of effectivity (RFC3339 or YYYY-MM-DD)")
	bindExternalSourceFlags(cmd, &opts.sourceGUID, &opts.sourceName)
	return cmd
}

func buildElementCreateRequest(cfg *config.Config, opts *elementCreateOptions) (api.ElementCreateRequest, error) {
	props, err := parsePropertyFlags(opts.properties, opts.propertiesJSON)
	if err != nil {
		return api.ElementCreateRequest{}, err
	}
	from, err := parseOptionalTime("effective-from", opts.effectiveFrom)
	if err != nil {
		return api.ElementCreateRequest{}, err
	}
	to, err := parseOptionalTime("effective-to", opts.effectiveTo)
	if err != nil {
		return api.ElementCreateRequest{}, err
	}

	zones := opts.zones
	if len(zones) == 0 {
		zones = cfg.Zones.Default
	}
	return api.ElementCreateRequest{
		TypeName:           strings.TrimSpace(opts.typeName),
		QualifiedName:      strings.TrimSpace(opts.qualifiedName),
		Properties:         props,
		Zones:              zones,
		AnchorGUID:         strings.TrimSpace(opts.anchorGUID),
		EffectiveFrom:      from,
		EffectiveTo:        to,
		ExternalSourceGUID: opts.sourceGUID,
		ExternalSourceName: opts.sourceName,
	}, nil
}

func newElementShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var filters readFilters

	cmd := &cobra.Command{
		Use:   "show <element-guid>",
		Short: "Show one element with its like count",
		Args:  requireElementGUID,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{"like_count": []string{"true"}}
			filters.apply(query)

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetElement(cmd.Context(), args[0], query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(resp)
				}
				return writeElementDetail(resp)
			})
		},
	}
	bindReadFilterFlags(cmd, &filters)
	return cmd
}

func newElementListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		typeName string
		limit    int
		offset   int
		filters  readFilters
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible elements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			setIfNotEmpty(query, "type", typeName)
			if limit > 0 {
				query.Set("limit", intToString(limit))
			}
			if offset > 0 {
				query.Set("offset", intToString(offset))
			}
			filters.apply(query)

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListElements(cmd.Context(), query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(resp)
				}
				return writeElementList(resp)
			})
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "", "type name filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "limit results")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset results")
	bindReadFilterFlags(cmd, &filters)
	return cmd
}

func newElementDeleteCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var cascade bool

	cmd := &cobra.Command{
		Use:     "delete <element-guid>",
		Aliases: []string{"rm"},
		Short:   "Delete an element",
		Args:    requireElementGUID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.DeleteElement(cmd.Context(), args[0], cascade)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(resp)
				}
				return writePlain("deleted %s\n", resp.GUID)
			})
		},
	}

	cmd.Flags().BoolVar(&cascade, "cascade", false, "also delete anchored entities and attached likes")
	return cmd
}

func newElementRetireCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "retire <element-guid>",
		Short: "Soft-delete an element; it stays readable for lineage",
		Args:  requireElementGUID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.RetireElement(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(resp)
				}
				return writePlain("%s\n", formatElementLine(resp))
			})
		},
	}
}

func newElementDuplicateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <element-guid> <original-guid>",
		Short: "Mark an element as a duplicate of another",
		Args:  requireExactlyArgs(2, "element guid and original guid are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.MarkDuplicate(cmd.Context(), args[0], api.ElementDuplicateRequest{DuplicateOf: args[1]})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(resp)
				}
				return writePlain("%s\n", formatElementLine(resp))
			})
		},
	}
}
