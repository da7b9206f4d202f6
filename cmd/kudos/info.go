package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"kudos/internal/api"
	"kudos/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show repository and server info",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(resp)
				}
				return writeInfo(resp)
			})
		},
	}
}

func writeInfo(resp api.InfoResponse) error {
	zones := "(all)"
	if len(resp.SupportedZones) > 0 {
		zones = strings.Join(resp.SupportedZones, ", ")
	}
	lines := []string{
		"db_path: " + resp.DBPath,
		"schema_version: " + intToString(resp.SchemaVersion),
		"supported_zones: " + zones,
		"relationships: " + intToString(resp.RelationshipCount),
	}
	if resp.AuthRequired {
		lines = append(lines, "auth: required")
	} else {
		lines = append(lines, "auth: open")
	}

	types := make([]string, 0, len(resp.EntityCounts))
	for typeName := range resp.EntityCounts {
		types = append(types, typeName)
	}
	sort.Strings(types)
	lines = append(lines, "entities:")
	for _, typeName := range types {
		lines = append(lines, "  "+typeName+": "+intToString(resp.EntityCounts[typeName]))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}
