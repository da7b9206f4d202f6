package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kudos/internal/api"
	internalauth "kudos/internal/auth"
	"kudos/internal/config"
)

func newAdminUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local users, roles and zones",
	}
	cmd.AddCommand(
		newAdminUserAddCmd(cfg, jsonOutput),
		newAdminUserListCmd(cfg, jsonOutput),
		newAdminUserZonesCmd(cfg, jsonOutput),
		newAdminUserSetDisabledCmd(cfg, jsonOutput, "disable", "Disable one user", true),
		newAdminUserSetDisabledCmd(cfg, jsonOutput, "enable", "Enable one user", false),
		newAdminUserDeleteCmd(cfg, jsonOutput),
	)
	return cmd
}

func newAdminUserAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		passwordStdin bool
		role          string
		zones         []string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create one local user",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}
			if _, err := internalauth.ParseRole(role); err != nil {
				return err
			}

			passwordBytes, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			password := strings.TrimSpace(string(passwordBytes))

			return withClient(cfg, func(client *api.Client) error {
				created, err := client.AdminCreateUser(cmd.Context(), api.AdminUserCreateRequest{
					Username: username,
					Password: password,
					Role:     role,
					Zones:    zones,
				})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(created)
				}
				return writePlain("created %s user %s (%s)\n", created.Role, created.Username, created.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	cmd.Flags().StringVar(&role, "role", "", "role: admin|member|reader (default member)")
	cmd.Flags().StringSliceVar(&zones, "zone", nil, "zone membership (repeatable)")
	return cmd
}

func newAdminUserListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provisioned users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				users, err := client.AdminListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(map[string]any{"count": len(users), "users": users})
				}
				return writeUserTable(users)
			})
		},
	}
}

func writeUserTable(users []api.AdminUser) error {
	if len(users) == 0 {
		return writePlain("no users configured\n")
	}
	if err := writePlain("USERNAME\tROLE\tSTATUS\tZONES\n"); err != nil {
		return err
	}
	for _, user := range users {
		status := "enabled"
		if user.Disabled {
			status = "disabled"
		}
		zones := strings.Join(user.Zones, ",")
		if zones == "" {
			zones = "-"
		}
		if err := writePlain("%s\t%s\t%s\t%s\n", user.Username, user.Role, status, zones); err != nil {
			return err
		}
	}
	return nil
}

func newAdminUserZonesCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "zones <username> [zone...]",
		Short: "Replace the zones of one user",
		Args:  requireAtLeastArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				updated, err := client.AdminSetUserZones(cmd.Context(), username, args[1:])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(updated)
				}
				return writePlain("%s zones: %s\n", updated.Username, strings.Join(updated.Zones, ", "))
			})
		},
	}
}

func newAdminUserSetDisabledCmd(cfg *config.Config, jsonOutput *bool, name, short string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <username>",
		Short: short,
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				updated, err := client.AdminSetUserDisabled(cmd.Context(), username, disabled)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(updated)
				}
				return writePlain("%sd user %s\n", name, updated.Username)
			})
		},
	}
}

func newAdminUserDeleteCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <username>",
		Aliases: []string{"rm"},
		Short:   "Delete one user",
		Args:    requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.AdminDeleteUser(cmd.Context(), username)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeOutput(resp)
				}
				return writePlain("deleted user %s\n", resp.Username)
			})
		},
	}
}
