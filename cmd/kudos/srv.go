package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"kudos/internal/config"
	"kudos/internal/server"
	"kudos/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the kudos API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath, "declined_types", cfg.Store.DeclinedTypes)
			st, err := store.Open(cfg.DBPath, store.WithDeclinedTypes(cfg.Store.DeclinedTypes...))
			if err != nil {
				return err
			}
			defer st.Close()

			srv := server.New(addr, st, logger, serverOptions(cfg))
			return srv.ListenAndServe()
		},
	}
}

func serverOptions(cfg *config.Config) server.Options {
	return server.Options{
		DBPath:         cfg.DBPath,
		SupportedZones: cfg.Zones.Supported,
		MaxPageSize:    cfg.Likes.MaxPageSize,
		GCBatchSize:    cfg.Likes.GCBatchSize,
		OrphanGrace:    cfg.Likes.OrphanGrace.Duration,
	}
}
