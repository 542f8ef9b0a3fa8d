package main

import (
	"context"
	"fmt"

	"github.com/csmblade/panfm-go-rewrite/internal/config"
	"github.com/csmblade/panfm-go-rewrite/internal/registry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateDeviceIDsCmd = &cobra.Command{
	Use:   "migrate-device-ids",
	Short: "Rekey historical data onto deterministic device ids and exit",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load configuration")
		}

		ctx := context.Background()
		pool, err := pgxpool.New(ctx, cfg.Store.Resolve())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to store")
		}
		defer pool.Close()

		if err := registry.MigrateDeviceIDs(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("device id migration failed")
		}

		fmt.Println("device id migration complete")
	},
}
