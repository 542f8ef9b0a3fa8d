package main

import (
	"context"
	"fmt"
	"os"

	"github.com/csmblade/panfm-go-rewrite/internal/config"
	"github.com/csmblade/panfm-go-rewrite/internal/timeseries"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var initSchemaCmd = &cobra.Command{
	Use:   "init-schema",
	Short: "Create or update the time-series schema and exit",
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

		installer := timeseries.NewSchemaInstaller(pool)
		if errs := installer.EnsureSchema(ctx); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e)
			}
			log.Fatal().Int("errorCount", len(errs)).Msg("schema installation failed")
		}

		fmt.Println("schema is up to date")
	},
}
