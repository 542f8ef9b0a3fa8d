package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/app"
	"github.com/csmblade/panfm-go-rewrite/internal/config"
	"github.com/csmblade/panfm-go-rewrite/internal/firewallclient"
	"github.com/rs/zerolog/log"
)

func runServe() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Info().Int("devices", len(cfg.Devices)).Msg("starting panfm-collector")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, panosClientFactory())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize collector")
	}

	if err := a.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	startMetricsServer(ctx, cfg.MetricsAddr, a.Telemetry.Handler())

	watcher, err := config.NewWatcher(cfg.DataDir)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create config watcher, changes will require a restart")
	} else {
		if err := watcher.Start(); err != nil {
			log.Warn().Err(err).Msg("failed to start config watcher")
		}
		defer watcher.Stop()
		go func() {
			for snap := range watcher.Changes() {
				log.Info().Msg("configuration changed on disk, refreshing notification channels")
				a.Dispatcher.Replace(app.BuildChannels(snap.Channels))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	reloadChan := make(chan os.Signal, 1)
	signal.Notify(reloadChan, syscall.SIGHUP)

	for {
		select {
		case <-reloadChan:
			log.Info().Msg("received SIGHUP, reloading configuration")
			if snap, err := config.Load(); err != nil {
				log.Error().Err(err).Msg("config reload failed")
			} else {
				a.Dispatcher.Replace(app.BuildChannels(snap.Channels))
			}
		case <-sigChan:
			log.Info().Msg("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			if err := a.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("error during shutdown")
			}
			return
		}
	}
}

func panosClientFactory() app.ClientFactory {
	return func(d config.DeviceConfig) firewallclient.Client {
		if d.Address == "" || d.AuthToken == "" {
			return nil
		}
		return firewallclient.NewPANOSClient(d.Address, d.AuthToken)
	}
}
