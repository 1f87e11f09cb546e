package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldline-crm/fieldline/internal/adapter"
	"github.com/fieldline-crm/fieldline/internal/config"
	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/internal/service"
	"github.com/fieldline-crm/fieldline/internal/store"
	"github.com/fieldline-crm/fieldline/internal/workers"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("fieldline-client")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	remote, err := adapter.NewHTTPRemoteAPI(cfg.Remote, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create remote adapter")
	}

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}
	defer func() {
		if err := storages.Close(); err != nil {
			log.Err(err).Msg("closing local storage")
		}
	}()

	services := service.NewServices(storages, remote, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	background := workers.NewWorkers(
		workers.WorkerFunc(func() { services.Monitor.Start(ctx, cfg.Workers.ProbeInterval) }),
		workers.WorkerFunc(func() { services.Refresh.Start(ctx, cfg.Workers.RefreshInterval) }),
	)
	background.Run()
	defer services.Refresh.Stop()
	defer services.Monitor.Stop()

	log.Info().
		Str("base_url", cfg.Remote.BaseURL).
		Str("dsn", cfg.Storage.DB.DSN).
		Msg("fieldline client running, press Ctrl+C to exit")

	<-ctx.Done()

	state, err := services.Collections.Status(context.Background())
	if err != nil {
		log.Err(err).Msg("reading final sync state")
		return
	}

	log.Info().
		Int("pending", state.PendingCount).
		Int("failed", state.FailedCount).
		Time("last_sync_at", state.LastSyncAt).
		Msg("shutting down")
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Fprintf(os.Stdout, "Build version: %s\n", buildVersion)
	fmt.Fprintf(os.Stdout, "Build date: %s\n", buildDate)
	fmt.Fprintf(os.Stdout, "Build commit: %s\n", buildCommit)
}
