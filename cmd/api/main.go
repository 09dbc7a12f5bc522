package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/api"
	"github.com/IlyasAtabaev731/barter-market/internal/config"
	"github.com/IlyasAtabaev731/barter-market/internal/storage/memory"
	"github.com/IlyasAtabaev731/barter-market/internal/storage/mongodb"
	"github.com/IlyasAtabaev731/barter-market/internal/storage/postgres"

	_ "github.com/lib/pq"
)

// backend is a storage that can be shut down with the server.
type backend interface {
	api.Storage
	Stop(ctx context.Context) error
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting application",
		slog.String("env", cfg.Env),
		slog.String("host", cfg.ApiHost),
		slog.Int("port", cfg.ApiPort),
		slog.String("storage", cfg.Storage),
	)

	storage, err := openStorage(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	apiServer := api.New(cfg, log, storage)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		apiServer.MustStart()
	}()

	<-sigChan
	log.Info("Got signal to shutdown server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(ctx); err != nil {
		log.Error("Stopping server error", "error", err)
	}
	if err := storage.Stop(ctx); err != nil {
		log.Error("Closing storage error", "error", err)
	}
}

func openStorage(cfg *config.Config) (backend, error) {
	switch cfg.Storage {
	case config.StorageMongo:
		return mongodb.New(context.Background(), cfg.Mongo.ConnString(), cfg.Mongo.Db, cfg.Mongo.Transactions)
	case config.StoragePostgres:
		return postgres.New(cfg.Postgres.URL())
	case config.StorageMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case config.EnvLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
