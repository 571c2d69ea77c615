package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/store"
)

// provideRepository builds the favorites repository for the configured
// driver, falling back to memory when the backend is unreachable.
func provideRepository(cfg *config.AppConfig, logger *slog.Logger) (store.Repository, func()) {
	noop := func() {}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Info("favorites stored in memory only")
		return store.NewMemoryRepository(), noop

	case config.DriverPostgres:
		pool, err := pgxpool.New(context.Background(), cfg.Store.PostgresDSN)
		if err != nil {
			logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
			return store.NewMemoryRepository(), noop
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("postgres ping failed, using memory repository", "error", err)
			pool.Close()
			return store.NewMemoryRepository(), noop
		}
		repo := store.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("postgres schema setup failed, using memory repository", "error", err)
			pool.Close()
			return store.NewMemoryRepository(), noop
		}
		logger.Info("favorites postgres repository enabled")
		return repo, pool.Close

	case config.DriverValkey:
		opt, err := buildValkeyOptions(cfg.Store.ValkeyAddr)
		if err != nil {
			logger.Error("invalid valkey configuration, using memory repository", "error", err)
			return store.NewMemoryRepository(), noop
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, using memory repository", "error", err)
			return store.NewMemoryRepository(), noop
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, using memory repository", "error", err)
			client.Close()
			return store.NewMemoryRepository(), noop
		}
		logger.Info("favorites valkey repository enabled", "addr", cfg.Store.ValkeyAddr)
		return store.NewValkeyRepository(client, cfg.Store.ValkeyKey), client.Close

	default:
		logger.Info("favorites file repository enabled", "path", cfg.Store.Path)
		return store.NewFileRepository(cfg.Store.Path), noop
	}
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
