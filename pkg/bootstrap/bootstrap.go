// Package bootstrap wires configuration, logging and the key-value store for
// the Lambda entry points.
package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/pkg/cache"
	"gitlab.connectwisedev.com/pos-service/pkg/config"
	"gitlab.connectwisedev.com/pos-service/pkg/database"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
	"gitlab.connectwisedev.com/pos-service/pkg/logging"
)

type App struct {
	Config config.Config
	Logger *zap.Logger
	Store  kvstore.Store

	closers []func()
}

// New loads the environment and opens the configured store.
func New() (*App, error) {
	config.LoadEnv()
	cfg := config.Load()

	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}

	store, closer, err := OpenStore(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	logger.Info("bootstrap complete", zap.String("store_backend", cfg.StoreBackend))
	return &App{Config: cfg, Logger: logger, Store: store, closers: []func(){closer}}, nil
}

// OpenStore returns the store selected by cfg.StoreBackend and a function
// releasing its connections.
func OpenStore(cfg config.Config, logger *zap.Logger) (kvstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return kvstore.NewMemory(), func() {}, nil
	case config.BackendRedis:
		client, err := cache.NewRedisClient(cache.Options{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		return client, client.Close, nil
	case config.BackendPostgres:
		client, err := database.NewPostgresClient(database.Options{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Name:     cfg.Postgres.Name,
			SSLMode:  cfg.Postgres.SSLMode,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize DB client: %w", err)
		}
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// Close releases the store and flushes the logger.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.Logger.Sync()
}
