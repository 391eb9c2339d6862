// Package db opens whichever store the configuration selects and exposes it
// through the repository ports.
package db

import (
	"context"
	"fmt"

	"pos-activation/internal/config"
	"pos-activation/internal/domain/ports/repository"
	"pos-activation/internal/infra/db/postgres"
	"pos-activation/internal/infra/db/sqlite"
	"pos-activation/internal/infra/metrics"
)

// Repositories bundles the ports for one open store.
type Repositories struct {
	Driver     string
	Features   repository.FeatureRepository
	Keys       repository.ActivationKeyRepository
	Ledger     repository.BusinessFeatureRepository
	Businesses repository.BusinessRepository
	TM         repository.TransactionManager

	Stats func() metrics.PoolStats
	Ping  func(ctx context.Context) error
	Close func()
}

// Open connects (and migrates) the configured store.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Repositories, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPgxPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return &Repositories{
			Driver:     config.DriverPostgres,
			Features:   postgres.NewFeatureRepo(pool),
			Keys:       postgres.NewActivationKeyRepo(pool),
			Ledger:     postgres.NewBusinessFeatureRepo(pool),
			Businesses: postgres.NewBusinessRepo(pool),
			TM:         postgres.NewTxManager(pool),
			Stats:      func() metrics.PoolStats { return postgres.PoolStats(pool) },
			Ping:       pool.Ping,
			Close:      pool.Close,
		}, nil

	case config.DriverSQLite:
		path := cfg.SQLitePath
		if path == config.MemorySQLitePath {
			path = ""
		}
		store, err := sqlite.NewStore(path)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Driver:     config.DriverSQLite,
			Features:   sqlite.NewFeatureRepo(store),
			Keys:       sqlite.NewActivationKeyRepo(store),
			Ledger:     sqlite.NewBusinessFeatureRepo(store),
			Businesses: sqlite.NewBusinessRepo(store),
			TM:         sqlite.NewTxManager(store),
			Stats:      store.PoolStats,
			Ping:       store.DB().PingContext,
			Close:      func() { _ = store.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
