package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"erp-ledger/internal/config"
	"erp-ledger/internal/core"
	"erp-ledger/internal/store/memory"
	"erp-ledger/internal/store/postgres"
	"erp-ledger/internal/store/sqlite"
)

func NewPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	if connStr == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// Handle is an opened store plus what is needed to release it.
// Pool is set only for the postgres driver.
type Handle struct {
	Store core.Store
	Pool  *pgxpool.Pool
	close func() error
}

func (h *Handle) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// Open connects the store selected by cfg.Driver. The postgres schema is managed
// by migrations.Apply; the sqlite schema is created on open.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*Handle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", zap.String("driver", cfg.Driver))
		return &Handle{
			Store: postgres.New(pool),
			Pool:  pool,
			close: func() error { pool.Close(); return nil },
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", zap.String("driver", cfg.Driver), zap.String("path", cfg.SQLitePath))
		return &Handle{Store: store, close: store.Close}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return &Handle{Store: memory.New()}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
