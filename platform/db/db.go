// Package db holds the Postgres plumbing shared by the repositories. The
// transaction travels on the context so services can span several modules.
package db

import (
	"context"
	"fmt"
	"time"

	"orderdesk_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const minIdleConns = 2

// NewPool opens the pgx pool and checks that the database answers.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	configurePool(poolConfig, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// configurePool sizes the pool and sets lock_timeout on every session, so a
// transition waiting on a locked order, lead or product row fails instead of
// hanging the request.
func configurePool(poolConfig *pgxpool.Config, cfg config.DatabaseConfig) {
	if n := cfg.GetDatabaseMaxConns(); n > 0 {
		poolConfig.MaxConns = int32(n)
	}
	poolConfig.MinConns = min(minIdleConns, poolConfig.MaxConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	if timeout := cfg.GetDatabaseLockTimeout(); timeout != "" {
		poolConfig.ConnConfig.RuntimeParams["lock_timeout"] = timeout
	}
}
