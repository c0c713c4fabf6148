package http

import (
	"context"

	"orderdesk_backend/platform/config"
	"orderdesk_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs GET /api/health. The pgx pool satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled by cmd/api and handed to router.New.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health may be nil, in which case /api/health always reports ok.
	Health  HealthChecker
	Modules []Module
}
