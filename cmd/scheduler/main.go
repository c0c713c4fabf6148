package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/email"
	"orderdesk_backend/internal/events"
	invrepo "orderdesk_backend/internal/inventory/repository"
	invservice "orderdesk_backend/internal/inventory/service"
	"orderdesk_backend/internal/scheduler"
	"orderdesk_backend/platform/config"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	gate, err := authz.LoadGate(cfg.GetAuthzPolicyFile())
	if err != nil {
		log.Error("failed to load authorization policy", "error", err)
		panic("failed to load authorization policy: " + err.Error())
	}

	// Worker-side ledger wiring (no HTTP handlers required).
	eventBus := events.NewInMemoryBus(log)
	ledger := invservice.New(invrepo.New(pool), db.NewTxManager(pool), gate, eventBus, log)
	sender := email.NewSender(cfg)

	worker, err := scheduler.NewWorker(cfg, ledger, sender, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	cron, err := scheduler.NewCron(cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler cron", "error", err)
		panic("failed to initialize scheduler cron: " + err.Error())
	}
	if _, err := cron.Register(); err != nil {
		log.Error("failed to register periodic tasks", "error", err)
		panic("failed to register periodic tasks: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		cron.Run(gctx)
		return nil
	})
	_ = g.Wait()
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
