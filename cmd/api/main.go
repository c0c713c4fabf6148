package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderdesk_backend/internal/adapters"
	"orderdesk_backend/internal/assignment"
	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/catalog"
	"orderdesk_backend/internal/duplicates"
	"orderdesk_backend/internal/events"
	apphttp "orderdesk_backend/internal/http"
	"orderdesk_backend/internal/http/router"
	"orderdesk_backend/internal/inventory"
	"orderdesk_backend/internal/leads"
	"orderdesk_backend/internal/orders"
	"orderdesk_backend/internal/profiles"
	"orderdesk_backend/internal/scheduler"
	"orderdesk_backend/migrations"
	"orderdesk_backend/platform/config"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/phone"
	"orderdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	applied, err := db.RunMigrations(ctx, pool, migrations.FS)
	if err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete", "applied", applied)

	phone.SetDefaultRegion(cfg.GetPhoneDefaultRegion())

	gate, err := authz.LoadGate(cfg.GetAuthzPolicyFile())
	if err != nil {
		log.Error("failed to load authorization policy", "error", err)
		panic("failed to load authorization policy: " + err.Error())
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	alerts, closeAlerts := initAlertClient(cfg, log)
	if closeAlerts != nil {
		defer closeAlerts()
	}
	if alerts != nil {
		scheduler.SubscribeLowStockAlerts(eventBus, alerts, log)
	}

	// Shared validator instance for dependency injection
	val := validator.New()
	tx := db.NewTxManager(pool)
	profileRepo := profiles.New(pool)
	actors := authz.NewResolver(gate, profileRepo)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	inventoryModule := inventory.NewModule(pool, tx, actors, eventBus, val, log)
	catalogModule := catalog.NewModule(pool, tx, actors, adapters.NewInventoryStockInitializer(inventoryModule.Service()), val, log)
	productReader := adapters.NewCatalogProductReader(catalogModule.Repository())
	duplicatesModule := duplicates.NewModule(pool, actors, val)

	ordersModule := orders.NewModule(pool, tx, actors, eventBus, val, log, orders.Deps{
		Stock:    adapters.NewInventoryStockLedger(inventoryModule.Service()),
		Products: productReader,
	})
	leadsModule := leads.NewModule(pool, tx, actors, eventBus, val, log, leads.Deps{
		Orders:   adapters.NewOrderConverter(ordersModule.Service()),
		Products: productReader,
	})

	// Order transitions mirror onto source leads (breaks circular dependency)
	ordersModule.Service().SetLeadStatusSync(adapters.NewLeadStatusSync(leadsModule.Service()))
	ordersModule.Service().SetDuplicateFinder(adapters.NewDuplicatePhoneFinder(duplicatesModule.Service()))

	assignmentModule := assignment.NewModule(tx, actors, eventBus, val, log, assignment.Deps{
		Orders: adapters.NewOrderAssignmentStore(ordersModule.Repository()),
		Leads:  adapters.NewLeadAssignmentStore(leadsModule.Repository()),
		Agents: profileRepo,
	})

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			catalogModule,
			inventoryModule,
			ordersModule,
			leadsModule,
			assignmentModule,
			duplicatesModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
	eventBus.Wait()
	log.Info("server stopped")
}

func initAlertClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if !cfg.IsSchedulerEnabled() {
		log.Warn("REDIS_URL not configured; low stock alerts disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
