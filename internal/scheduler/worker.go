package scheduler

import (
	"context"
	"fmt"

	"orderdesk_backend/internal/email"
	invtransport "orderdesk_backend/internal/inventory/transport"
	"orderdesk_backend/platform/config"
	"orderdesk_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Reconciler replays the inventory ledger of every product.
type Reconciler interface {
	ReconcileAll(ctx context.Context) ([]invtransport.ReconcileResponse, error)
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	reconciler Reconciler
	sender     email.Sender
	alertTo    string
	log        *logger.Logger
}

// WorkerConfig combines the config interfaces the worker reads.
type WorkerConfig interface {
	config.SchedulerConfig
	config.EmailConfig
}

func NewWorker(cfg WorkerConfig, reconciler Reconciler, sender email.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		reconciler: reconciler,
		sender:     sender,
		alertTo:    cfg.GetLowStockAlertEmail(),
		log:        log,
	}

	mux.HandleFunc(TaskLowStockAlert, w.handleLowStockAlert)
	mux.HandleFunc(TaskLedgerReconcile, w.handleLedgerReconcile)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLowStockAlert(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLowStockAlertPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if w.alertTo == "" {
		w.log.Info("low stock alert not sent: no recipient", "productId", payload.ProductID)
		return nil
	}

	return w.sender.SendLowStockAlert(ctx, w.alertTo, email.LowStockAlert{
		ProductID:   payload.ProductID,
		ProductName: payload.ProductName,
		Stock:       payload.Stock,
		Threshold:   payload.Threshold,
	})
}

func (w *Worker) handleLedgerReconcile(ctx context.Context, _ *asynq.Task) error {
	drifted, err := w.reconciler.ReconcileAll(ctx)
	if err != nil {
		return err
	}
	if len(drifted) == 0 || w.alertTo == "" {
		return nil
	}

	report := make([]email.DriftedProduct, len(drifted))
	for i, d := range drifted {
		report[i] = email.DriftedProduct{
			ProductID:     d.ProductID.String(),
			StoredStock:   d.StoredStock,
			ReplayedStock: d.ReplayedStock,
		}
	}
	return w.sender.SendLedgerDriftReport(ctx, w.alertTo, report)
}
