package scheduler

import (
	"context"
	"fmt"

	"orderdesk_backend/platform/config"
	"orderdesk_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultReconcileCron = "0 3 * * *"

// Cron enqueues periodic tasks.
type Cron struct {
	scheduler *asynq.Scheduler
	spec      string
	queue     string
	log       *logger.Logger
}

func NewCron(cfg config.SchedulerConfig, log *logger.Logger) (*Cron, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return newCron(opt, cfg.GetReconcileCron(), cfg.GetAsynqQueueName(), log), nil
}

func newCron(opt asynq.RedisConnOpt, spec, queue string, log *logger.Logger) *Cron {
	if spec == "" {
		spec = defaultReconcileCron
	}
	if queue == "" {
		queue = "default"
	}
	return &Cron{
		scheduler: asynq.NewScheduler(opt, nil),
		spec:      spec,
		queue:     queue,
		log:       log,
	}
}

// Register adds the reconciliation sweep and returns its entry id.
func (c *Cron) Register() (string, error) {
	entryID, err := c.scheduler.Register(c.spec, NewLedgerReconcileTask(), asynq.Queue(c.queue), asynq.MaxRetry(1))
	if err != nil {
		return "", fmt.Errorf("register ledger reconcile: %w", err)
	}
	c.log.Info("ledger reconciliation scheduled", "cron", c.spec, "entryId", entryID)
	return entryID, nil
}

func (c *Cron) Run(ctx context.Context) {
	if c == nil || c.scheduler == nil {
		return
	}

	if err := c.scheduler.Start(); err != nil {
		c.log.Error("scheduler cron stopped", "error", err)
		return
	}
	<-ctx.Done()
	c.scheduler.Shutdown()
}
