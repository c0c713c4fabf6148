package scheduler

import (
	"context"

	"orderdesk_backend/internal/events"
	"orderdesk_backend/platform/logger"
)

// SubscribeLowStockAlerts turns LowStockReached events into queued alert tasks.
func SubscribeLowStockAlerts(bus events.Bus, enqueuer LowStockEnqueuer, log *logger.Logger) {
	bus.Subscribe(events.LowStockReached{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LowStockReached)
		if !ok {
			return nil
		}
		err := enqueuer.EnqueueLowStockAlert(ctx, LowStockAlertPayload{
			ProductID:   e.ProductID.String(),
			ProductName: e.ProductName,
			Stock:       e.Stock,
			Threshold:   e.Threshold,
		})
		if err != nil {
			log.Warn("low stock alert enqueue failed", "productId", e.ProductID, "error", err)
			return err
		}
		return nil
	}))
}
