package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLowStockAlert = "inventory.low_stock_alert"

const TaskLedgerReconcile = "inventory.ledger_reconcile"

type LowStockAlertPayload struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Stock       int    `json:"stock"`
	Threshold   int    `json:"threshold"`
}

func NewLowStockAlertTask(payload LowStockAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, data), nil
}

func ParseLowStockAlertPayload(task *asynq.Task) (LowStockAlertPayload, error) {
	var payload LowStockAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LowStockAlertPayload{}, err
	}
	return payload, nil
}

func NewLedgerReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerReconcile, nil)
}
