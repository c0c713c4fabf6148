package email

import "context"

// LowStockAlert describes a product whose stock fell to its threshold.
type LowStockAlert struct {
	ProductID   string
	ProductName string
	Stock       int
	Threshold   int
}

// DriftedProduct is one product whose ledger replay disagrees with its stock.
type DriftedProduct struct {
	ProductID     string
	StoredStock   int
	ReplayedStock int
}

type Sender interface {
	SendLowStockAlert(ctx context.Context, toEmail string, alert LowStockAlert) error
	SendLedgerDriftReport(ctx context.Context, toEmail string, drifted []DriftedProduct) error
}

type NoopSender struct{}

func (NoopSender) SendLowStockAlert(ctx context.Context, toEmail string, alert LowStockAlert) error {
	return nil
}

func (NoopSender) SendLedgerDriftReport(ctx context.Context, toEmail string, drifted []DriftedProduct) error {
	return nil
}
