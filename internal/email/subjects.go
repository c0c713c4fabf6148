package email

const (
	subjectLowStockFmt    = "Low stock: %s (%d left)"
	subjectLedgerDriftFmt = "Inventory ledger drift on %d products"
)
