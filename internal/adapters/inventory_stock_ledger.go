package adapters

import (
	"context"

	"github.com/google/uuid"

	"orderdesk_backend/internal/authz"
	invrepo "orderdesk_backend/internal/inventory/repository"
	invservice "orderdesk_backend/internal/inventory/service"
	"orderdesk_backend/internal/orders/ports"
)

const (
	shipmentNote = "order shipped"
	returnNote   = "order returned"
)

// InventoryStockLedger posts order shipments and returns to the inventory
// ledger. It satisfies ports.StockLedger.
type InventoryStockLedger struct {
	ledger *invservice.Service
}

// NewInventoryStockLedger creates a new ledger adapter.
func NewInventoryStockLedger(ledger *invservice.Service) *InventoryStockLedger {
	return &InventoryStockLedger{ledger: ledger}
}

// Deduct posts one order_deduction per line as a single batch.
func (a *InventoryStockLedger) Deduct(ctx context.Context, orderID uuid.UUID, lines []ports.StockLine, actor authz.Actor) error {
	_, err := a.ledger.PostBatch(ctx, postings(orderID, lines, -1, invrepo.ReasonOrderDeduction, shipmentNote), actor)
	return err
}

// Restore posts one order_return per line as a single batch.
func (a *InventoryStockLedger) Restore(ctx context.Context, orderID uuid.UUID, lines []ports.StockLine, actor authz.Actor) error {
	_, err := a.ledger.PostBatch(ctx, postings(orderID, lines, 1, invrepo.ReasonOrderReturn, returnNote), actor)
	return err
}

func postings(orderID uuid.UUID, lines []ports.StockLine, sign int, reason invrepo.Reason, note string) []invservice.Posting {
	id := orderID
	out := make([]invservice.Posting, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		out = append(out, invservice.Posting{
			ProductID: l.ProductID,
			Delta:     sign * l.Quantity,
			Reason:    reason,
			Note:      note,
			OrderID:   &id,
		})
	}
	return out
}

// InventoryStockInitializer posts the opening stock of new catalog products.
type InventoryStockInitializer struct {
	ledger *invservice.Service
}

// NewInventoryStockInitializer creates a new initializer adapter.
func NewInventoryStockInitializer(ledger *invservice.Service) *InventoryStockInitializer {
	return &InventoryStockInitializer{ledger: ledger}
}

// Restock posts a restock entry. A zero quantity posts nothing.
func (a *InventoryStockInitializer) Restock(ctx context.Context, productID uuid.UUID, quantity int, note string, actor authz.Actor) error {
	if quantity == 0 {
		return nil
	}
	_, err := a.ledger.Post(ctx, invservice.Posting{
		ProductID: productID,
		Delta:     quantity,
		Reason:    invrepo.ReasonRestock,
		Note:      note,
	}, actor)
	return err
}

// Compile-time check that InventoryStockLedger implements ports.StockLedger.
var _ ports.StockLedger = (*InventoryStockLedger)(nil)
