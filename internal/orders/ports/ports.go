// Package ports defines consumer-driven interfaces for what the orders domain
// needs from other modules. Implementations live in internal/adapters.
package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orderdesk_backend/internal/authz"
)

// StockLine is a product quantity moved by a shipment or return.
type StockLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// StockLedger moves stock for order transitions. Both calls are all-or-nothing
// and join the caller's transaction.
type StockLedger interface {
	// Deduct fails with an OutOfStock error when any line cannot be covered.
	Deduct(ctx context.Context, orderID uuid.UUID, lines []StockLine, actor authz.Actor) error
	Restore(ctx context.Context, orderID uuid.UUID, lines []StockLine, actor authz.Actor) error
}

// LeadStatusSync mirrors an order status change onto the order's source lead.
// Lead rows are locked before order rows on every path, so an order
// transition calls LockLead before it locks the order.
type LeadStatusSync interface {
	LockLead(ctx context.Context, leadID uuid.UUID) error
	SyncFromOrder(ctx context.Context, leadID uuid.UUID, leadStatus string, actor authz.Actor) error
}

// ProductSnapshot is the catalog data an order line needs.
type ProductSnapshot struct {
	ID       uuid.UUID
	Name     string
	Price    decimal.Decimal
	IsActive bool
}

// ProductReader looks up catalog products.
type ProductReader interface {
	GetProductSnapshot(ctx context.Context, id uuid.UUID) (ProductSnapshot, error)
}

// PhoneMatch is another order or lead sharing a phone number.
type PhoneMatch struct {
	Kind   string
	ID     uuid.UUID
	Label  string
	Status string
}

// DuplicatePhoneFinder finds records that share a phone number.
type DuplicatePhoneFinder interface {
	FindPhoneMatches(ctx context.Context, phone string, excludeOrderID *uuid.UUID) ([]PhoneMatch, error)
}
