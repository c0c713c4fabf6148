package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Reason classifies a stock movement.
type Reason string

const (
	ReasonOrderDeduction Reason = "order_deduction"
	ReasonRestock        Reason = "restock"
	ReasonManualAdjust   Reason = "manual_adjust"
	ReasonOrderReturn    Reason = "order_return"
)

// Entry is one immutable ledger row.
type Entry struct {
	ID            int64
	ProductID     uuid.UUID
	ChangeAmount  int
	PreviousStock int
	NewStock      int
	Reason        Reason
	ActorID       *uuid.UUID
	ActorName     string
	Note          string
	OrderID       *uuid.UUID
	CreatedAt     time.Time
}

// StockRow is the stock projection of a product read under lock.
type StockRow struct {
	ProductID         uuid.UUID
	Name              string
	Stock             int
	LowStockThreshold int
}

// Repository defines ledger storage. It is the only writer of products.stock_quantity.
type Repository interface {
	// LockProducts reads stock rows FOR UPDATE in ascending id order.
	// A missing product yields a NotFound error.
	LockProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]StockRow, error)
	// ApplyDelta adds delta to stock only if the result stays non-negative and
	// returns the new stock. A refused update yields an OutOfStock error.
	ApplyDelta(ctx context.Context, productID uuid.UUID, delta int) (int, error)
	AppendEntry(ctx context.Context, entry Entry) (Entry, error)
	ListEntries(ctx context.Context, productID uuid.UUID, offset, limit int) ([]Entry, int, error)
	// ReplayEntries returns every entry of the product in posting order.
	ReplayEntries(ctx context.Context, productID uuid.UUID) ([]Entry, error)
	CurrentStock(ctx context.Context, productID uuid.UUID) (int, error)
	ListProductIDs(ctx context.Context) ([]uuid.UUID, error)
}
