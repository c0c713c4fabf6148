package transport

import (
	"time"

	"github.com/google/uuid"
)

// RestockRequest adds stock to a product.
type RestockRequest struct {
	Quantity int    `json:"quantity" validate:"required"`
	Note     string `json:"note" validate:"max=500"`
}

// AdjustRequest corrects stock by a signed amount.
type AdjustRequest struct {
	Delta int    `json:"delta" validate:"required"`
	Note  string `json:"note" validate:"required,notblank,max=500"`
}

// ListEntriesRequest pages through a product's ledger.
type ListEntriesRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

// EntryResponse is one ledger entry.
type EntryResponse struct {
	ID            int64      `json:"id"`
	ProductID     uuid.UUID  `json:"productId"`
	ChangeAmount  int        `json:"changeAmount"`
	PreviousStock int        `json:"previousStock"`
	NewStock      int        `json:"newStock"`
	Reason        string     `json:"reason"`
	ActorID       *uuid.UUID `json:"actorId,omitempty"`
	ActorName     string     `json:"actorName"`
	Note          string     `json:"note,omitempty"`
	OrderID       *uuid.UUID `json:"orderId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// EntryListResponse is a page of ledger entries.
type EntryListResponse struct {
	Items      []EntryResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

// ReconcileResponse reports whether replaying the ledger reproduces stock.
type ReconcileResponse struct {
	ProductID     uuid.UUID `json:"productId"`
	StoredStock   int       `json:"storedStock"`
	ReplayedStock int       `json:"replayedStock"`
	EntryCount    int       `json:"entryCount"`
	Consistent    bool      `json:"consistent"`
	BrokenEntryID *int64    `json:"brokenEntryId,omitempty"`
}
