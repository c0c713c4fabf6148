package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the persisted order row.
type Order struct {
	ID                uuid.UUID
	DisplayCode       string
	ProductID         *uuid.UUID
	Quantity          int
	UnitPrice         decimal.Decimal
	CustomerName      string
	CustomerPhone     string
	CustomerCity      string
	CustomerAddress   string
	TotalAmount       decimal.Decimal
	Status            string
	StockDeducted     bool
	AssignedAgentID   *uuid.UUID
	AssignedAgentName *string
	AssignedAt        *time.Time
	AssignedByName    *string
	SourceLeadID      *uuid.UUID
	Notes             string
	CreatedBy         *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasCompleteCustomerData reports whether name, phone, city and address are all set.
func (o Order) HasCompleteCustomerData() bool {
	for _, v := range []string{o.CustomerName, o.CustomerPhone, o.CustomerCity, o.CustomerAddress} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// LineItem is one priced line of an order. ProductID is nil for freeform lines.
type LineItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   *uuid.UUID
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	Position    int
}

// HistoryEntry is an immutable status change record.
type HistoryEntry struct {
	ID         int64
	OrderID    uuid.UUID
	FromStatus string
	ToStatus   string
	ActorID    *uuid.UUID
	ActorName  string
	CreatedAt  time.Time
}

// Note is a free text note on an order.
type Note struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	AuthorID   *uuid.UUID
	AuthorName string
	Body       string
	CreatedAt  time.Time
}

// Assignment is the assignee stamp written on an order. A nil AgentID clears it.
type Assignment struct {
	AgentID        *uuid.UUID
	AgentName      *string
	AssignedAt     *time.Time
	AssignedByName *string
}

// CreateOrderParams contains data for creating an order.
type CreateOrderParams struct {
	ProductID       *uuid.UUID
	Quantity        int
	UnitPrice       decimal.Decimal
	CustomerName    string
	CustomerPhone   string
	CustomerCity    string
	CustomerAddress string
	Status          string
	Assignment      Assignment
	SourceLeadID    *uuid.UUID
	Notes           string
	CreatedBy       *uuid.UUID
}

// UpdateCustomerParams contains the patchable order fields. Nil means unchanged.
type UpdateCustomerParams struct {
	ID              uuid.UUID
	CustomerName    *string
	CustomerPhone   *string
	CustomerCity    *string
	CustomerAddress *string
	Notes           *string
	ProductID       *uuid.UUID
	Quantity        *int
	UnitPrice       *decimal.Decimal
}

// ListParams defines filters for listing orders.
type ListParams struct {
	Status          string
	AssignedAgentID *uuid.UUID
	Unassigned      bool
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Search          string
	Offset          int
	Limit           int
	SortBy          string
	SortOrder       string
}

// Repository defines order storage operations. Methods join the transaction
// carried by ctx when there is one.
type Repository interface {
	Create(ctx context.Context, params CreateOrderParams) (Order, error)
	// CreateFromLead inserts an order for params.SourceLeadID unless one exists.
	// It returns the order for the lead and whether this call created it.
	CreateFromLead(ctx context.Context, params CreateOrderParams) (Order, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (Order, error)
	// GetForUpdate reads the order and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (Order, error)
	GetBySourceLead(ctx context.Context, leadID uuid.UUID) (Order, error)
	List(ctx context.Context, params ListParams) ([]Order, int, error)
	UpdateCustomer(ctx context.Context, params UpdateCustomerParams) (Order, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string, stockDeducted bool) error
	SetAssignment(ctx context.Context, id uuid.UUID, assignment Assignment) error
	SetTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	ClearSourceLead(ctx context.Context, leadID uuid.UUID) error
	Purge(ctx context.Context, id uuid.UUID) error

	ListItems(ctx context.Context, orderID uuid.UUID) ([]LineItem, error)
	// ReplaceItems swaps the full item set of an order.
	ReplaceItems(ctx context.Context, orderID uuid.UUID, items []LineItem) error

	AppendHistory(ctx context.Context, entry HistoryEntry) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]HistoryEntry, error)

	AddNote(ctx context.Context, note Note) (Note, error)
	ListNotes(ctx context.Context, orderID uuid.UUID) ([]Note, error)
}
