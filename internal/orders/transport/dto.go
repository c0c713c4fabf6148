package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orderdesk_backend/internal/shared/bulk"
)

// LineItemRequest describes one order line. Without a unit price the catalog
// price of ProductID is used.
type LineItemRequest struct {
	ProductID   *uuid.UUID       `json:"productId"`
	Description string           `json:"description" validate:"max=500"`
	Quantity    int              `json:"quantity" validate:"required,min=1"`
	UnitPrice   *decimal.Decimal `json:"unitPrice"`
}

// CreateOrderRequest creates an order either from items or from the legacy
// product/quantity/price triple.
type CreateOrderRequest struct {
	CustomerName    string            `json:"customerName" validate:"max=200"`
	CustomerPhone   string            `json:"customerPhone" validate:"max=50"`
	CustomerCity    string            `json:"customerCity" validate:"max=120"`
	CustomerAddress string            `json:"customerAddress" validate:"max=500"`
	ProductID       *uuid.UUID        `json:"productId"`
	Quantity        int               `json:"quantity" validate:"omitempty,min=1"`
	UnitPrice       *decimal.Decimal  `json:"unitPrice"`
	Items           []LineItemRequest `json:"items" validate:"omitempty,max=100,dive"`
	Notes           string            `json:"notes" validate:"max=2000"`
}

// UpdateOrderRequest patches order fields. Omitted fields are unchanged.
type UpdateOrderRequest struct {
	CustomerName    *string          `json:"customerName" validate:"omitempty,max=200"`
	CustomerPhone   *string          `json:"customerPhone" validate:"omitempty,max=50"`
	CustomerCity    *string          `json:"customerCity" validate:"omitempty,max=120"`
	CustomerAddress *string          `json:"customerAddress" validate:"omitempty,max=500"`
	Notes           *string          `json:"notes" validate:"omitempty,max=2000"`
	ProductID       *uuid.UUID       `json:"productId"`
	Quantity        *int             `json:"quantity" validate:"omitempty,min=1"`
	UnitPrice       *decimal.Decimal `json:"unitPrice"`
}

// TransitionRequest requests a status change.
type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// AddNoteRequest adds a note.
type AddNoteRequest struct {
	Body string `json:"body" validate:"required,notblank,max=2000"`
}

// ReplaceItemsRequest replaces all line items.
type ReplaceItemsRequest struct {
	Items []LineItemRequest `json:"items" validate:"max=100,dive"`
}

// PatchItemRequest patches one line item.
type PatchItemRequest struct {
	Description *string          `json:"description" validate:"omitempty,max=500"`
	Quantity    *int             `json:"quantity" validate:"omitempty,min=1"`
	UnitPrice   *decimal.Decimal `json:"unitPrice"`
}

// ListOrdersRequest filters the order list.
type ListOrdersRequest struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
	Status     string `form:"status"`
	AgentID    string `form:"agentId" validate:"omitempty,uuid"`
	Unassigned bool   `form:"unassigned"`
	From       string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Search     string `form:"search" validate:"max=100"`
	SortBy     string `form:"sortBy" validate:"omitempty,oneof=createdAt status total customerName displayCode"`
	SortOrder  string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// BulkStatusRequest moves several orders to one status.
type BulkStatusRequest struct {
	OrderIDs []uuid.UUID `json:"orderIds" validate:"required,min=1,max=200"`
	Status   string      `json:"status" validate:"required"`
}

// OrderResponse is the order summary.
type OrderResponse struct {
	ID                uuid.UUID       `json:"id"`
	DisplayCode       string          `json:"displayCode"`
	ProductID         *uuid.UUID      `json:"productId,omitempty"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	CustomerName      string          `json:"customerName"`
	CustomerPhone     string          `json:"customerPhone"`
	CustomerCity      string          `json:"customerCity"`
	CustomerAddress   string          `json:"customerAddress"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	Status            string          `json:"status"`
	StockDeducted     bool            `json:"stockDeducted"`
	AssignedAgentID   *uuid.UUID      `json:"assignedAgentId,omitempty"`
	AssignedAgentName *string         `json:"assignedAgentName,omitempty"`
	AssignedAt        *time.Time      `json:"assignedAt,omitempty"`
	AssignedByName    *string         `json:"assignedByName,omitempty"`
	SourceLeadID      *uuid.UUID      `json:"sourceLeadId,omitempty"`
	Notes             string          `json:"notes"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// LineItemResponse is one order line.
type LineItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"productId,omitempty"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// HistoryResponse is one status change.
type HistoryResponse struct {
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ActorName  string    `json:"actorName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NoteResponse is one note.
type NoteResponse struct {
	ID         uuid.UUID `json:"id"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PhoneMatchResponse is another record sharing the customer phone.
type PhoneMatchResponse struct {
	Kind   string    `json:"kind"`
	ID     uuid.UUID `json:"id"`
	Label  string    `json:"label"`
	Status string    `json:"status"`
}

// OrderDetailResponse is an order with its items, history, notes and phone duplicates.
type OrderDetailResponse struct {
	OrderResponse
	Items          []LineItemResponse   `json:"items"`
	History        []HistoryResponse    `json:"history"`
	NoteEntries    []NoteResponse       `json:"noteEntries"`
	DuplicatePhone []PhoneMatchResponse `json:"duplicatePhone"`
}

// OrderListResponse is a page of orders.
type OrderListResponse struct {
	Items      []OrderResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

// TransitionResponse reports the order after a transition request.
type TransitionResponse struct {
	Order   OrderResponse `json:"order"`
	Changed bool          `json:"changed"`
}

// BulkResponse is the per-item outcome of a bulk request.
type BulkResponse = bulk.Report
