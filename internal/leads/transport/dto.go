package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeadItemRequest describes one requested product line.
type LeadItemRequest struct {
	ProductID   *uuid.UUID       `json:"productId"`
	Description string           `json:"description" validate:"max=500"`
	Quantity    int              `json:"quantity" validate:"required,min=1"`
	UnitPrice   *decimal.Decimal `json:"unitPrice"`
}

// CreateLeadRequest creates a lead.
type CreateLeadRequest struct {
	Name      string            `json:"name" validate:"max=200"`
	Phone     string            `json:"phone" validate:"required,notblank,max=50"`
	City      string            `json:"city" validate:"max=120"`
	Address   string            `json:"address" validate:"max=500"`
	ProductID *uuid.UUID        `json:"productId"`
	Quantity  int               `json:"quantity" validate:"omitempty,min=1"`
	UnitPrice *decimal.Decimal  `json:"unitPrice"`
	Items     []LeadItemRequest `json:"items" validate:"omitempty,max=100,dive"`
	Notes     string            `json:"notes" validate:"max=2000"`
}

// UpdateLeadRequest patches a lead. Items replace the whole set when present;
// Status runs the lead transition after the field changes.
type UpdateLeadRequest struct {
	Name      *string            `json:"name" validate:"omitempty,max=200"`
	Phone     *string            `json:"phone" validate:"omitempty,max=50"`
	City      *string            `json:"city" validate:"omitempty,max=120"`
	Address   *string            `json:"address" validate:"omitempty,max=500"`
	ProductID *uuid.UUID         `json:"productId"`
	Quantity  *int               `json:"quantity" validate:"omitempty,min=1"`
	UnitPrice *decimal.Decimal   `json:"unitPrice"`
	Notes     *string            `json:"notes" validate:"omitempty,max=2000"`
	Items     *[]LeadItemRequest `json:"items" validate:"omitempty,max=100,dive"`
	Status    *string            `json:"status"`
}

// TransitionRequest records a call outcome as the new lead status.
type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
}

// ListLeadsRequest filters the lead list.
type ListLeadsRequest struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
	Status     string `form:"status"`
	AgentID    string `form:"agentId" validate:"omitempty,uuid"`
	Unassigned bool   `form:"unassigned"`
	Search     string `form:"search" validate:"max=100"`
	SortBy     string `form:"sortBy" validate:"omitempty,oneof=createdAt updatedAt name status"`
	SortOrder  string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// LeadResponse is the lead summary.
type LeadResponse struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Phone             string          `json:"phone"`
	City              string          `json:"city"`
	Address           string          `json:"address"`
	ProductID         *uuid.UUID      `json:"productId,omitempty"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	Status            string          `json:"status"`
	AssignedAgentID   *uuid.UUID      `json:"assignedAgentId,omitempty"`
	AssignedAgentName *string         `json:"assignedAgentName,omitempty"`
	AssignedAt        *time.Time      `json:"assignedAt,omitempty"`
	AssignedByName    *string         `json:"assignedByName,omitempty"`
	Notes             string          `json:"notes"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// LeadItemResponse is one lead line.
type LeadItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"productId,omitempty"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// CallLogResponse is one recorded call outcome.
type CallLogResponse struct {
	Outcome   string    `json:"outcome"`
	ActorName string    `json:"actorName"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// LeadDetailResponse is a lead with its items and call log.
type LeadDetailResponse struct {
	LeadResponse
	Items    []LeadItemResponse `json:"items"`
	CallLogs []CallLogResponse  `json:"callLogs"`
}

// LeadListResponse is a page of leads.
type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// TransitionResponse reports the lead after a transition and the linked order, if any.
type TransitionResponse struct {
	Lead    LeadResponse `json:"lead"`
	Changed bool         `json:"changed"`
	OrderID *uuid.UUID   `json:"orderId,omitempty"`
}
