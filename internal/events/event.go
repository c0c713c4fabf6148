// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"orderdesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Orders Domain Events
// =============================================================================

// OrderStatusChanged is published after an order transition commits.
type OrderStatusChanged struct {
	BaseEvent
	OrderID   uuid.UUID `json:"orderId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ActorID   uuid.UUID `json:"actorId"`
	ActorName string    `json:"actorName"`
}

func (e OrderStatusChanged) EventName() string { return "orders.status.changed" }

// OrderAssigned is published when an order gets a new assignee or loses one.
type OrderAssigned struct {
	BaseEvent
	OrderID   uuid.UUID  `json:"orderId"`
	AgentID   *uuid.UUID `json:"agentId,omitempty"`
	AgentName string     `json:"agentName,omitempty"`
}

func (e OrderAssigned) EventName() string { return "orders.assigned" }

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadStatusChanged is published after a lead transition commits.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ActorID   uuid.UUID `json:"actorId"`
	ActorName string    `json:"actorName"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// LeadConverted is published when a lead transition created its order.
type LeadConverted struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	OrderID uuid.UUID `json:"orderId"`
}

func (e LeadConverted) EventName() string { return "leads.converted" }

// =============================================================================
// Inventory Domain Events
// =============================================================================

// LowStockReached is published when a ledger posting moves stock from above
// the product's threshold to at or below it.
type LowStockReached struct {
	BaseEvent
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Stock       int       `json:"stock"`
	Threshold   int       `json:"threshold"`
}

func (e LowStockReached) EventName() string { return "inventory.low_stock" }
