// Package ports defines the interfaces the leads domain requires from other
// modules. Implementations live in internal/adapters.
package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orderdesk_backend/internal/authz"
)

// ConvertibleLead is the lead data handed to the order side on conversion.
type ConvertibleLead struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	City      string
	Address   string
	ProductID *uuid.UUID
	Quantity  int
	Items     []ConvertibleItem
	AgentID   *uuid.UUID
	AgentName *string
	Notes     string
}

// ConvertibleItem is one lead line copied onto the order.
type ConvertibleItem struct {
	ProductID   *uuid.UUID
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// OrderConverter creates or advances the order linked to a lead.
type OrderConverter interface {
	// ConvertLead returns the linked order id, or uuid.Nil when the lead was not converted.
	ConvertLead(ctx context.Context, lead ConvertibleLead, leadStatus string, actor authz.Actor) (uuid.UUID, error)
	// DetachLead clears the source lead reference of the linked order, if any.
	DetachLead(ctx context.Context, leadID uuid.UUID) error
}

// Product is the catalog data a lead line needs.
type Product struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
}

// ProductReader looks up catalog products.
type ProductReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
}
