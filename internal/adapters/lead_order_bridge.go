package adapters

import (
	"context"

	"github.com/google/uuid"

	"orderdesk_backend/internal/authz"
	leadports "orderdesk_backend/internal/leads/ports"
	leadservice "orderdesk_backend/internal/leads/service"
	orderports "orderdesk_backend/internal/orders/ports"
	orderservice "orderdesk_backend/internal/orders/service"
)

// OrderConverter hands converting leads to the orders service. It satisfies
// the leads domain's ports.OrderConverter.
type OrderConverter struct {
	orders *orderservice.Service
}

// NewOrderConverter creates a new converter adapter.
func NewOrderConverter(orders *orderservice.Service) *OrderConverter {
	return &OrderConverter{orders: orders}
}

// ConvertLead creates or advances the lead's order.
func (a *OrderConverter) ConvertLead(ctx context.Context, lead leadports.ConvertibleLead, leadStatus string, actor authz.Actor) (uuid.UUID, error) {
	conv := orderservice.LeadConversion{
		LeadID:          lead.ID,
		CustomerName:    lead.Name,
		CustomerPhone:   lead.Phone,
		CustomerCity:    lead.City,
		CustomerAddress: lead.Address,
		ProductID:       lead.ProductID,
		Quantity:        lead.Quantity,
		AgentID:         lead.AgentID,
		AgentName:       lead.AgentName,
		Notes:           lead.Notes,
	}
	for _, it := range lead.Items {
		conv.Items = append(conv.Items, orderservice.ConversionItem{
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}

	orderID, _, err := a.orders.ConvertLead(ctx, conv, leadStatus, actor)
	return orderID, err
}

// DetachLead clears the source lead of the linked order.
func (a *OrderConverter) DetachLead(ctx context.Context, leadID uuid.UUID) error {
	return a.orders.DetachLead(ctx, leadID)
}

// LeadStatusSync mirrors order transitions onto source leads. It satisfies
// the orders domain's ports.LeadStatusSync.
type LeadStatusSync struct {
	leads *leadservice.Service
}

// NewLeadStatusSync creates a new sync adapter.
func NewLeadStatusSync(leads *leadservice.Service) *LeadStatusSync {
	return &LeadStatusSync{leads: leads}
}

// LockLead takes the lead's row lock in the caller's transaction.
func (a *LeadStatusSync) LockLead(ctx context.Context, leadID uuid.UUID) error {
	return a.leads.LockLead(ctx, leadID)
}

// SyncFromOrder writes the mapped status onto the lead.
func (a *LeadStatusSync) SyncFromOrder(ctx context.Context, leadID uuid.UUID, leadStatus string, actor authz.Actor) error {
	return a.leads.SyncFromOrder(ctx, leadID, leadStatus, actor)
}

var (
	_ leadports.OrderConverter  = (*OrderConverter)(nil)
	_ orderports.LeadStatusSync = (*LeadStatusSync)(nil)
)
