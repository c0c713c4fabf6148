package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/orders/domain"
	"orderdesk_backend/internal/orders/repository"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/phone"
)

// LeadConversion is the lead data copied onto the order it converts into.
type LeadConversion struct {
	LeadID          uuid.UUID
	CustomerName    string
	CustomerPhone   string
	CustomerCity    string
	CustomerAddress string
	ProductID       *uuid.UUID
	Quantity        int
	Items           []ConversionItem
	AgentID         *uuid.UUID
	AgentName       *string
	Notes           string
}

// ConversionItem is one lead line item.
type ConversionItem struct {
	ProductID   *uuid.UUID
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// ConvertLead creates the order for a lead the first time it reaches a
// converting status and moves the order to the status the lead maps to.
// At most one order exists per lead; later conversions reuse it. A lead
// without name and phone is not converted and the zero id is returned.
func (s *Service) ConvertLead(ctx context.Context, conv LeadConversion, leadStatus string, actor authz.Actor) (uuid.UUID, bool, error) {
	if strings.TrimSpace(conv.CustomerName) == "" && strings.TrimSpace(conv.CustomerPhone) == "" {
		s.log.Info("lead conversion skipped: no contact data", "leadId", conv.LeadID)
		return uuid.Nil, false, nil
	}

	var (
		orderID uuid.UUID
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		params := repository.CreateOrderParams{
			ProductID:       conv.ProductID,
			Quantity:        conv.Quantity,
			CustomerName:    strings.TrimSpace(conv.CustomerName),
			CustomerPhone:   phone.NormalizeE164(conv.CustomerPhone),
			CustomerCity:    strings.TrimSpace(conv.CustomerCity),
			CustomerAddress: strings.TrimSpace(conv.CustomerAddress),
			Status:          domain.StatusPending,
			SourceLeadID:    &conv.LeadID,
			Notes:           conv.Notes,
			CreatedBy:       actorID(actor),
		}
		if params.Quantity <= 0 {
			params.Quantity = 1
		}
		if conv.AgentID != nil {
			now := time.Now().UTC()
			params.Assignment = repository.Assignment{
				AgentID:        conv.AgentID,
				AgentName:      conv.AgentName,
				AssignedAt:     &now,
				AssignedByName: &actor.DisplayName,
			}
		}
		if conv.ProductID != nil && len(conv.Items) == 0 {
			product, err := s.products.GetProductSnapshot(ctx, *conv.ProductID)
			if err != nil {
				return err
			}
			params.UnitPrice = product.Price
		}

		order, isNew, err := s.repo.CreateFromLead(ctx, params)
		if err != nil {
			return err
		}
		orderID, created = order.ID, isNew

		if isNew {
			items := make([]repository.LineItem, 0, len(conv.Items))
			for _, it := range conv.Items {
				items = append(items, repository.LineItem{
					ProductID:   it.ProductID,
					Description: it.Description,
					Quantity:    it.Quantity,
					UnitPrice:   it.UnitPrice,
				})
			}
			if err := s.persistItems(ctx, order, items); err != nil {
				return err
			}
			if err := s.repo.AppendHistory(ctx, repository.HistoryEntry{
				OrderID:   order.ID,
				ToStatus:  domain.StatusPending,
				ActorID:   actorID(actor),
				ActorName: actor.DisplayName,
			}); err != nil {
				return err
			}
		}

		if err := s.TransitionFromLead(ctx, order.ID, domain.OrderStatusForLead(leadStatus), actor); err != nil {
			return err
		}

		if isNew {
			db.AfterCommit(ctx, func(ctx context.Context) {
				s.log.Info("lead converted", "leadId", conv.LeadID, "orderId", order.ID)
				s.bus.Publish(ctx, events.LeadConverted{
					BaseEvent: events.NewBaseEvent(),
					LeadID:    conv.LeadID,
					OrderID:   order.ID,
				})
			})
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	return orderID, created, nil
}

// DetachLead clears the source lead reference of its order, used when the lead is purged.
func (s *Service) DetachLead(ctx context.Context, leadID uuid.UUID) error {
	return s.repo.ClearSourceLead(ctx, leadID)
}
