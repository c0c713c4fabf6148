package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/orders/domain"
	"orderdesk_backend/internal/orders/ports"
	"orderdesk_backend/internal/orders/repository"
	"orderdesk_backend/internal/orders/transport"
	"orderdesk_backend/internal/shared/bulk"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
)

// Transition moves an order to target, applying stock effects and mirroring
// the change onto the source lead, all in one transaction. Requesting the
// current status succeeds without changes.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target string, actor authz.Actor) (transport.TransitionResponse, error) {
	if err := s.gate.Require(actor, authz.ActionOrdersTransition); err != nil {
		return transport.TransitionResponse{}, err
	}
	order, changed, err := s.transition(ctx, id, strings.TrimSpace(target), actor, true)
	if err != nil {
		return transport.TransitionResponse{}, err
	}
	return transport.TransitionResponse{Order: toOrderResponse(order), Changed: changed}, nil
}

// BulkTransition transitions each order independently. Orders already at the
// target are skipped; refused or failed ones are reported without stopping the batch.
func (s *Service) BulkTransition(ctx context.Context, req transport.BulkStatusRequest, actor authz.Actor) (transport.BulkResponse, error) {
	if err := s.gate.Require(actor, authz.ActionOrdersTransition); err != nil {
		return transport.BulkResponse{}, err
	}
	target := strings.TrimSpace(req.Status)
	if !domain.IsKnownStatus(target) {
		return transport.BulkResponse{}, apperr.Validation("unknown order status")
	}

	report := bulk.NewReport(len(req.OrderIDs))
	for _, id := range req.OrderIDs {
		_, changed, err := s.transition(ctx, id, target, actor, true)
		switch {
		case err != nil:
			report.AddFailed(id, err)
		case !changed:
			report.AddSkipped(id, "already "+target)
		default:
			report.AddUpdated(id)
		}
	}
	s.log.Info("bulk order transition", "status", target, "updated", report.Updated,
		"skipped", report.Skipped, "failed", report.Failed, "actor", actor.DisplayName)
	return *report, nil
}

// TransitionFromLead applies a lead-driven status to the order without
// mirroring it back. When the order graph or the data requirements refuse the
// move, the order is left untouched.
func (s *Service) TransitionFromLead(ctx context.Context, id uuid.UUID, target string, actor authz.Actor) error {
	_, _, err := s.transition(ctx, id, target, actor, false)
	if apperr.Is(err, apperr.KindPreconditionFailed) {
		s.log.Info("lead-driven order transition refused", "orderId", id, "status", target, "reason", err.Error())
		return nil
	}
	return err
}

// transition runs the order engine. direct marks a request made on the order
// itself: the caller must be allowed to see the order and the new status is
// mirrored onto the source lead. Lead-driven calls already hold the lead lock.
func (s *Service) transition(ctx context.Context, id uuid.UUID, target string, actor authz.Actor, direct bool) (repository.Order, bool, error) {
	if !domain.IsKnownStatus(target) {
		return repository.Order{}, false, apperr.Validation("unknown order status")
	}

	var (
		result  repository.Order
		changed bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		syncLead := direct && s.leads != nil
		if syncLead {
			if err := s.lockSourceLead(ctx, id); err != nil {
				return err
			}
		}

		order, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if direct {
			if err := s.checkVisible(order, actor); err != nil {
				return err
			}
		}
		if !s.gate.CanSetOrderStatus(actor, target) {
			return apperr.Forbidden("role may not set order status " + target)
		}
		if order.Status != target && !domain.CanTransition(order.Status, target) {
			return apperr.PreconditionFailed("cannot move order from " + order.Status + " to " + target)
		}
		if domain.RequiresCompleteData(target) && !order.HasCompleteCustomerData() {
			return apperr.PreconditionFailed("customer name, phone, city and address are required for " + target).
				WithDetails(map[string][]string{"missing": missingCustomerFields(order)})
		}
		if order.Status == target {
			result = order
			return nil
		}

		deducted, err := s.applyStockEffect(ctx, order, target, actor)
		if err != nil {
			return err
		}
		if err := s.repo.SetStatus(ctx, id, target, deducted); err != nil {
			return err
		}
		if err := s.repo.AppendHistory(ctx, repository.HistoryEntry{
			OrderID:    id,
			FromStatus: order.Status,
			ToStatus:   target,
			ActorID:    actorID(actor),
			ActorName:  actor.DisplayName,
		}); err != nil {
			return err
		}

		if syncLead && order.SourceLeadID != nil {
			if leadStatus, ok := domain.LeadStatusFor(target); ok {
				if err := s.leads.SyncFromOrder(ctx, *order.SourceLeadID, leadStatus, actor); err != nil {
					return err
				}
			}
		}

		from := order.Status
		order.Status = target
		order.StockDeducted = deducted
		result = order
		changed = true

		db.AfterCommit(ctx, func(ctx context.Context) {
			s.log.Transition("order", id.String(), from, target, actor.DisplayName)
			s.bus.Publish(ctx, events.OrderStatusChanged{
				BaseEvent: events.NewBaseEvent(),
				OrderID:   id,
				From:      from,
				To:        target,
				ActorID:   actor.UserID,
				ActorName: actor.DisplayName,
			})
		})
		return nil
	})
	if err != nil {
		return repository.Order{}, false, err
	}
	return result, changed, nil
}

// applyStockEffect deducts stock on the first move into shipped and restores
// it on return. The returned flag is the order's new stock_deducted value.
// lockSourceLead locks the order's source lead, if any, before the order row
// is locked. source_lead_id is only ever set at creation or cleared, so the
// unlocked read cannot name a different lead than the locked row.
func (s *Service) lockSourceLead(ctx context.Context, id uuid.UUID) error {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order.SourceLeadID == nil {
		return nil
	}
	return s.leads.LockLead(ctx, *order.SourceLeadID)
}

func (s *Service) applyStockEffect(ctx context.Context, order repository.Order, target string, actor authz.Actor) (bool, error) {
	switch {
	case target == domain.StatusShipped && !order.StockDeducted:
		lines, err := s.stockLines(ctx, order)
		if err != nil {
			return false, err
		}
		if err := s.stock.Deduct(ctx, order.ID, lines, actor); err != nil {
			var appErr *apperr.Error
			if errors.As(err, &appErr) && appErr.Kind == apperr.KindOutOfStock {
				return false, apperr.InsufficientStock("not enough stock to ship order " + order.DisplayCode).
					WithDetails(appErr.Details)
			}
			return false, err
		}
		return true, nil
	case target == domain.StatusReturned && order.StockDeducted:
		lines, err := s.stockLines(ctx, order)
		if err != nil {
			return false, err
		}
		if err := s.stock.Restore(ctx, order.ID, lines, actor); err != nil {
			return false, err
		}
		return false, nil
	default:
		return order.StockDeducted, nil
	}
}

// stockLines derives the stock movement of an order: catalog-backed items, or
// the legacy product and quantity when the order has no items at all.
func (s *Service) stockLines(ctx context.Context, order repository.Order) ([]ports.StockLine, error) {
	items, err := s.repo.ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		if order.ProductID == nil || order.Quantity <= 0 {
			return nil, nil
		}
		return []ports.StockLine{{ProductID: *order.ProductID, Quantity: order.Quantity}}, nil
	}

	lines := make([]ports.StockLine, 0, len(items))
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		lines = append(lines, ports.StockLine{ProductID: *item.ProductID, Quantity: item.Quantity})
	}
	return lines, nil
}

func missingCustomerFields(order repository.Order) []string {
	fields := [...]struct{ name, value string }{
		{"customerName", order.CustomerName},
		{"customerPhone", order.CustomerPhone},
		{"customerCity", order.CustomerCity},
		{"customerAddress", order.CustomerAddress},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
