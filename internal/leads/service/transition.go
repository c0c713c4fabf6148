package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/leads/domain"
	"orderdesk_backend/internal/leads/ports"
	"orderdesk_backend/internal/leads/repository"
	"orderdesk_backend/internal/leads/transport"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/sanitize"
)

const syncNote = "status mirrored from linked order"

type transitionResult struct {
	lead    repository.Lead
	changed bool
	orderID *uuid.UUID
}

// Transition records a call outcome as the new lead status. Entering a
// converting status creates or advances the linked order in the same transaction.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, req transport.TransitionRequest, actor authz.Actor) (transport.TransitionResponse, error) {
	if err := s.gate.Require(actor, authz.ActionLeadsTransition); err != nil {
		return transport.TransitionResponse{}, err
	}

	var res transitionResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.transition(ctx, id, strings.TrimSpace(req.Status), req.Note, actor)
		return err
	})
	if err != nil {
		return transport.TransitionResponse{}, err
	}
	return transport.TransitionResponse{
		Lead:    toLeadResponse(res.lead),
		Changed: res.changed,
		OrderID: res.orderID,
	}, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, target, note string, actor authz.Actor) (transitionResult, error) {
	if !domain.IsKnownStatus(target) {
		return transitionResult{}, apperr.Validation("unknown lead status")
	}

	lead, err := s.repo.GetForUpdate(ctx, id)
	if err != nil {
		return transitionResult{}, err
	}
	if err := checkOwnership(lead, actor); err != nil {
		return transitionResult{}, err
	}
	if lead.Status == target && !domain.CanTransition(lead.Status, target) {
		return transitionResult{lead: lead}, nil
	}
	if !domain.CanTransition(lead.Status, target) {
		return transitionResult{}, apperr.PreconditionFailed("cannot move lead from " + lead.Status + " to " + target)
	}

	if !actor.IsPrivileged() && domain.IsClaimStatus(target) && lead.AssignedAgentID == nil {
		a := selfAssignment(actor)
		if err := s.repo.SetAssignment(ctx, id, a); err != nil {
			return transitionResult{}, err
		}
		lead.AssignedAgentID, lead.AssignedAgentName = a.AgentID, a.AgentName
		lead.AssignedAt, lead.AssignedByName = a.AssignedAt, a.AssignedByName
	}

	if err := s.repo.SetStatus(ctx, id, target); err != nil {
		return transitionResult{}, err
	}
	if err := s.repo.AppendCallLog(ctx, repository.CallLogEntry{
		LeadID:    id,
		Outcome:   target,
		ActorID:   actorID(actor),
		ActorName: actor.DisplayName,
		Note:      sanitize.Text(note),
	}); err != nil {
		return transitionResult{}, err
	}

	from := lead.Status
	lead.Status = target
	res := transitionResult{lead: lead, changed: true}

	if domain.TriggersConversion(target) {
		orderID, err := s.convert(ctx, lead, target, actor)
		if err != nil {
			return transitionResult{}, err
		}
		if orderID != uuid.Nil {
			res.orderID = &orderID
		}
	}

	db.AfterCommit(ctx, func(ctx context.Context) {
		s.log.Transition("lead", id.String(), from, target, actor.DisplayName)
		s.bus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    id,
			From:      from,
			To:        target,
			ActorID:   actor.UserID,
			ActorName: actor.DisplayName,
		})
	})
	return res, nil
}

func (s *Service) convert(ctx context.Context, lead repository.Lead, status string, actor authz.Actor) (uuid.UUID, error) {
	items, err := s.repo.ListItems(ctx, lead.ID)
	if err != nil {
		return uuid.Nil, err
	}
	conv := ports.ConvertibleLead{
		ID:        lead.ID,
		Name:      lead.Name,
		Phone:     lead.Phone,
		City:      lead.City,
		Address:   lead.Address,
		ProductID: lead.ProductID,
		Quantity:  lead.Quantity,
		Items:     make([]ports.ConvertibleItem, len(items)),
		AgentID:   lead.AssignedAgentID,
		AgentName: lead.AssignedAgentName,
		Notes:     lead.Notes,
	}
	for i, it := range items {
		conv.Items[i] = ports.ConvertibleItem{
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	return s.orders.ConvertLead(ctx, conv, status, actor)
}

// LockLead locks the lead row inside the caller's transaction. A lead that
// no longer exists is ignored.
func (s *Service) LockLead(ctx context.Context, leadID uuid.UUID) error {
	_, err := s.repo.GetForUpdate(ctx, leadID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	return err
}

// SyncFromOrder writes a status mirrored from the linked order. It bypasses
// the lead graph and never converts. A lead that no longer exists is ignored.
func (s *Service) SyncFromOrder(ctx context.Context, leadID uuid.UUID, status string, actor authz.Actor) error {
	if !domain.IsKnownStatus(status) {
		return apperr.Validation("unknown lead status")
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lead, err := s.repo.GetForUpdate(ctx, leadID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil
			}
			return err
		}
		if lead.Status == status {
			return nil
		}
		if err := s.repo.SetStatus(ctx, leadID, status); err != nil {
			return err
		}
		if err := s.repo.AppendCallLog(ctx, repository.CallLogEntry{
			LeadID:    leadID,
			Outcome:   status,
			ActorID:   actorID(actor),
			ActorName: actor.DisplayName,
			Note:      syncNote,
		}); err != nil {
			return err
		}

		db.AfterCommit(ctx, func(ctx context.Context) {
			s.log.Transition("lead", leadID.String(), lead.Status, status, actor.DisplayName)
			s.bus.Publish(ctx, events.LeadStatusChanged{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    leadID,
				From:      lead.Status,
				To:        status,
				ActorID:   actor.UserID,
				ActorName: actor.DisplayName,
			})
		})
		return nil
	})
}

// unitPrice returns the explicit price, or the catalog price of productID.
func (s *Service) unitPrice(ctx context.Context, productID *uuid.UUID, explicit *decimal.Decimal) (decimal.Decimal, error) {
	if explicit != nil {
		if explicit.IsNegative() {
			return decimal.Zero, apperr.Validation("unit price must not be negative")
		}
		return *explicit, nil
	}
	if productID == nil {
		return decimal.Zero, nil
	}
	product, err := s.products.GetProduct(ctx, *productID)
	if err != nil {
		return decimal.Zero, err
	}
	return product.Price, nil
}
