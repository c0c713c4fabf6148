// Package service implements the lead lifecycle: intake, call outcomes with
// ownership rules, conversion into orders and purge.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/leads/domain"
	"orderdesk_backend/internal/leads/ports"
	"orderdesk_backend/internal/leads/repository"
	"orderdesk_backend/internal/leads/transport"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/phone"
	"orderdesk_backend/platform/sanitize"
)

// Service provides business logic for leads.
type Service struct {
	repo     repository.Repository
	tx       db.Transactor
	gate     *authz.Gate
	orders   ports.OrderConverter
	products ports.ProductReader
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new leads service.
func New(repo repository.Repository, tx db.Transactor, gate *authz.Gate, orders ports.OrderConverter, products ports.ProductReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		gate:     gate,
		orders:   orders,
		products: products,
		bus:      bus,
		log:      log,
	}
}

// Create creates a lead in not_contacted.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest, actor authz.Actor) (transport.LeadDetailResponse, error) {
	if err := s.gate.Require(actor, authz.ActionLeadsWrite); err != nil {
		return transport.LeadDetailResponse{}, err
	}

	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}
	params := repository.CreateLeadParams{
		Name:      strings.TrimSpace(req.Name),
		Phone:     phone.NormalizeE164(req.Phone),
		City:      strings.TrimSpace(req.City),
		Address:   strings.TrimSpace(req.Address),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Status:    domain.StatusNotContacted,
		Notes:     sanitize.Text(req.Notes),
	}
	if params.Quantity == 0 {
		params.Quantity = 1
	}
	if params.UnitPrice, err = s.unitPrice(ctx, req.ProductID, req.UnitPrice); err != nil {
		return transport.LeadDetailResponse{}, err
	}

	var leadID uuid.UUID
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lead, err := s.repo.Create(ctx, params)
		if err != nil {
			return err
		}
		leadID = lead.ID
		if len(items) > 0 {
			return s.repo.ReplaceItems(ctx, lead.ID, items)
		}
		return nil
	})
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}

	s.log.Info("lead created", "leadId", leadID, "actor", actor.DisplayName)
	return s.detail(ctx, leadID)
}

// Get returns a lead with its items and call log.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor authz.Actor) (transport.LeadDetailResponse, error) {
	if err := s.gate.Require(actor, authz.ActionLeadsRead); err != nil {
		return transport.LeadDetailResponse{}, err
	}
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}
	if err := checkOwnership(lead, actor); err != nil {
		return transport.LeadDetailResponse{}, err
	}
	return s.detail(ctx, id)
}

// List lists leads. Scoped callers see their own leads and unclaimed ones.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest, actor authz.Actor) (transport.LeadListResponse, error) {
	if err := s.gate.Require(actor, authz.ActionLeadsRead); err != nil {
		return transport.LeadListResponse{}, err
	}

	page, pageSize := normalizePaging(req.Page, req.PageSize)
	params := repository.ListParams{
		Status:     strings.TrimSpace(req.Status),
		Unassigned: req.Unassigned,
		Search:     strings.TrimSpace(req.Search),
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}
	if params.Status != "" && !domain.IsKnownStatus(params.Status) {
		return transport.LeadListResponse{}, apperr.Validation("unknown lead status")
	}
	if req.AgentID != "" {
		agentID, err := uuid.Parse(req.AgentID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid agent id")
		}
		params.AssignedAgentID = &agentID
	}
	if !actor.IsPrivileged() {
		self := actor.UserID
		params.VisibleTo = &self
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}
	items := make([]transport.LeadResponse, len(leads))
	for i, l := range leads {
		items[i] = toLeadResponse(l)
	}
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// Update patches lead fields and items. A status in the request runs the
// transition, including conversion, in the same transaction.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest, actor authz.Actor) (transport.LeadDetailResponse, error) {
	if err := s.gate.Require(actor, authz.ActionLeadsWrite); err != nil {
		return transport.LeadDetailResponse{}, err
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return transport.LeadDetailResponse{}, apperr.Validation("unit price must not be negative")
	}

	var items []repository.LineItem
	if req.Items != nil {
		resolved, err := s.resolveItems(ctx, *req.Items)
		if err != nil {
			return transport.LeadDetailResponse{}, err
		}
		items = resolved
	}

	params := repository.UpdateLeadParams{
		ID:        id,
		Name:      trimPtr(req.Name),
		City:      trimPtr(req.City),
		Address:   trimPtr(req.Address),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Notes:     sanitize.TextPtr(req.Notes),
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lead, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkOwnership(lead, actor); err != nil {
			return err
		}
		if _, err := s.repo.Update(ctx, params); err != nil {
			return err
		}
		if req.Items != nil {
			if err := s.repo.ReplaceItems(ctx, id, items); err != nil {
				return err
			}
		}
		if req.Status != nil {
			if err := s.gate.Require(actor, authz.ActionLeadsTransition); err != nil {
				return err
			}
			_, err := s.transition(ctx, id, strings.TrimSpace(*req.Status), "", actor)
			return err
		}
		return nil
	})
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}
	return s.detail(ctx, id)
}

// Take claims an unclaimed lead for the caller without changing its status.
func (s *Service) Take(ctx context.Context, id uuid.UUID, actor authz.Actor) (transport.LeadResponse, error) {
	if err := s.gate.Require(actor, authz.ActionLeadsWrite); err != nil {
		return transport.LeadResponse{}, err
	}

	var result repository.Lead
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lead, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if lead.IsClaimedByOther(actor.UserID) {
			return apperr.Conflict("lead is already claimed by another agent")
		}
		if lead.AssignedAgentID == nil {
			a := selfAssignment(actor)
			if err := s.repo.SetAssignment(ctx, id, a); err != nil {
				return err
			}
			lead.AssignedAgentID, lead.AssignedAgentName = a.AgentID, a.AgentName
			lead.AssignedAt, lead.AssignedByName = a.AssignedAt, a.AssignedByName
		}
		result = lead
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.log.Info("lead taken", "leadId", id, "actor", actor.DisplayName)
	return toLeadResponse(result), nil
}

// Purge physically deletes a lead and detaches its order.
func (s *Service) Purge(ctx context.Context, id uuid.UUID, actor authz.Actor) error {
	if err := s.gate.Require(actor, authz.ActionLeadsPurge); err != nil {
		return err
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if err := s.orders.DetachLead(ctx, id); err != nil {
			return err
		}
		return s.repo.Purge(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Warn("lead purged", "leadId", id, "actor", actor.DisplayName)
	return nil
}

func (s *Service) detail(ctx context.Context, id uuid.UUID) (transport.LeadDetailResponse, error) {
	var (
		lead  repository.Lead
		items []repository.LineItem
		logs  []repository.CallLogEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		lead, err = s.repo.GetByID(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		items, err = s.repo.ListItems(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		logs, err = s.repo.ListCallLogs(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return transport.LeadDetailResponse{}, err
	}
	return toDetailResponse(lead, items, logs), nil
}

func (s *Service) resolveItems(ctx context.Context, reqs []transport.LeadItemRequest) ([]repository.LineItem, error) {
	items := make([]repository.LineItem, 0, len(reqs))
	for _, req := range reqs {
		item := repository.LineItem{
			ProductID:   req.ProductID,
			Description: strings.TrimSpace(req.Description),
			Quantity:    req.Quantity,
		}
		if item.Quantity <= 0 {
			return nil, apperr.Validation("item quantity must be positive")
		}
		if item.ProductID == nil && item.Description == "" {
			return nil, apperr.Validation("freeform items need a description")
		}
		price, err := s.unitPrice(ctx, req.ProductID, req.UnitPrice)
		if err != nil {
			return nil, err
		}
		item.UnitPrice = price
		if item.Description == "" && item.ProductID != nil {
			product, err := s.products.GetProduct(ctx, *item.ProductID)
			if err != nil {
				return nil, err
			}
			item.Description = product.Name
		}
		items = append(items, item)
	}
	return items, nil
}

// checkOwnership refuses scoped actors on leads claimed by someone else.
func checkOwnership(lead repository.Lead, actor authz.Actor) error {
	if actor.IsPrivileged() || !lead.IsClaimedByOther(actor.UserID) {
		return nil
	}
	return apperr.Forbidden("lead is claimed by another agent")
}

func selfAssignment(actor authz.Actor) repository.Assignment {
	now := time.Now().UTC()
	id := actor.UserID
	name := actor.DisplayName
	return repository.Assignment{
		AgentID:        &id,
		AgentName:      &name,
		AssignedAt:     &now,
		AssignedByName: &name,
	}
}

func actorID(actor authz.Actor) *uuid.UUID {
	if actor.UserID == uuid.Nil {
		return nil
	}
	id := actor.UserID
	return &id
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
