// Package service implements the order lifecycle: creation, the status state
// machine with its stock effects, line items, notes and purge.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/orders/domain"
	"orderdesk_backend/internal/orders/ports"
	"orderdesk_backend/internal/orders/repository"
	"orderdesk_backend/internal/orders/transport"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/phone"
	"orderdesk_backend/platform/sanitize"
)

const msgOrderNotFound = "order not found"

// Service provides business logic for orders.
type Service struct {
	repo       repository.Repository
	tx         db.Transactor
	gate       *authz.Gate
	stock      ports.StockLedger
	products   ports.ProductReader
	leads      ports.LeadStatusSync
	duplicates ports.DuplicatePhoneFinder
	bus        events.Bus
	log        *logger.Logger
}

// New creates a new orders service.
func New(repo repository.Repository, tx db.Transactor, gate *authz.Gate, stock ports.StockLedger, products ports.ProductReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		gate:     gate,
		stock:    stock,
		products: products,
		bus:      bus,
		log:      log,
	}
}

// SetLeadStatusSync wires the reverse order-to-lead status propagation.
// The leads module is built after orders, so this is set by the composition root.
func (s *Service) SetLeadStatusSync(sync ports.LeadStatusSync) {
	s.leads = sync
}

// SetDuplicateFinder wires the duplicate phone lookup used by order details.
func (s *Service) SetDuplicateFinder(finder ports.DuplicatePhoneFinder) {
	s.duplicates = finder
}

// Create creates a pending order. Scoped agents become the assignee of orders they create.
func (s *Service) Create(ctx context.Context, req transport.CreateOrderRequest, actor authz.Actor) (transport.OrderDetailResponse, error) {
	if err := s.gate.Require(actor, authz.ActionOrdersWrite); err != nil {
		return transport.OrderDetailResponse{}, err
	}

	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return transport.OrderDetailResponse{}, err
	}

	params := repository.CreateOrderParams{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   phone.NormalizeE164(req.CustomerPhone),
		CustomerCity:    strings.TrimSpace(req.CustomerCity),
		CustomerAddress: strings.TrimSpace(req.CustomerAddress),
		Status:          domain.StatusPending,
		Notes:           sanitize.Text(req.Notes),
		CreatedBy:       actorID(actor),
	}
	if params.Quantity == 0 {
		params.Quantity = 1
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return transport.OrderDetailResponse{}, apperr.Validation("unit price must not be negative")
		}
		params.UnitPrice = *req.UnitPrice
	} else if req.ProductID != nil {
		product, err := s.products.GetProductSnapshot(ctx, *req.ProductID)
		if err != nil {
			return transport.OrderDetailResponse{}, err
		}
		params.UnitPrice = product.Price
	}
	if s.gate.IsAgentOnly(actor) {
		now := time.Now().UTC()
		params.Assignment = repository.Assignment{
			AgentID:        actorID(actor),
			AgentName:      &actor.DisplayName,
			AssignedAt:     &now,
			AssignedByName: &actor.DisplayName,
		}
	}

	var orderID uuid.UUID
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.repo.Create(ctx, params)
		if err != nil {
			return err
		}
		orderID = order.ID
		if len(items) > 0 {
			return s.persistItems(ctx, order, items)
		}
		return nil
	})
	if err != nil {
		return transport.OrderDetailResponse{}, err
	}

	s.log.Info("order created", "orderId", orderID, "items", len(items), "actor", actor.DisplayName)
	return s.detail(ctx, orderID)
}

// Get returns an order with items, history, notes and phone duplicates.
// Agent-only callers may read orders assigned to them or unassigned ones.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor authz.Actor) (transport.OrderDetailResponse, error) {
	if err := s.gate.Require(actor, authz.ActionOrdersRead); err != nil {
		return transport.OrderDetailResponse{}, err
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.OrderDetailResponse{}, err
	}
	if err := s.checkVisible(order, actor); err != nil {
		return transport.OrderDetailResponse{}, err
	}
	return s.detail(ctx, id)
}

// List lists orders. Agent-only callers see only their own orders.
func (s *Service) List(ctx context.Context, req transport.ListOrdersRequest, actor authz.Actor) (transport.OrderListResponse, error) {
	if err := s.gate.Require(actor, authz.ActionOrdersRead); err != nil {
		return transport.OrderListResponse{}, err
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
		return transport.OrderListResponse{}, apperr.Validation("unknown order status")
	}
	if req.AgentID != "" {
		agentID, err := uuid.Parse(req.AgentID)
		if err != nil {
			return transport.OrderListResponse{}, apperr.Validation("invalid agent id")
		}
		params.AssignedAgentID = &agentID
	}
	if s.gate.IsAgentOnly(actor) {
		self := actor.UserID
		params.AssignedAgentID = &self
		params.Unassigned = false
	}
	if from, ok := parseDay(req.From); ok {
		params.CreatedFrom = &from
	}
	if to, ok := parseDay(req.To); ok {
		end := to.AddDate(0, 0, 1)
		params.CreatedTo = &end
	}

	orders, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.OrderListResponse{}, err
	}

	items := make([]transport.OrderResponse, len(orders))
	for i, o := range orders {
		items[i] = toOrderResponse(o)
	}
	return transport.OrderListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// Update patches customer fields and the legacy product fallback.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateOrderRequest, actor authz.Actor) (transport.OrderDetailResponse, error) {
	if err := s.gate.Require(actor, authz.ActionOrdersWrite); err != nil {
		return transport.OrderDetailResponse{}, err
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return transport.OrderDetailResponse{}, apperr.Validation("unit price must not be negative")
	}

	params := repository.UpdateCustomerParams{
		ID:              id,
		CustomerName:    trimPtr(req.CustomerName),
		CustomerCity:    trimPtr(req.CustomerCity),
		CustomerAddress: trimPtr(req.CustomerAddress),
		Notes:           sanitize.TextPtr(req.Notes),
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
	}
	if req.CustomerPhone != nil {
		normalized := phone.NormalizeE164(*req.CustomerPhone)
		params.CustomerPhone = &normalized
	}
	pricingChanged := req.ProductID != nil || req.Quantity != nil || req.UnitPrice != nil

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkVisible(current, actor); err != nil {
			return err
		}
		if pricingChanged && domain.ItemsLocked(current.Status) {
			return apperr.PreconditionFailed("order lines are locked once the order has shipped")
		}

		updated, err := s.repo.UpdateCustomer(ctx, params)
		if err != nil {
			return err
		}
		if domain.HoldsCompleteData(current.Status) && !updated.HasCompleteCustomerData() {
			return apperr.PreconditionFailed("customer name, phone, city and address are required while the order is " + current.Status).
				WithDetails(map[string][]string{"missing": missingCustomerFields(updated)})
		}
		if !pricingChanged {
			return nil
		}
		items, err := s.repo.ListItems(ctx, id)
		if err != nil {
			return err
		}
		return s.persistItems(ctx, updated, items)
	})
	if err != nil {
		return transport.OrderDetailResponse{}, err
	}
	return s.detail(ctx, id)
}

// AddNote appends a note to an order.
func (s *Service) AddNote(ctx context.Context, id uuid.UUID, req transport.AddNoteRequest, actor authz.Actor) (transport.NoteResponse, error) {
	if err := s.gate.Require(actor, authz.ActionOrdersWrite); err != nil {
		return transport.NoteResponse{}, err
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.NoteResponse{}, err
	}
	if err := s.checkVisible(order, actor); err != nil {
		return transport.NoteResponse{}, err
	}

	note, err := s.repo.AddNote(ctx, repository.Note{
		OrderID:    id,
		AuthorID:   actorID(actor),
		AuthorName: actor.DisplayName,
		Body:       sanitize.Text(req.Body),
	})
	if err != nil {
		return transport.NoteResponse{}, err
	}
	return toNoteResponse(note), nil
}

// Purge physically deletes an order and everything attached to it.
func (s *Service) Purge(ctx context.Context, id uuid.UUID, actor authz.Actor) error {
	if err := s.gate.Require(actor, authz.ActionOrdersPurge); err != nil {
		return err
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		return s.repo.Purge(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Warn("order purged", "orderId", id, "actor", actor.DisplayName)
	return nil
}

// checkVisible hides other agents' orders from agent-only callers.
func (s *Service) checkVisible(order repository.Order, actor authz.Actor) error {
	if !s.gate.IsAgentOnly(actor) || order.AssignedAgentID == nil || *order.AssignedAgentID == actor.UserID {
		return nil
	}
	return apperr.Forbidden("order is assigned to another agent")
}

func (s *Service) detail(ctx context.Context, id uuid.UUID) (transport.OrderDetailResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.OrderDetailResponse{}, err
	}

	var (
		items   []repository.LineItem
		history []repository.HistoryEntry
		notes   []repository.Note
		matches []ports.PhoneMatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = s.repo.ListItems(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		history, err = s.repo.ListHistory(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		notes, err = s.repo.ListNotes(gctx, id)
		return err
	})
	if s.duplicates != nil && order.CustomerPhone != "" {
		g.Go(func() error {
			found, err := s.duplicates.FindPhoneMatches(gctx, order.CustomerPhone, &id)
			if err != nil {
				s.log.Warn("duplicate phone lookup failed", "orderId", id, "error", err)
				return nil
			}
			matches = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return transport.OrderDetailResponse{}, err
	}

	return toDetailResponse(order, items, history, notes, matches), nil
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

func parseDay(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
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
