package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/orders/domain"
	"orderdesk_backend/internal/orders/repository"
	"orderdesk_backend/internal/orders/transport"
	"orderdesk_backend/platform/apperr"
)

// AddItem appends a line item.
func (s *Service) AddItem(ctx context.Context, orderID uuid.UUID, req transport.LineItemRequest, actor authz.Actor) (transport.OrderDetailResponse, error) {
	added, err := s.resolveItems(ctx, []transport.LineItemRequest{req})
	if err != nil {
		return transport.OrderDetailResponse{}, err
	}
	return s.mutateItems(ctx, orderID, actor, func(items []repository.LineItem) ([]repository.LineItem, error) {
		return append(items, added...), nil
	})
}

// PatchItem changes description, quantity or price of one line item.
func (s *Service) PatchItem(ctx context.Context, orderID, itemID uuid.UUID, req transport.PatchItemRequest, actor authz.Actor) (transport.OrderDetailResponse, error) {
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return transport.OrderDetailResponse{}, apperr.Validation("unit price must not be negative")
	}
	return s.mutateItems(ctx, orderID, actor, func(items []repository.LineItem) ([]repository.LineItem, error) {
		for i := range items {
			if items[i].ID != itemID {
				continue
			}
			if req.Description != nil {
				items[i].Description = strings.TrimSpace(*req.Description)
			}
			if req.Quantity != nil {
				items[i].Quantity = *req.Quantity
			}
			if req.UnitPrice != nil {
				items[i].UnitPrice = *req.UnitPrice
			}
			if items[i].ProductID == nil && items[i].Description == "" {
				return nil, apperr.Validation("freeform items need a description")
			}
			return items, nil
		}
		return nil, apperr.NotFound("order item not found")
	})
}

// DeleteItem removes one line item.
func (s *Service) DeleteItem(ctx context.Context, orderID, itemID uuid.UUID, actor authz.Actor) (transport.OrderDetailResponse, error) {
	return s.mutateItems(ctx, orderID, actor, func(items []repository.LineItem) ([]repository.LineItem, error) {
		for i := range items {
			if items[i].ID == itemID {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, apperr.NotFound("order item not found")
	})
}

// ReplaceItems swaps the whole item set.
func (s *Service) ReplaceItems(ctx context.Context, orderID uuid.UUID, req transport.ReplaceItemsRequest, actor authz.Actor) (transport.OrderDetailResponse, error) {
	replacement, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return transport.OrderDetailResponse{}, err
	}
	return s.mutateItems(ctx, orderID, actor, func([]repository.LineItem) ([]repository.LineItem, error) {
		return replacement, nil
	})
}

// mutateItems runs change on the locked order's items and persists the result.
// Items are frozen once the order has shipped.
func (s *Service) mutateItems(ctx context.Context, orderID uuid.UUID, actor authz.Actor, change func([]repository.LineItem) ([]repository.LineItem, error)) (transport.OrderDetailResponse, error) {
	if err := s.gate.Require(actor, authz.ActionOrdersWrite); err != nil {
		return transport.OrderDetailResponse{}, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.checkVisible(order, actor); err != nil {
			return err
		}
		if domain.ItemsLocked(order.Status) {
			return apperr.PreconditionFailed("order lines are locked once the order has shipped")
		}

		items, err := s.repo.ListItems(ctx, orderID)
		if err != nil {
			return err
		}
		items, err = change(items)
		if err != nil {
			return err
		}
		return s.persistItems(ctx, order, items)
	})
	if err != nil {
		return transport.OrderDetailResponse{}, err
	}
	return s.detail(ctx, orderID)
}

// persistItems renumbers and prices items, stores them and recomputes the order
// total. Without items the total falls back to quantity times unit price.
func (s *Service) persistItems(ctx context.Context, order repository.Order, items []repository.LineItem) error {
	total := decimal.Zero
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].OrderID = order.ID
		items[i].Position = i
		items[i].LineTotal = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		total = total.Add(items[i].LineTotal)
	}
	if len(items) == 0 {
		total = order.UnitPrice.Mul(decimal.NewFromInt(int64(order.Quantity)))
	}

	if err := s.repo.ReplaceItems(ctx, order.ID, items); err != nil {
		return err
	}
	return s.repo.SetTotal(ctx, order.ID, total)
}

// resolveItems turns requested lines into priced items, defaulting price and
// description from the catalog.
func (s *Service) resolveItems(ctx context.Context, reqs []transport.LineItemRequest) ([]repository.LineItem, error) {
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
		if req.UnitPrice != nil {
			if req.UnitPrice.IsNegative() {
				return nil, apperr.Validation("unit price must not be negative")
			}
			item.UnitPrice = *req.UnitPrice
		}

		if req.ProductID != nil {
			product, err := s.products.GetProductSnapshot(ctx, *req.ProductID)
			if err != nil {
				return nil, err
			}
			if item.Description == "" {
				item.Description = product.Name
			}
			if req.UnitPrice == nil {
				item.UnitPrice = product.Price
			}
		} else if item.Description == "" {
			return nil, apperr.Validation("freeform items need a description")
		}
		items = append(items, item)
	}
	return items, nil
}
