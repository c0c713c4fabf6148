// Package service implements the inventory ledger: the only path that changes
// product stock. Every change is a posting that appends an immutable entry.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/inventory/repository"
	"orderdesk_backend/internal/inventory/transport"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/sanitize"
)

// Posting is one requested stock movement.
type Posting struct {
	ProductID uuid.UUID
	Delta     int
	Reason    repository.Reason
	Note      string
	OrderID   *uuid.UUID
}

// Service provides the ledger operations.
type Service struct {
	repo repository.Repository
	tx   db.Transactor
	gate *authz.Gate
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new ledger service.
func New(repo repository.Repository, tx db.Transactor, gate *authz.Gate, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, tx: tx, gate: gate, bus: bus, log: log}
}

// Post records a single movement. See PostBatch.
func (s *Service) Post(ctx context.Context, posting Posting, actor authz.Actor) (repository.Entry, error) {
	entries, err := s.PostBatch(ctx, []Posting{posting}, actor)
	if err != nil {
		return repository.Entry{}, err
	}
	return entries[0], nil
}

// PostBatch records several movements all-or-nothing. All products are locked
// first, every deduction is checked against the locked stock, and only then
// are the postings written. When any product would go negative nothing is
// written and an OutOfStock error naming the products is returned.
// Called with a context that carries a transaction, the batch joins it.
func (s *Service) PostBatch(ctx context.Context, postings []Posting, actor authz.Actor) ([]repository.Entry, error) {
	if len(postings) == 0 {
		return nil, nil
	}
	for _, p := range postings {
		if err := validatePosting(p); err != nil {
			return nil, err
		}
	}

	var entries []repository.Entry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ids := make([]uuid.UUID, 0, len(postings))
		net := make(map[uuid.UUID]int, len(postings))
		for _, p := range postings {
			if _, seen := net[p.ProductID]; !seen {
				ids = append(ids, p.ProductID)
			}
			net[p.ProductID] += p.Delta
		}

		locked, err := s.repo.LockProducts(ctx, ids)
		if err != nil {
			return err
		}

		var short []string
		for _, id := range ids {
			if locked[id].Stock+net[id] < 0 {
				short = append(short, id.String())
			}
		}
		if len(short) > 0 {
			return apperr.OutOfStock("insufficient stock").WithDetails(map[string][]string{"productIds": short})
		}

		entries = make([]repository.Entry, 0, len(postings))
		current := make(map[uuid.UUID]int, len(locked))
		for id, row := range locked {
			current[id] = row.Stock
		}

		for _, p := range postings {
			newStock, err := s.repo.ApplyDelta(ctx, p.ProductID, p.Delta)
			if err != nil {
				return err
			}
			if newStock != current[p.ProductID]+p.Delta {
				return fmt.Errorf("stock of %s changed outside the ledger", p.ProductID)
			}

			entry, err := s.repo.AppendEntry(ctx, repository.Entry{
				ProductID:     p.ProductID,
				ChangeAmount:  p.Delta,
				PreviousStock: current[p.ProductID],
				NewStock:      newStock,
				Reason:        p.Reason,
				ActorID:       actorID(actor),
				ActorName:     actor.DisplayName,
				Note:          sanitize.Text(p.Note),
				OrderID:       p.OrderID,
			})
			if err != nil {
				return err
			}
			current[p.ProductID] = newStock
			entries = append(entries, entry)
		}

		db.AfterCommit(ctx, func(ctx context.Context) {
			s.afterPost(ctx, locked, entries)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Restock adds a positive quantity to a product.
func (s *Service) Restock(ctx context.Context, productID uuid.UUID, req transport.RestockRequest, actor authz.Actor) (transport.EntryResponse, error) {
	if err := s.gate.Require(actor, authz.ActionInventoryWrite); err != nil {
		return transport.EntryResponse{}, err
	}
	entry, err := s.Post(ctx, Posting{
		ProductID: productID,
		Delta:     req.Quantity,
		Reason:    repository.ReasonRestock,
		Note:      req.Note,
	}, actor)
	if err != nil {
		return transport.EntryResponse{}, err
	}
	return toEntryResponse(entry), nil
}

// Adjust applies a signed manual correction. Negative corrections obey the
// non-negative stock rule.
func (s *Service) Adjust(ctx context.Context, productID uuid.UUID, req transport.AdjustRequest, actor authz.Actor) (transport.EntryResponse, error) {
	if err := s.gate.Require(actor, authz.ActionInventoryWrite); err != nil {
		return transport.EntryResponse{}, err
	}
	entry, err := s.Post(ctx, Posting{
		ProductID: productID,
		Delta:     req.Delta,
		Reason:    repository.ReasonManualAdjust,
		Note:      req.Note,
	}, actor)
	if err != nil {
		return transport.EntryResponse{}, err
	}
	return toEntryResponse(entry), nil
}

// ListEntries pages through a product's ledger, newest first.
func (s *Service) ListEntries(ctx context.Context, productID uuid.UUID, req transport.ListEntriesRequest, actor authz.Actor) (transport.EntryListResponse, error) {
	if err := s.gate.Require(actor, authz.ActionInventoryRead); err != nil {
		return transport.EntryListResponse{}, err
	}
	if _, err := s.repo.CurrentStock(ctx, productID); err != nil {
		return transport.EntryListResponse{}, err
	}

	page, pageSize := normalizePaging(req.Page, req.PageSize)
	entries, total, err := s.repo.ListEntries(ctx, productID, (page-1)*pageSize, pageSize)
	if err != nil {
		return transport.EntryListResponse{}, err
	}

	items := make([]transport.EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = toEntryResponse(e)
	}
	totalPages := (total + pageSize - 1) / pageSize
	return transport.EntryListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Reconcile replays the product's entries and compares the result with the
// stored stock. It also checks that each entry starts where the previous one ended.
func (s *Service) Reconcile(ctx context.Context, productID uuid.UUID) (transport.ReconcileResponse, error) {
	stored, err := s.repo.CurrentStock(ctx, productID)
	if err != nil {
		return transport.ReconcileResponse{}, err
	}
	entries, err := s.repo.ReplayEntries(ctx, productID)
	if err != nil {
		return transport.ReconcileResponse{}, err
	}

	result := transport.ReconcileResponse{ProductID: productID, StoredStock: stored, EntryCount: len(entries)}
	running := 0
	for _, e := range entries {
		if result.BrokenEntryID == nil && (e.PreviousStock != running || e.NewStock != running+e.ChangeAmount) {
			id := e.ID
			result.BrokenEntryID = &id
		}
		running += e.ChangeAmount
	}
	result.ReplayedStock = running
	result.Consistent = running == stored && result.BrokenEntryID == nil
	return result, nil
}

// ReconcileForActor is Reconcile behind the inventory read grant.
func (s *Service) ReconcileForActor(ctx context.Context, productID uuid.UUID, actor authz.Actor) (transport.ReconcileResponse, error) {
	if err := s.gate.Require(actor, authz.ActionInventoryRead); err != nil {
		return transport.ReconcileResponse{}, err
	}
	return s.Reconcile(ctx, productID)
}

// ReconcileAll replays every product and returns the inconsistent ones.
func (s *Service) ReconcileAll(ctx context.Context) ([]transport.ReconcileResponse, error) {
	ids, err := s.repo.ListProductIDs(ctx)
	if err != nil {
		return nil, err
	}

	var drifted []transport.ReconcileResponse
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return drifted, err
		}
		res, err := s.Reconcile(ctx, id)
		if err != nil {
			return drifted, err
		}
		if !res.Consistent {
			s.log.Warn("ledger drift detected",
				"productId", id, "stored", res.StoredStock, "replayed", res.ReplayedStock)
			drifted = append(drifted, res)
		}
	}
	s.log.Info("ledger reconciliation finished", "products", len(ids), "drifted", len(drifted))
	return drifted, nil
}

func (s *Service) afterPost(ctx context.Context, locked map[uuid.UUID]repository.StockRow, entries []repository.Entry) {
	for _, e := range entries {
		s.log.StockMovement(e.ProductID.String(), string(e.Reason), e.ChangeAmount, e.NewStock)
	}

	for id, row := range locked {
		final := row.Stock
		for _, e := range entries {
			if e.ProductID == id {
				final = e.NewStock
			}
		}
		if row.Stock > row.LowStockThreshold && final <= row.LowStockThreshold {
			s.bus.Publish(ctx, events.LowStockReached{
				BaseEvent:   events.NewBaseEvent(),
				ProductID:   id,
				ProductName: row.Name,
				Stock:       final,
				Threshold:   row.LowStockThreshold,
			})
		}
	}
}

func validatePosting(p Posting) error {
	if p.ProductID == uuid.Nil {
		return apperr.Validation("product id is required")
	}
	switch p.Reason {
	case repository.ReasonRestock:
		if p.Delta <= 0 {
			return apperr.Validation("restock amount must be positive")
		}
	case repository.ReasonManualAdjust:
		if p.Delta == 0 {
			return apperr.Validation("adjustment must not be zero")
		}
		if strings.TrimSpace(p.Note) == "" {
			return apperr.Validation("adjustment requires a note")
		}
	case repository.ReasonOrderDeduction:
		if p.Delta >= 0 {
			return apperr.Validation("order deduction must be negative")
		}
	case repository.ReasonOrderReturn:
		if p.Delta <= 0 {
			return apperr.Validation("order return must be positive")
		}
	default:
		return apperr.Validation("unknown ledger reason")
	}
	return nil
}

func actorID(actor authz.Actor) *uuid.UUID {
	if actor.UserID == uuid.Nil {
		return nil
	}
	id := actor.UserID
	return &id
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

func toEntryResponse(e repository.Entry) transport.EntryResponse {
	return transport.EntryResponse{
		ID:            e.ID,
		ProductID:     e.ProductID,
		ChangeAmount:  e.ChangeAmount,
		PreviousStock: e.PreviousStock,
		NewStock:      e.NewStock,
		Reason:        string(e.Reason),
		ActorID:       e.ActorID,
		ActorName:     e.ActorName,
		Note:          e.Note,
		OrderID:       e.OrderID,
		CreatedAt:     e.CreatedAt,
	}
}
