package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orderdesk_backend/internal/orders/repository"
	"orderdesk_backend/platform/apperr"
)

const orderNotFoundMessage = "order not found"

// Orders is an in-memory orders repository.
type Orders struct{ s *Store }

var _ repository.Repository = (*Orders)(nil)

// Orders returns the orders repository of the store.
func (s *Store) Orders() *Orders { return &Orders{s: s} }

func (r *Orders) insert(p repository.CreateOrderParams) repository.Order {
	st := r.s.data
	st.nextCode++
	ts := now()
	o := repository.Order{
		ID:                uuid.New(),
		DisplayCode:       fmt.Sprintf("ORD-%06d", st.nextCode),
		ProductID:         p.ProductID,
		Quantity:          p.Quantity,
		UnitPrice:         p.UnitPrice,
		CustomerName:      p.CustomerName,
		CustomerPhone:     p.CustomerPhone,
		CustomerCity:      p.CustomerCity,
		CustomerAddress:   p.CustomerAddress,
		TotalAmount:       p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity))),
		Status:            p.Status,
		AssignedAgentID:   p.Assignment.AgentID,
		AssignedAgentName: p.Assignment.AgentName,
		AssignedAt:        p.Assignment.AssignedAt,
		AssignedByName:    p.Assignment.AssignedByName,
		SourceLeadID:      p.SourceLeadID,
		Notes:             p.Notes,
		CreatedBy:         p.CreatedBy,
		CreatedAt:         ts,
		UpdatedAt:         ts,
	}
	st.orders[o.ID] = o
	st.orderSeq = append(st.orderSeq, o.ID)
	return o
}

func (r *Orders) Create(ctx context.Context, p repository.CreateOrderParams) (repository.Order, error) {
	var o repository.Order
	err := r.s.read(ctx, func(*state) error {
		o = r.insert(p)
		return nil
	})
	return o, err
}

func (r *Orders) CreateFromLead(ctx context.Context, p repository.CreateOrderParams) (repository.Order, bool, error) {
	if p.SourceLeadID == nil {
		return repository.Order{}, false, apperr.Validation("source lead is required")
	}
	var (
		o       repository.Order
		created bool
	)
	err := r.s.read(ctx, func(st *state) error {
		if existing, ok := findBySourceLead(st, *p.SourceLeadID); ok {
			o = existing
			return nil
		}
		o = r.insert(p)
		created = true
		return nil
	})
	return o, created, err
}

func (r *Orders) GetByID(ctx context.Context, id uuid.UUID) (repository.Order, error) {
	var o repository.Order
	err := r.s.read(ctx, func(st *state) error {
		found, ok := st.orders[id]
		if !ok {
			return apperr.NotFound(orderNotFoundMessage)
		}
		o = found
		return nil
	})
	return o, err
}

// GetForUpdate is GetByID; the transaction lock covers the whole store.
func (r *Orders) GetForUpdate(ctx context.Context, id uuid.UUID) (repository.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *Orders) GetBySourceLead(ctx context.Context, leadID uuid.UUID) (repository.Order, error) {
	var o repository.Order
	err := r.s.read(ctx, func(st *state) error {
		found, ok := findBySourceLead(st, leadID)
		if !ok {
			return apperr.NotFound(orderNotFoundMessage)
		}
		o = found
		return nil
	})
	return o, err
}

func findBySourceLead(st *state, leadID uuid.UUID) (repository.Order, bool) {
	for _, o := range st.orders {
		if o.SourceLeadID != nil && *o.SourceLeadID == leadID {
			return o, true
		}
	}
	return repository.Order{}, false
}

func (r *Orders) List(ctx context.Context, p repository.ListParams) ([]repository.Order, int, error) {
	var (
		result []repository.Order
		total  int
	)
	err := r.s.read(ctx, func(st *state) error {
		var matched []repository.Order
		for _, id := range reversed(st.orderSeq) {
			o := st.orders[id]
			if orderMatches(o, p) {
				matched = append(matched, o)
			}
		}
		sortOrders(matched, p.SortBy, p.SortOrder)
		total = len(matched)
		result = page(matched, p.Offset, p.Limit)
		return nil
	})
	return result, total, err
}

func orderMatches(o repository.Order, p repository.ListParams) bool {
	if p.Status != "" && o.Status != p.Status {
		return false
	}
	if p.AssignedAgentID != nil && (o.AssignedAgentID == nil || *o.AssignedAgentID != *p.AssignedAgentID) {
		return false
	}
	if p.Unassigned && o.AssignedAgentID != nil {
		return false
	}
	if p.CreatedFrom != nil && o.CreatedAt.Before(*p.CreatedFrom) {
		return false
	}
	if p.CreatedTo != nil && !o.CreatedAt.Before(*p.CreatedTo) {
		return false
	}
	if p.Search != "" &&
		!containsFold(o.DisplayCode, p.Search) &&
		!containsFold(o.CustomerName, p.Search) &&
		!containsFold(o.CustomerPhone, p.Search) &&
		!containsFold(o.CustomerCity, p.Search) {
		return false
	}
	return true
}

// sortOrders keeps the newest-first insertion order unless another column is asked for.
func sortOrders(orders []repository.Order, sortBy, sortOrder string) {
	var less func(a, b repository.Order) bool
	switch sortBy {
	case "total":
		less = func(a, b repository.Order) bool { return a.TotalAmount.LessThan(b.TotalAmount) }
	case "customerName":
		less = func(a, b repository.Order) bool { return a.CustomerName < b.CustomerName }
	case "status":
		less = func(a, b repository.Order) bool { return a.Status < b.Status }
	default:
		if sortOrder == "asc" {
			for i, j := 0, len(orders)-1; i < j; i, j = i+1, j-1 {
				orders[i], orders[j] = orders[j], orders[i]
			}
		}
		return
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if sortOrder == "asc" {
			return less(orders[i], orders[j])
		}
		return less(orders[j], orders[i])
	})
}

func (r *Orders) UpdateCustomer(ctx context.Context, p repository.UpdateCustomerParams) (repository.Order, error) {
	var o repository.Order
	err := r.s.read(ctx, func(st *state) error {
		found, ok := st.orders[p.ID]
		if !ok {
			return apperr.NotFound(orderNotFoundMessage)
		}
		if p.CustomerName != nil {
			found.CustomerName = *p.CustomerName
		}
		if p.CustomerPhone != nil {
			found.CustomerPhone = *p.CustomerPhone
		}
		if p.CustomerCity != nil {
			found.CustomerCity = *p.CustomerCity
		}
		if p.CustomerAddress != nil {
			found.CustomerAddress = *p.CustomerAddress
		}
		if p.Notes != nil {
			found.Notes = *p.Notes
		}
		if p.ProductID != nil {
			found.ProductID = p.ProductID
		}
		if p.Quantity != nil {
			found.Quantity = *p.Quantity
		}
		if p.UnitPrice != nil {
			found.UnitPrice = *p.UnitPrice
		}
		found.UpdatedAt = now()
		st.orders[p.ID] = found
		o = found
		return nil
	})
	return o, err
}

func (r *Orders) update(ctx context.Context, id uuid.UUID, fn func(o *repository.Order)) error {
	return r.s.read(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperr.NotFound(orderNotFoundMessage)
		}
		fn(&o)
		o.UpdatedAt = now()
		st.orders[id] = o
		return nil
	})
}

func (r *Orders) SetStatus(ctx context.Context, id uuid.UUID, status string, stockDeducted bool) error {
	return r.update(ctx, id, func(o *repository.Order) {
		o.Status = status
		o.StockDeducted = stockDeducted
	})
}

func (r *Orders) SetAssignment(ctx context.Context, id uuid.UUID, a repository.Assignment) error {
	return r.update(ctx, id, func(o *repository.Order) {
		o.AssignedAgentID = a.AgentID
		o.AssignedAgentName = a.AgentName
		o.AssignedAt = a.AssignedAt
		o.AssignedByName = a.AssignedByName
	})
}

func (r *Orders) SetTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	return r.update(ctx, id, func(o *repository.Order) { o.TotalAmount = total })
}

func (r *Orders) ClearSourceLead(ctx context.Context, leadID uuid.UUID) error {
	return r.s.read(ctx, func(st *state) error {
		for id, o := range st.orders {
			if o.SourceLeadID != nil && *o.SourceLeadID == leadID {
				o.SourceLeadID = nil
				o.UpdatedAt = now()
				st.orders[id] = o
			}
		}
		return nil
	})
}

func (r *Orders) Purge(ctx context.Context, id uuid.UUID) error {
	return r.s.read(ctx, func(st *state) error {
		if _, ok := st.orders[id]; !ok {
			return apperr.NotFound(orderNotFoundMessage)
		}
		delete(st.orders, id)
		delete(st.orderItems, id)
		st.orderSeq = without(st.orderSeq, id)

		history := st.history[:0]
		for _, h := range st.history {
			if h.OrderID != id {
				history = append(history, h)
			}
		}
		st.history = history

		notes := st.notes[:0]
		for _, n := range st.notes {
			if n.OrderID != id {
				notes = append(notes, n)
			}
		}
		st.notes = notes
		return nil
	})
}

func (r *Orders) ListItems(ctx context.Context, orderID uuid.UUID) ([]repository.LineItem, error) {
	var items []repository.LineItem
	err := r.s.read(ctx, func(st *state) error {
		items = append([]repository.LineItem{}, st.orderItems[orderID]...)
		return nil
	})
	return items, err
}

func (r *Orders) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []repository.LineItem) error {
	return r.s.read(ctx, func(st *state) error {
		stored := make([]repository.LineItem, len(items))
		for i, item := range items {
			if item.ID == uuid.Nil {
				item.ID = uuid.New()
			}
			item.OrderID = orderID
			item.Position = i
			stored[i] = item
		}
		st.orderItems[orderID] = stored
		return nil
	})
}

func (r *Orders) AppendHistory(ctx context.Context, entry repository.HistoryEntry) error {
	return r.s.read(ctx, func(st *state) error {
		entry.ID = r.s.nextSerial()
		entry.CreatedAt = now()
		st.history = append(st.history, entry)
		return nil
	})
}

func (r *Orders) ListHistory(ctx context.Context, orderID uuid.UUID) ([]repository.HistoryEntry, error) {
	var out []repository.HistoryEntry
	err := r.s.read(ctx, func(st *state) error {
		out = []repository.HistoryEntry{}
		for _, h := range st.history {
			if h.OrderID == orderID {
				out = append(out, h)
			}
		}
		return nil
	})
	return out, err
}

func (r *Orders) AddNote(ctx context.Context, note repository.Note) (repository.Note, error) {
	err := r.s.read(ctx, func(st *state) error {
		note.ID = uuid.New()
		note.CreatedAt = now()
		st.notes = append(st.notes, note)
		return nil
	})
	return note, err
}

func (r *Orders) ListNotes(ctx context.Context, orderID uuid.UUID) ([]repository.Note, error) {
	var out []repository.Note
	err := r.s.read(ctx, func(st *state) error {
		out = []repository.Note{}
		for i := len(st.notes) - 1; i >= 0; i-- {
			if st.notes[i].OrderID == orderID {
				out = append(out, st.notes[i])
			}
		}
		return nil
	})
	return out, err
}

func without(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
