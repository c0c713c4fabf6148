package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"orderdesk_backend/internal/leads/repository"
	"orderdesk_backend/platform/apperr"
)

const leadNotFoundMessage = "lead not found"

// Leads is an in-memory leads repository.
type Leads struct{ s *Store }

var _ repository.Repository = (*Leads)(nil)

// Leads returns the leads repository of the store.
func (s *Store) Leads() *Leads { return &Leads{s: s} }

func (r *Leads) Create(ctx context.Context, p repository.CreateLeadParams) (repository.Lead, error) {
	var l repository.Lead
	err := r.s.read(ctx, func(st *state) error {
		ts := now()
		l = repository.Lead{
			ID:                uuid.New(),
			Name:              p.Name,
			Phone:             p.Phone,
			City:              p.City,
			Address:           p.Address,
			ProductID:         p.ProductID,
			Quantity:          p.Quantity,
			UnitPrice:         p.UnitPrice,
			Status:            p.Status,
			AssignedAgentID:   p.Assignment.AgentID,
			AssignedAgentName: p.Assignment.AgentName,
			AssignedAt:        p.Assignment.AssignedAt,
			AssignedByName:    p.Assignment.AssignedByName,
			Notes:             p.Notes,
			CreatedAt:         ts,
			UpdatedAt:         ts,
		}
		st.leads[l.ID] = l
		st.leadSeq = append(st.leadSeq, l.ID)
		return nil
	})
	return l, err
}

func (r *Leads) GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	var l repository.Lead
	err := r.s.read(ctx, func(st *state) error {
		found, ok := st.leads[id]
		if !ok {
			return apperr.NotFound(leadNotFoundMessage)
		}
		l = found
		return nil
	})
	return l, err
}

// GetForUpdate is GetByID; the transaction lock covers the whole store.
func (r *Leads) GetForUpdate(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	return r.GetByID(ctx, id)
}

func (r *Leads) List(ctx context.Context, p repository.ListParams) ([]repository.Lead, int, error) {
	var (
		result []repository.Lead
		total  int
	)
	err := r.s.read(ctx, func(st *state) error {
		var matched []repository.Lead
		for _, id := range reversed(st.leadSeq) {
			l := st.leads[id]
			if leadMatches(l, p) {
				matched = append(matched, l)
			}
		}
		switch p.SortBy {
		case "name":
			sort.SliceStable(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
		case "status":
			sort.SliceStable(matched, func(i, j int) bool { return matched[i].Status < matched[j].Status })
		}
		total = len(matched)
		result = page(matched, p.Offset, p.Limit)
		return nil
	})
	return result, total, err
}

func leadMatches(l repository.Lead, p repository.ListParams) bool {
	if p.Status != "" && l.Status != p.Status {
		return false
	}
	if p.AssignedAgentID != nil && (l.AssignedAgentID == nil || *l.AssignedAgentID != *p.AssignedAgentID) {
		return false
	}
	if p.Unassigned && l.AssignedAgentID != nil {
		return false
	}
	if p.VisibleTo != nil && l.AssignedAgentID != nil && *l.AssignedAgentID != *p.VisibleTo {
		return false
	}
	if p.Search != "" &&
		!containsFold(l.Name, p.Search) &&
		!containsFold(l.Phone, p.Search) &&
		!containsFold(l.City, p.Search) {
		return false
	}
	return true
}

func (r *Leads) Update(ctx context.Context, p repository.UpdateLeadParams) (repository.Lead, error) {
	var l repository.Lead
	err := r.s.read(ctx, func(st *state) error {
		found, ok := st.leads[p.ID]
		if !ok {
			return apperr.NotFound(leadNotFoundMessage)
		}
		if p.Name != nil {
			found.Name = *p.Name
		}
		if p.Phone != nil {
			found.Phone = *p.Phone
		}
		if p.City != nil {
			found.City = *p.City
		}
		if p.Address != nil {
			found.Address = *p.Address
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
		if p.Notes != nil {
			found.Notes = *p.Notes
		}
		found.UpdatedAt = now()
		st.leads[p.ID] = found
		l = found
		return nil
	})
	return l, err
}

func (r *Leads) update(ctx context.Context, id uuid.UUID, fn func(l *repository.Lead)) error {
	return r.s.read(ctx, func(st *state) error {
		l, ok := st.leads[id]
		if !ok {
			return apperr.NotFound(leadNotFoundMessage)
		}
		fn(&l)
		l.UpdatedAt = now()
		st.leads[id] = l
		return nil
	})
}

func (r *Leads) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.update(ctx, id, func(l *repository.Lead) { l.Status = status })
}

func (r *Leads) SetAssignment(ctx context.Context, id uuid.UUID, a repository.Assignment) error {
	return r.update(ctx, id, func(l *repository.Lead) {
		l.AssignedAgentID = a.AgentID
		l.AssignedAgentName = a.AgentName
		l.AssignedAt = a.AssignedAt
		l.AssignedByName = a.AssignedByName
	})
}

func (r *Leads) Purge(ctx context.Context, id uuid.UUID) error {
	return r.s.read(ctx, func(st *state) error {
		if _, ok := st.leads[id]; !ok {
			return apperr.NotFound(leadNotFoundMessage)
		}
		delete(st.leads, id)
		delete(st.leadItems, id)
		st.leadSeq = without(st.leadSeq, id)

		logs := st.callLogs[:0]
		for _, c := range st.callLogs {
			if c.LeadID != id {
				logs = append(logs, c)
			}
		}
		st.callLogs = logs
		return nil
	})
}

func (r *Leads) ListItems(ctx context.Context, leadID uuid.UUID) ([]repository.LineItem, error) {
	var items []repository.LineItem
	err := r.s.read(ctx, func(st *state) error {
		items = append([]repository.LineItem{}, st.leadItems[leadID]...)
		return nil
	})
	return items, err
}

func (r *Leads) ReplaceItems(ctx context.Context, leadID uuid.UUID, items []repository.LineItem) error {
	return r.s.read(ctx, func(st *state) error {
		stored := make([]repository.LineItem, len(items))
		for i, item := range items {
			if item.ID == uuid.Nil {
				item.ID = uuid.New()
			}
			item.LeadID = leadID
			item.Position = i
			stored[i] = item
		}
		st.leadItems[leadID] = stored
		return nil
	})
}

func (r *Leads) AppendCallLog(ctx context.Context, entry repository.CallLogEntry) error {
	return r.s.read(ctx, func(st *state) error {
		entry.ID = r.s.nextSerial()
		entry.CreatedAt = now()
		st.callLogs = append(st.callLogs, entry)
		return nil
	})
}

func (r *Leads) ListCallLogs(ctx context.Context, leadID uuid.UUID) ([]repository.CallLogEntry, error) {
	var out []repository.CallLogEntry
	err := r.s.read(ctx, func(st *state) error {
		out = []repository.CallLogEntry{}
		for _, c := range st.callLogs {
			if c.LeadID == leadID {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}
