package memstore

import (
	"context"
	"sort"
	"strings"

	"orderdesk_backend/internal/duplicates/repository"
	"orderdesk_backend/platform/phone"
)

// Duplicates matches phones across in-memory orders and leads.
type Duplicates struct{ s *Store }

// Duplicates returns the phone finder of the store.
func (s *Store) Duplicates() *Duplicates { return &Duplicates{s: s} }

func (r *Duplicates) FindByPhone(ctx context.Context, q repository.PhoneQuery) ([]repository.Match, error) {
	var matches []repository.Match
	err := r.s.read(ctx, func(st *state) error {
		for _, o := range st.orders {
			if q.ExcludeOrderID != nil && o.ID == *q.ExcludeOrderID {
				continue
			}
			if phoneMatches(o.CustomerPhone, q) {
				matches = append(matches, repository.Match{
					Kind:      "order",
					ID:        o.ID,
					Label:     o.DisplayCode + " " + o.CustomerName,
					Status:    o.Status,
					CreatedAt: o.CreatedAt,
				})
			}
		}
		for _, l := range st.leads {
			if phoneMatches(l.Phone, q) {
				matches = append(matches, repository.Match{
					Kind:      "lead",
					ID:        l.ID,
					Label:     l.Name,
					Status:    l.Status,
					CreatedAt: l.CreatedAt,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func phoneMatches(stored string, q repository.PhoneQuery) bool {
	if stored == "" {
		return false
	}
	if stored == q.E164 {
		return true
	}
	return q.Suffix != "" && strings.HasSuffix(phone.Digits(stored), q.Suffix)
}
