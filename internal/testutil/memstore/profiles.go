package memstore

import (
	"context"

	"github.com/google/uuid"

	"orderdesk_backend/platform/apperr"
)

// Profiles resolves display names of staff added with AddProfile.
type Profiles struct{ s *Store }

// Profiles returns the profile directory of the store.
func (s *Store) Profiles() *Profiles { return &Profiles{s: s} }

// AddProfile registers a staff member.
func (p *Profiles) AddProfile(id uuid.UUID, displayName string) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.data.profiles[id] = displayName
}

// DisplayName returns the label for userID.
func (p *Profiles) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	var name string
	err := p.s.read(ctx, func(st *state) error {
		found, ok := st.profiles[userID]
		if !ok {
			return apperr.NotFound("profile not found")
		}
		name = found
		return nil
	})
	return name, err
}
