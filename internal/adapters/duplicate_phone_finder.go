package adapters

import (
	"context"

	"github.com/google/uuid"

	dupservice "orderdesk_backend/internal/duplicates/service"
	"orderdesk_backend/internal/orders/ports"
)

// orderDetailMatchLimit caps the duplicate warnings shown on an order.
const orderDetailMatchLimit = 5

// DuplicatePhoneFinder adapts the duplicates service for order details.
type DuplicatePhoneFinder struct {
	svc *dupservice.Service
}

// NewDuplicatePhoneFinder creates a new finder adapter.
func NewDuplicatePhoneFinder(svc *dupservice.Service) *DuplicatePhoneFinder {
	return &DuplicatePhoneFinder{svc: svc}
}

// FindPhoneMatches returns other records sharing phone.
func (a *DuplicatePhoneFinder) FindPhoneMatches(ctx context.Context, phone string, excludeOrderID *uuid.UUID) ([]ports.PhoneMatch, error) {
	matches, err := a.svc.FindPhoneMatches(ctx, phone, excludeOrderID, orderDetailMatchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]ports.PhoneMatch, len(matches))
	for i, m := range matches {
		out[i] = ports.PhoneMatch{Kind: m.Kind, ID: m.ID, Label: m.Label, Status: m.Status}
	}
	return out, nil
}

// Compile-time check that DuplicatePhoneFinder implements ports.DuplicatePhoneFinder.
var _ ports.DuplicatePhoneFinder = (*DuplicatePhoneFinder)(nil)
