package adapters

import (
	"context"

	"github.com/google/uuid"

	assignservice "orderdesk_backend/internal/assignment/service"
	leadrepo "orderdesk_backend/internal/leads/repository"
	orderrepo "orderdesk_backend/internal/orders/repository"
)

// OrderAssignmentStore exposes order assignee stamps to the assignment service.
type OrderAssignmentStore struct {
	repo orderrepo.Repository
}

// NewOrderAssignmentStore creates a new store adapter.
func NewOrderAssignmentStore(repo orderrepo.Repository) *OrderAssignmentStore {
	return &OrderAssignmentStore{repo: repo}
}

func (a *OrderAssignmentStore) LockAssignee(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	order, err := a.repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	return order.AssignedAgentID, nil
}

func (a *OrderAssignmentStore) SetAssignee(ctx context.Context, id uuid.UUID, stamp assignservice.Stamp) error {
	return a.repo.SetAssignment(ctx, id, orderrepo.Assignment{
		AgentID:        stamp.AgentID,
		AgentName:      stamp.AgentName,
		AssignedAt:     stamp.AssignedAt,
		AssignedByName: stamp.AssignedByName,
	})
}

// LeadAssignmentStore exposes lead assignee stamps to the assignment service.
type LeadAssignmentStore struct {
	repo leadrepo.Repository
}

// NewLeadAssignmentStore creates a new store adapter.
func NewLeadAssignmentStore(repo leadrepo.Repository) *LeadAssignmentStore {
	return &LeadAssignmentStore{repo: repo}
}

func (a *LeadAssignmentStore) LockAssignee(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	lead, err := a.repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	return lead.AssignedAgentID, nil
}

func (a *LeadAssignmentStore) SetAssignee(ctx context.Context, id uuid.UUID, stamp assignservice.Stamp) error {
	return a.repo.SetAssignment(ctx, id, leadrepo.Assignment{
		AgentID:        stamp.AgentID,
		AgentName:      stamp.AgentName,
		AssignedAt:     stamp.AssignedAt,
		AssignedByName: stamp.AssignedByName,
	})
}

var (
	_ assignservice.Store = (*OrderAssignmentStore)(nil)
	_ assignservice.Store = (*LeadAssignmentStore)(nil)
)
