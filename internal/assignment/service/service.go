// Package service binds orders and leads to agents, singly or in bulk.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"orderdesk_backend/internal/assignment/transport"
	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/shared/bulk"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
)

// Kind names an assignable entity.
type Kind string

const (
	KindOrder Kind = "order"
	KindLead  Kind = "lead"
)

// Stamp is the assignee data written on an entity. A nil AgentID clears it.
type Stamp struct {
	AgentID        *uuid.UUID
	AgentName      *string
	AssignedAt     *time.Time
	AssignedByName *string
}

// Store reads and writes the assignee of one entity kind.
type Store interface {
	// LockAssignee returns the current assignee and locks the entity until the
	// transaction ends. A missing entity yields a NotFound error.
	LockAssignee(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
	SetAssignee(ctx context.Context, id uuid.UUID, stamp Stamp) error
}

// AgentDirectory resolves agent display names.
type AgentDirectory interface {
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}

// Service provides assignment operations.
type Service struct {
	orders Store
	leads  Store
	agents AgentDirectory
	tx     db.Transactor
	gate   *authz.Gate
	bus    events.Bus
	log    *logger.Logger
	now    func() time.Time
}

// New creates an assignment service.
func New(orders, leads Store, agents AgentDirectory, tx db.Transactor, gate *authz.Gate, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		orders: orders,
		leads:  leads,
		agents: agents,
		tx:     tx,
		gate:   gate,
		bus:    bus,
		log:    log,
		now:    time.Now,
	}
}

// AssignOrder binds an order to agentID.
func (s *Service) AssignOrder(ctx context.Context, id, agentID uuid.UUID, actor authz.Actor) (transport.AssignmentResponse, error) {
	return s.single(ctx, KindOrder, id, &agentID, actor)
}

// UnassignOrder clears the assignee of an order.
func (s *Service) UnassignOrder(ctx context.Context, id uuid.UUID, actor authz.Actor) (transport.AssignmentResponse, error) {
	return s.single(ctx, KindOrder, id, nil, actor)
}

// AssignLead binds a lead to agentID.
func (s *Service) AssignLead(ctx context.Context, id, agentID uuid.UUID, actor authz.Actor) (transport.AssignmentResponse, error) {
	return s.single(ctx, KindLead, id, &agentID, actor)
}

// UnassignLead clears the assignee of a lead.
func (s *Service) UnassignLead(ctx context.Context, id uuid.UUID, actor authz.Actor) (transport.AssignmentResponse, error) {
	return s.single(ctx, KindLead, id, nil, actor)
}

// BulkAssign assigns every id of kind to one agent. The agent is resolved
// once; a missing agent fails the whole request.
func (s *Service) BulkAssign(ctx context.Context, kind Kind, req transport.BulkAssignRequest, actor authz.Actor) (*transport.BulkResponse, error) {
	if err := s.require(kind, actor); err != nil {
		return nil, err
	}
	stamp, err := s.stampFor(ctx, &req.AgentID, actor)
	if err != nil {
		return nil, err
	}
	return s.bulk(ctx, kind, req.IDs, stamp, actor), nil
}

// BulkUnassign clears the assignee of every id of kind.
func (s *Service) BulkUnassign(ctx context.Context, kind Kind, req transport.BulkUnassignRequest, actor authz.Actor) (*transport.BulkResponse, error) {
	if err := s.require(kind, actor); err != nil {
		return nil, err
	}
	return s.bulk(ctx, kind, req.IDs, Stamp{}, actor), nil
}

func (s *Service) single(ctx context.Context, kind Kind, id uuid.UUID, agentID *uuid.UUID, actor authz.Actor) (transport.AssignmentResponse, error) {
	if err := s.require(kind, actor); err != nil {
		return transport.AssignmentResponse{}, err
	}
	stamp, err := s.stampFor(ctx, agentID, actor)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}
	changed, err := s.apply(ctx, kind, id, stamp, actor)
	if err != nil {
		return transport.AssignmentResponse{}, err
	}
	return transport.AssignmentResponse{
		ID:             id,
		Kind:           string(kind),
		AgentID:        stamp.AgentID,
		AgentName:      stamp.AgentName,
		AssignedAt:     stamp.AssignedAt,
		AssignedByName: stamp.AssignedByName,
		Changed:        changed,
	}, nil
}

func (s *Service) bulk(ctx context.Context, kind Kind, ids []uuid.UUID, stamp Stamp, actor authz.Actor) *bulk.Report {
	report := bulk.NewReport(len(ids))
	for _, id := range ids {
		changed, err := s.apply(ctx, kind, id, stamp, actor)
		switch {
		case err != nil:
			report.AddFailed(id, err)
		case !changed && stamp.AgentID == nil:
			report.AddSkipped(id, "already unassigned")
		case !changed:
			report.AddSkipped(id, "already assigned to agent")
		default:
			report.AddUpdated(id)
		}
	}
	s.log.Info("bulk assignment finished",
		"kind", kind, "updated", report.Updated, "skipped", report.Skipped, "failed", report.Failed)
	return report
}

// apply writes stamp unless the entity already has the same assignee.
func (s *Service) apply(ctx context.Context, kind Kind, id uuid.UUID, stamp Stamp, actor authz.Actor) (bool, error) {
	store := s.store(kind)
	changed := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := store.LockAssignee(ctx, id)
		if err != nil {
			return err
		}
		if sameAgent(current, stamp.AgentID) {
			return nil
		}
		if err := store.SetAssignee(ctx, id, stamp); err != nil {
			return err
		}
		changed = true

		db.AfterCommit(ctx, func(ctx context.Context) {
			s.log.Info("assignee changed",
				"kind", kind, "id", id, "agentId", stamp.AgentID, "actor", actor.DisplayName)
			if kind == KindOrder {
				evt := events.OrderAssigned{BaseEvent: events.NewBaseEvent(), OrderID: id, AgentID: stamp.AgentID}
				if stamp.AgentName != nil {
					evt.AgentName = *stamp.AgentName
				}
				s.bus.Publish(ctx, evt)
			}
		})
		return nil
	})
	return changed, err
}

func (s *Service) stampFor(ctx context.Context, agentID *uuid.UUID, actor authz.Actor) (Stamp, error) {
	if agentID == nil {
		return Stamp{}, nil
	}
	name, err := s.agents.DisplayName(ctx, *agentID)
	if apperr.Is(err, apperr.KindNotFound) {
		return Stamp{}, apperr.NotFound("agent not found")
	}
	if err != nil {
		return Stamp{}, err
	}

	now := s.now().UTC()
	id := *agentID
	assigner := actor.DisplayName
	return Stamp{
		AgentID:        &id,
		AgentName:      &name,
		AssignedAt:     &now,
		AssignedByName: &assigner,
	}, nil
}

func (s *Service) require(kind Kind, actor authz.Actor) error {
	if kind == KindLead {
		return s.gate.Require(actor, authz.ActionLeadsAssign)
	}
	return s.gate.Require(actor, authz.ActionOrdersAssign)
}

func (s *Service) store(kind Kind) Store {
	if kind == KindLead {
		return s.leads
	}
	return s.orders
}

func sameAgent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
