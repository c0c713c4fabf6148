package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk_backend/internal/assignment/transport"
	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/shared/bulk"
	"orderdesk_backend/internal/testutil/memstore"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/logger"
)

type mapStore struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]Stamp
	locks int
}

func newMapStore(ids ...uuid.UUID) *mapStore {
	s := &mapStore{rows: map[uuid.UUID]Stamp{}}
	for _, id := range ids {
		s.rows[id] = Stamp{}
	}
	return s
}

func (s *mapStore) LockAssignee(_ context.Context, id uuid.UUID) (*uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks++
	row, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("record not found")
	}
	return row.AgentID, nil
}

func (s *mapStore) SetAssignee(_ context.Context, id uuid.UUID, stamp Stamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id] = stamp
	return nil
}

type assignmentFixture struct {
	svc     *Service
	orders  *mapStore
	leads   *mapStore
	bus     *events.InMemoryBus
	agentID uuid.UUID
	admin   authz.Actor
	agent   authz.Actor
}

func newAssignmentFixture(t *testing.T, orderIDs, leadIDs []uuid.UUID) *assignmentFixture {
	t.Helper()
	log := logger.NewWithWriter("test", io.Discard)
	store := memstore.New()
	gate := authz.MustDefaultGate()
	agentID := uuid.New()
	store.Profiles().AddProfile(agentID, "Aya")

	orders := newMapStore(orderIDs...)
	leads := newMapStore(leadIDs...)
	bus := events.NewInMemoryBus(log)

	svc := New(orders, leads, store.Profiles(), store, gate, bus, log)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	return &assignmentFixture{
		svc:     svc,
		orders:  orders,
		leads:   leads,
		bus:     bus,
		agentID: agentID,
		admin:   gate.Actor(uuid.New(), []string{authz.RoleManager}, "Nadia"),
		agent:   gate.Actor(agentID, []string{authz.RoleAgent}, "Aya"),
	}
}

func TestAssignOrderStampsAgent(t *testing.T) {
	orderID := uuid.New()
	f := newAssignmentFixture(t, []uuid.UUID{orderID}, nil)

	var (
		mu       sync.Mutex
		assigned []events.OrderAssigned
	)
	f.bus.Subscribe(events.OrderAssigned{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		assigned = append(assigned, e.(events.OrderAssigned))
		return nil
	}))

	resp, err := f.svc.AssignOrder(context.Background(), orderID, f.agentID, f.admin)
	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.Equal(t, "order", resp.Kind)
	require.NotNil(t, resp.AgentName)
	assert.Equal(t, "Aya", *resp.AgentName)
	require.NotNil(t, resp.AssignedByName)
	assert.Equal(t, "Nadia", *resp.AssignedByName)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), *resp.AssignedAt)

	resp, err = f.svc.AssignOrder(context.Background(), orderID, f.agentID, f.admin)
	require.NoError(t, err)
	assert.False(t, resp.Changed)

	f.bus.Wait()
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, assigned, 1)
	assert.Equal(t, orderID, assigned[0].OrderID)
	assert.Equal(t, "Aya", assigned[0].AgentName)
}

func TestAssignRequiresPrivilegedActor(t *testing.T) {
	orderID, leadID := uuid.New(), uuid.New()
	f := newAssignmentFixture(t, []uuid.UUID{orderID}, []uuid.UUID{leadID})

	_, err := f.svc.AssignOrder(context.Background(), orderID, f.agentID, f.agent)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.svc.UnassignLead(context.Background(), leadID, f.agent)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Zero(t, f.orders.locks)
}

func TestAssignUnknownAgent(t *testing.T) {
	leadID := uuid.New()
	f := newAssignmentFixture(t, nil, []uuid.UUID{leadID})

	_, err := f.svc.AssignLead(context.Background(), leadID, uuid.New(), f.admin)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "agent not found", err.Error())
}

func TestUnassignLeadClearsStamp(t *testing.T) {
	leadID := uuid.New()
	f := newAssignmentFixture(t, nil, []uuid.UUID{leadID})
	ctx := context.Background()

	_, err := f.svc.AssignLead(ctx, leadID, f.agentID, f.admin)
	require.NoError(t, err)

	resp, err := f.svc.UnassignLead(ctx, leadID, f.admin)
	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.Nil(t, resp.AgentID)
	assert.Equal(t, Stamp{}, f.leads.rows[leadID])

	resp, err = f.svc.UnassignLead(ctx, leadID, f.admin)
	require.NoError(t, err)
	assert.False(t, resp.Changed)
}

func TestBulkAssignReport(t *testing.T) {
	fresh, already := uuid.New(), uuid.New()
	missing := uuid.New()
	f := newAssignmentFixture(t, []uuid.UUID{fresh, already}, nil)
	ctx := context.Background()

	_, err := f.svc.AssignOrder(ctx, already, f.agentID, f.admin)
	require.NoError(t, err)

	report, err := f.svc.BulkAssign(ctx, KindOrder, transport.BulkAssignRequest{
		IDs:     []uuid.UUID{fresh, already, missing},
		AgentID: f.agentID,
	}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []bulk.ItemResult{
		{ID: fresh, Outcome: bulk.OutcomeUpdated},
		{ID: already, Outcome: bulk.OutcomeSkipped, Reason: "already assigned to agent"},
		{ID: missing, Outcome: bulk.OutcomeFailed, Reason: "record not found"},
	}, report.Results)
}

func TestBulkAssignUnknownAgentFailsWholeRequest(t *testing.T) {
	id := uuid.New()
	f := newAssignmentFixture(t, []uuid.UUID{id}, nil)

	_, err := f.svc.BulkAssign(context.Background(), KindOrder, transport.BulkAssignRequest{
		IDs:     []uuid.UUID{id},
		AgentID: uuid.New(),
	}, f.admin)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Zero(t, f.orders.locks)
}

func TestBulkUnassignLeads(t *testing.T) {
	assigned, free := uuid.New(), uuid.New()
	f := newAssignmentFixture(t, nil, []uuid.UUID{assigned, free})
	ctx := context.Background()

	_, err := f.svc.AssignLead(ctx, assigned, f.agentID, f.admin)
	require.NoError(t, err)

	report, err := f.svc.BulkUnassign(ctx, KindLead, transport.BulkUnassignRequest{IDs: []uuid.UUID{assigned, free}}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "already unassigned", report.Results[1].Reason)
}
