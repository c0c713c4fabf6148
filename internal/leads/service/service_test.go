package service

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/leads/domain"
	"orderdesk_backend/internal/leads/ports"
	"orderdesk_backend/internal/leads/transport"
	"orderdesk_backend/internal/testutil/memstore"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/logger"
)

type conversion struct {
	lead   ports.ConvertibleLead
	status string
}

type fakeConverter struct {
	orderID     uuid.UUID
	conversions []conversion
	detached    []uuid.UUID
}

func (f *fakeConverter) ConvertLead(_ context.Context, lead ports.ConvertibleLead, status string, _ authz.Actor) (uuid.UUID, error) {
	f.conversions = append(f.conversions, conversion{lead, status})
	return f.orderID, nil
}

func (f *fakeConverter) DetachLead(_ context.Context, leadID uuid.UUID) error {
	f.detached = append(f.detached, leadID)
	return nil
}

type fakeProducts map[uuid.UUID]ports.Product

func (f fakeProducts) GetProduct(_ context.Context, id uuid.UUID) (ports.Product, error) {
	p, ok := f[id]
	if !ok {
		return ports.Product{}, apperr.NotFound("product not found")
	}
	return p, nil
}

type leadsFixture struct {
	svc       *Service
	store     *memstore.Store
	orders    *fakeConverter
	productID uuid.UUID
	admin     authz.Actor
	aya       authz.Actor
	karim     authz.Actor
}

func newLeadsFixture(t *testing.T) *leadsFixture {
	t.Helper()
	log := logger.NewWithWriter("test", io.Discard)
	store := memstore.New()
	gate := authz.MustDefaultGate()
	productID := uuid.New()
	orders := &fakeConverter{orderID: uuid.New()}
	products := fakeProducts{productID: {ID: productID, Name: "Desk lamp", Price: decimal.NewFromInt(5)}}

	return &leadsFixture{
		svc:       New(store.Leads(), store, gate, orders, products, events.NewInMemoryBus(log), log),
		store:     store,
		orders:    orders,
		productID: productID,
		admin:     gate.Actor(uuid.New(), []string{authz.RoleAdmin}, "Root"),
		aya:       gate.Actor(uuid.New(), []string{authz.RoleAgent}, "Aya"),
		karim:     gate.Actor(uuid.New(), []string{authz.RoleAgent}, "Karim"),
	}
}

func (f *leadsFixture) lead(t *testing.T) transport.LeadDetailResponse {
	t.Helper()
	lead, err := f.svc.Create(context.Background(), transport.CreateLeadRequest{
		Name:    "Salma",
		Phone:   "0612345678",
		City:    "Rabat",
		Address: "12 Rue Atlas",
		Items:   []transport.LeadItemRequest{{ProductID: &f.productID, Quantity: 2}},
	}, f.admin)
	require.NoError(t, err)
	return lead
}

func (f *leadsFixture) transition(id uuid.UUID, status string, actor authz.Actor) (transport.TransitionResponse, error) {
	return f.svc.Transition(context.Background(), id, transport.TransitionRequest{Status: status}, actor)
}

func TestCreateStartsNotContacted(t *testing.T) {
	f := newLeadsFixture(t)
	lead := f.lead(t)

	assert.Equal(t, domain.StatusNotContacted, lead.Status)
	assert.Equal(t, "+212612345678", lead.Phone)
	require.Len(t, lead.Items, 1)
	assert.Equal(t, "Desk lamp", lead.Items[0].Description)
	assert.True(t, lead.Items[0].UnitPrice.Equal(decimal.NewFromInt(5)))
	assert.Nil(t, lead.AssignedAgentID)
}

func TestClaimingOutcomeBindsLeadToAgent(t *testing.T) {
	f := newLeadsFixture(t)
	lead := f.lead(t)

	resp, err := f.transition(lead.ID, domain.StatusInterested, f.aya)
	require.NoError(t, err)
	assert.True(t, resp.Changed)
	require.NotNil(t, resp.Lead.AssignedAgentID)
	assert.Equal(t, f.aya.UserID, *resp.Lead.AssignedAgentID)

	_, err = f.transition(lead.ID, domain.StatusNoAnswer, f.karim)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.Get(context.Background(), lead.ID, f.karim)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.transition(lead.ID, domain.StatusNoAnswer, f.admin)
	assert.NoError(t, err)
}

func TestNonClaimingOutcomeLeavesLeadUnassigned(t *testing.T) {
	f := newLeadsFixture(t)
	lead := f.lead(t)

	resp, err := f.transition(lead.ID, domain.StatusNotInterested, f.aya)
	require.NoError(t, err)
	assert.Nil(t, resp.Lead.AssignedAgentID)
}

func TestRepeatedOutcomes(t *testing.T) {
	f := newLeadsFixture(t)
	ctx := context.Background()
	lead := f.lead(t)

	resp, err := f.transition(lead.ID, domain.StatusNotContacted, f.admin)
	require.NoError(t, err)
	assert.False(t, resp.Changed)

	_, err = f.transition(lead.ID, domain.StatusNoAnswer, f.aya)
	require.NoError(t, err)
	resp, err = f.transition(lead.ID, domain.StatusNoAnswer, f.aya)
	require.NoError(t, err)
	assert.True(t, resp.Changed)

	detail, err := f.svc.Get(ctx, lead.ID, f.aya)
	require.NoError(t, err)
	assert.Len(t, detail.CallLogs, 2)
}

func TestTransitionOutsideGraphIsRefused(t *testing.T) {
	f := newLeadsFixture(t)
	lead := f.lead(t)
	f.orders.orderID = uuid.Nil

	_, err := f.transition(lead.ID, domain.StatusConfirmed, f.aya)
	require.NoError(t, err)

	_, err = f.transition(lead.ID, domain.StatusNoAnswer, f.aya)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))

	_, err = f.transition(lead.ID, "ghosted", f.aya)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestConvertingOutcomeHandsLeadToOrders(t *testing.T) {
	f := newLeadsFixture(t)
	lead := f.lead(t)

	resp, err := f.transition(lead.ID, domain.StatusConfirmed, f.aya)
	require.NoError(t, err)
	require.NotNil(t, resp.OrderID)
	assert.Equal(t, f.orders.orderID, *resp.OrderID)

	require.Len(t, f.orders.conversions, 1)
	conv := f.orders.conversions[0]
	assert.Equal(t, domain.StatusConfirmed, conv.status)
	assert.Equal(t, lead.ID, conv.lead.ID)
	assert.Equal(t, "12 Rue Atlas", conv.lead.Address)
	require.NotNil(t, conv.lead.AgentID)
	assert.Equal(t, f.aya.UserID, *conv.lead.AgentID)
	require.Len(t, conv.lead.Items, 1)
	assert.Equal(t, 2, conv.lead.Items[0].Quantity)

	_, err = f.transition(lead.ID, domain.StatusCallAgain, f.aya)
	require.NoError(t, err)
	require.Len(t, f.orders.conversions, 2)
	assert.Equal(t, domain.StatusCallAgain, f.orders.conversions[1].status)
}

func TestTake(t *testing.T) {
	f := newLeadsFixture(t)
	ctx := context.Background()
	lead := f.lead(t)

	taken, err := f.svc.Take(ctx, lead.ID, f.aya)
	require.NoError(t, err)
	require.NotNil(t, taken.AssignedAgentID)
	assert.Equal(t, f.aya.UserID, *taken.AssignedAgentID)
	assert.Equal(t, domain.StatusNotContacted, taken.Status)

	_, err = f.svc.Take(ctx, lead.ID, f.aya)
	assert.NoError(t, err)

	_, err = f.svc.Take(ctx, lead.ID, f.karim)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestListScopesAgentsToOwnAndUnclaimed(t *testing.T) {
	f := newLeadsFixture(t)
	ctx := context.Background()
	mine := f.lead(t)
	theirs := f.lead(t)
	f.lead(t)

	_, err := f.svc.Take(ctx, mine.ID, f.aya)
	require.NoError(t, err)
	_, err = f.svc.Take(ctx, theirs.ID, f.karim)
	require.NoError(t, err)

	list, err := f.svc.List(ctx, transport.ListLeadsRequest{}, f.aya)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	for _, l := range list.Items {
		assert.NotEqual(t, theirs.ID, l.ID)
	}

	list, err = f.svc.List(ctx, transport.ListLeadsRequest{}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
}

func TestSyncFromOrderBypassesGraph(t *testing.T) {
	f := newLeadsFixture(t)
	ctx := context.Background()
	lead := f.lead(t)
	_, err := f.transition(lead.ID, domain.StatusConfirmed, f.aya)
	require.NoError(t, err)

	require.NoError(t, f.svc.SyncFromOrder(ctx, lead.ID, domain.StatusNoAnswer, f.admin))
	detail, err := f.svc.Get(ctx, lead.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNoAnswer, detail.Status)
	assert.Len(t, f.orders.conversions, 1)

	assert.NoError(t, f.svc.SyncFromOrder(ctx, uuid.New(), domain.StatusConfirmed, f.admin))
}

func TestLockLeadIgnoresMissingLeads(t *testing.T) {
	f := newLeadsFixture(t)
	ctx := context.Background()
	lead := f.lead(t)

	err := f.store.WithinTx(ctx, func(ctx context.Context) error {
		return f.svc.LockLead(ctx, lead.ID)
	})
	assert.NoError(t, err)
	assert.NoError(t, f.svc.LockLead(ctx, uuid.New()))
}

func TestUpdateWithStatusRunsTransition(t *testing.T) {
	f := newLeadsFixture(t)
	ctx := context.Background()
	lead := f.lead(t)
	city := "Casablanca"
	status := domain.StatusConfirmed

	detail, err := f.svc.Update(ctx, lead.ID, transport.UpdateLeadRequest{City: &city, Status: &status}, f.aya)
	require.NoError(t, err)
	assert.Equal(t, "Casablanca", detail.City)
	assert.Equal(t, domain.StatusConfirmed, detail.Status)
	require.Len(t, f.orders.conversions, 1)
	assert.Equal(t, "Casablanca", f.orders.conversions[0].lead.City)
}

func TestPurgeDetachesOrder(t *testing.T) {
	f := newLeadsFixture(t)
	ctx := context.Background()
	lead := f.lead(t)

	err := f.svc.Purge(ctx, lead.ID, f.aya)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	require.NoError(t, f.svc.Purge(ctx, lead.ID, f.admin))
	assert.Equal(t, []uuid.UUID{lead.ID}, f.orders.detached)

	_, err = f.svc.Get(ctx, lead.ID, f.admin)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
