package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/orders/domain"
	"orderdesk_backend/internal/orders/ports"
	"orderdesk_backend/internal/orders/repository"
	"orderdesk_backend/internal/orders/transport"
	"orderdesk_backend/internal/testutil/memstore"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/logger"
)

type stockCall struct {
	orderID uuid.UUID
	lines   []ports.StockLine
}

type fakeStock struct {
	mu        sync.Mutex
	deducted  []stockCall
	restored  []stockCall
	deductErr error
}

func (f *fakeStock) Deduct(_ context.Context, orderID uuid.UUID, lines []ports.StockLine, _ authz.Actor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deductErr != nil {
		return f.deductErr
	}
	f.deducted = append(f.deducted, stockCall{orderID, lines})
	return nil
}

func (f *fakeStock) Restore(_ context.Context, orderID uuid.UUID, lines []ports.StockLine, _ authz.Actor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restored = append(f.restored, stockCall{orderID, lines})
	return nil
}

type fakeProducts map[uuid.UUID]ports.ProductSnapshot

func (f fakeProducts) GetProductSnapshot(_ context.Context, id uuid.UUID) (ports.ProductSnapshot, error) {
	p, ok := f[id]
	if !ok {
		return ports.ProductSnapshot{}, apperr.NotFound("product not found")
	}
	return p, nil
}

type leadSync struct {
	leadID uuid.UUID
	status string
}

type fakeLeadSync struct {
	calls   []leadSync
	locked  []uuid.UUID
	journal *[]string
}

func (f *fakeLeadSync) LockLead(_ context.Context, leadID uuid.UUID) error {
	f.locked = append(f.locked, leadID)
	if f.journal != nil {
		*f.journal = append(*f.journal, "lead")
	}
	return nil
}

func (f *fakeLeadSync) SyncFromOrder(_ context.Context, leadID uuid.UUID, status string, _ authz.Actor) error {
	f.calls = append(f.calls, leadSync{leadID, status})
	return nil
}

// lockJournal records the order in which rows are locked.
type lockJournal struct {
	repository.Repository
	journal *[]string
}

func (r lockJournal) GetForUpdate(ctx context.Context, id uuid.UUID) (repository.Order, error) {
	*r.journal = append(*r.journal, "order")
	return r.Repository.GetForUpdate(ctx, id)
}

type ordersFixture struct {
	svc       *Service
	store     *memstore.Store
	stock     *fakeStock
	leads     *fakeLeadSync
	productID uuid.UUID
	admin     authz.Actor
	agent     authz.Actor
	warehouse authz.Actor
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()
	log := logger.NewWithWriter("test", io.Discard)
	store := memstore.New()
	gate := authz.MustDefaultGate()
	productID := uuid.New()
	products := fakeProducts{productID: {ID: productID, Name: "Desk lamp", Price: decimal.NewFromInt(5), IsActive: true}}
	stock := &fakeStock{}
	leads := &fakeLeadSync{}

	svc := New(store.Orders(), store, gate, stock, products, events.NewInMemoryBus(log), log)
	svc.SetLeadStatusSync(leads)

	return &ordersFixture{
		svc:       svc,
		store:     store,
		stock:     stock,
		leads:     leads,
		productID: productID,
		admin:     gate.Actor(uuid.New(), []string{authz.RoleAdmin}, "Root"),
		agent:     gate.Actor(uuid.New(), []string{authz.RoleAgent}, "Aya"),
		warehouse: gate.Actor(uuid.New(), []string{authz.RoleWarehouse}, "Omar"),
	}
}

func (f *ordersFixture) completeOrder(t *testing.T, actor authz.Actor) transport.OrderDetailResponse {
	t.Helper()
	order, err := f.svc.Create(context.Background(), transport.CreateOrderRequest{
		CustomerName:    "Salma",
		CustomerPhone:   "0612345678",
		CustomerCity:    "Rabat",
		CustomerAddress: "12 Rue Atlas",
		Items:           []transport.LineItemRequest{{ProductID: &f.productID, Quantity: 2}},
	}, actor)
	require.NoError(t, err)
	return order
}

func (f *ordersFixture) move(t *testing.T, id uuid.UUID, actor authz.Actor, statuses ...string) {
	t.Helper()
	for _, s := range statuses {
		_, err := f.svc.Transition(context.Background(), id, s, actor)
		require.NoError(t, err, "transition to %s", s)
	}
}

func TestCreateComputesTotalFromItems(t *testing.T) {
	f := newOrdersFixture(t)
	price := decimal.NewFromInt(15)

	order, err := f.svc.Create(context.Background(), transport.CreateOrderRequest{
		CustomerName: "Salma",
		Items: []transport.LineItemRequest{
			{ProductID: &f.productID, Quantity: 2},
			{Description: "Gift wrap", Quantity: 1, UnitPrice: &price},
		},
	}, f.admin)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(25)), "total %s", order.TotalAmount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Desk lamp", order.Items[0].Description)
	assert.True(t, order.Items[0].LineTotal.Equal(decimal.NewFromInt(10)))
	assert.Nil(t, order.AssignedAgentID)
}

func TestCreateRejectsFreeformItemWithoutDescription(t *testing.T) {
	f := newOrdersFixture(t)
	_, err := f.svc.Create(context.Background(), transport.CreateOrderRequest{
		Items: []transport.LineItemRequest{{Quantity: 1}},
	}, f.admin)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAgentCreatedOrderIsSelfAssigned(t *testing.T) {
	f := newOrdersFixture(t)
	order := f.completeOrder(t, f.agent)

	require.NotNil(t, order.AssignedAgentID)
	assert.Equal(t, f.agent.UserID, *order.AssignedAgentID)
	assert.Equal(t, "+212612345678", order.CustomerPhone)
}

func TestConfirmRequiresCompleteCustomerData(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order, err := f.svc.Create(ctx, transport.CreateOrderRequest{
		CustomerName:  "Salma",
		CustomerPhone: "0612345678",
		CustomerCity:  "Rabat",
	}, f.admin)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, order.ID, domain.StatusConfirmed, f.admin)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, map[string][]string{"missing": {"customerAddress"}}, appErr.Details)

	address := "12 Rue Atlas"
	_, err = f.svc.Update(ctx, order.ID, transport.UpdateOrderRequest{CustomerAddress: &address}, f.admin)
	require.NoError(t, err)
	f.move(t, order.ID, f.admin, domain.StatusConfirmed)
}

func TestTransitionRejectsEdgesOutsideTheGraph(t *testing.T) {
	f := newOrdersFixture(t)
	order := f.completeOrder(t, f.admin)

	_, err := f.svc.Transition(context.Background(), order.ID, domain.StatusShipped, f.admin)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))

	_, err = f.svc.Transition(context.Background(), order.ID, "lost", f.admin)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestShipDeductsOnceAndReturnRestores(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.completeOrder(t, f.admin)

	f.move(t, order.ID, f.admin, domain.StatusConfirmed, domain.StatusShipped)

	again, err := f.svc.Transition(ctx, order.ID, domain.StatusShipped, f.admin)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.True(t, again.Order.StockDeducted)

	require.Len(t, f.stock.deducted, 1)
	assert.Equal(t, []ports.StockLine{{ProductID: f.productID, Quantity: 2}}, f.stock.deducted[0].lines)

	f.move(t, order.ID, f.admin, domain.StatusDelivered, domain.StatusReturned)
	require.Len(t, f.stock.restored, 1)

	detail, err := f.svc.Get(ctx, order.ID, f.admin)
	require.NoError(t, err)
	assert.False(t, detail.StockDeducted)
	assert.Equal(t, domain.StatusReturned, detail.Status)
	assert.Len(t, detail.History, 4)
}

func TestShipWithoutStockFailsWithInsufficientStock(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.completeOrder(t, f.admin)
	f.move(t, order.ID, f.admin, domain.StatusConfirmed)

	f.stock.deductErr = apperr.OutOfStock("insufficient stock").
		WithDetails(map[string][]string{"productIds": {f.productID.String()}})

	_, err := f.svc.Transition(ctx, order.ID, domain.StatusShipped, f.admin)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))

	detail, err := f.svc.Get(ctx, order.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, detail.Status)
	assert.False(t, detail.StockDeducted)
}

func TestItemsLockedAfterShipping(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.completeOrder(t, f.admin)
	f.move(t, order.ID, f.admin, domain.StatusConfirmed, domain.StatusShipped)

	_, err := f.svc.AddItem(ctx, order.ID, transport.LineItemRequest{ProductID: &f.productID, Quantity: 1}, f.admin)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))

	_, err = f.svc.DeleteItem(ctx, order.ID, order.Items[0].ID, f.admin)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))

	qty := 4
	_, err = f.svc.Update(ctx, order.ID, transport.UpdateOrderRequest{Quantity: &qty}, f.admin)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))

	city := "Fes"
	_, err = f.svc.Update(ctx, order.ID, transport.UpdateOrderRequest{CustomerCity: &city}, f.admin)
	assert.NoError(t, err)
}

func TestItemEditsRecomputeTotal(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.completeOrder(t, f.admin)

	qty := 3
	detail, err := f.svc.PatchItem(ctx, order.ID, order.Items[0].ID, transport.PatchItemRequest{Quantity: &qty}, f.admin)
	require.NoError(t, err)
	assert.True(t, detail.TotalAmount.Equal(decimal.NewFromInt(15)))

	detail, err = f.svc.DeleteItem(ctx, order.ID, order.Items[0].ID, f.admin)
	require.NoError(t, err)
	assert.Empty(t, detail.Items)

	_, err = f.svc.DeleteItem(ctx, order.ID, uuid.New(), f.admin)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRoleStatusGrants(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.completeOrder(t, f.agent)
	f.move(t, order.ID, f.agent, domain.StatusConfirmed)

	_, err := f.svc.Transition(ctx, order.ID, domain.StatusShipped, f.agent)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	f.move(t, order.ID, f.warehouse, domain.StatusShipped)

	_, err = f.svc.Transition(ctx, order.ID, domain.StatusReturned, f.warehouse)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	err = f.svc.Purge(ctx, order.ID, f.agent)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestAgentVisibility(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	gate := authz.MustDefaultGate()
	other := gate.Actor(uuid.New(), []string{authz.RoleAgent}, "Karim")

	mine := f.completeOrder(t, f.agent)
	unassigned := f.completeOrder(t, f.admin)

	_, err := f.svc.Get(ctx, mine.ID, other)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.svc.Get(ctx, unassigned.ID, other)
	assert.NoError(t, err)

	list, err := f.svc.List(ctx, transport.ListOrdersRequest{}, f.agent)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, mine.ID, list.Items[0].ID)

	list, err = f.svc.List(ctx, transport.ListOrdersRequest{}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
}

func TestBulkTransitionReportsEachOrder(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	ready := f.completeOrder(t, f.admin)
	already := f.completeOrder(t, f.admin)
	f.move(t, already.ID, f.admin, domain.StatusConfirmed)
	incomplete, err := f.svc.Create(ctx, transport.CreateOrderRequest{CustomerName: "Nour"}, f.admin)
	require.NoError(t, err)

	report, err := f.svc.BulkTransition(ctx, transport.BulkStatusRequest{
		OrderIDs: []uuid.UUID{ready.ID, already.ID, incomplete.ID, uuid.New()},
		Status:   domain.StatusConfirmed,
	}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Failed)
}

func TestConvertLeadCreatesOneOrderAndMirrorsStatus(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	leadID := uuid.New()
	conv := LeadConversion{
		LeadID:          leadID,
		CustomerName:    "Salma",
		CustomerPhone:   "0612345678",
		CustomerCity:    "Rabat",
		CustomerAddress: "12 Rue Atlas",
		ProductID:       &f.productID,
		Quantity:        2,
	}

	first, created, err := f.svc.ConvertLead(ctx, conv, "confirmed", f.agent)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.svc.ConvertLead(ctx, conv, "confirmed", f.agent)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)

	order, err := f.store.Orders().GetByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(10)))
	assert.Empty(t, f.leads.calls, "lead-driven transitions are not mirrored back")

	f.move(t, first, f.warehouse, domain.StatusShipped, domain.StatusDelivered, domain.StatusPaid)
	require.Len(t, f.leads.calls, 3)
	assert.Equal(t, leadSync{leadID, "confirmed"}, f.leads.calls[2])

	f.move(t, first, f.admin, domain.StatusReturned)
	assert.Equal(t, leadSync{leadID, "not_interested"}, f.leads.calls[3])
}

func TestConvertLeadSkipsLeadWithoutContactData(t *testing.T) {
	f := newOrdersFixture(t)
	id, created, err := f.svc.ConvertLead(context.Background(), LeadConversion{LeadID: uuid.New()}, "confirmed", f.agent)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uuid.Nil, id)
}

func TestConvertLeadLeavesIncompleteOrderPending(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	id, created, err := f.svc.ConvertLead(ctx, LeadConversion{
		LeadID:        uuid.New(),
		CustomerName:  "Salma",
		CustomerPhone: "0612345678",
	}, "confirmed", f.agent)
	require.NoError(t, err)
	assert.True(t, created)

	order, err := f.store.Orders().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, order.Status)
}

func TestAddNoteAndPurge(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.completeOrder(t, f.admin)

	note, err := f.svc.AddNote(ctx, order.ID, transport.AddNoteRequest{Body: "call after 6pm"}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, "Root", note.AuthorName)

	require.NoError(t, f.svc.Purge(ctx, order.ID, f.admin))
	_, err = f.svc.Get(ctx, order.ID, f.admin)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSameStatusStillRequiresCompleteData(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.completeOrder(t, f.admin)
	f.move(t, order.ID, f.admin, domain.StatusConfirmed)

	blank := ""
	_, err := f.store.Orders().UpdateCustomer(ctx, repository.UpdateCustomerParams{ID: order.ID, CustomerAddress: &blank})
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, order.ID, domain.StatusConfirmed, f.admin)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, map[string][]string{"missing": {"customerAddress"}}, appErr.Details)

	report, err := f.svc.BulkTransition(ctx, transport.BulkStatusRequest{
		OrderIDs: []uuid.UUID{order.ID},
		Status:   domain.StatusConfirmed,
	}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Skipped)
}

func TestPaidRequiresAddress(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.completeOrder(t, f.admin)
	f.move(t, order.ID, f.admin, domain.StatusConfirmed, domain.StatusShipped, domain.StatusDelivered)

	blank := ""
	_, err := f.store.Orders().UpdateCustomer(ctx, repository.UpdateCustomerParams{ID: order.ID, CustomerAddress: &blank})
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, order.ID, domain.StatusPaid, f.admin)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed))

	detail, err := f.svc.Get(ctx, order.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, detail.Status)
	assert.Len(t, detail.History, 3)
	assert.Len(t, f.stock.deducted, 1)
}

func TestUpdateKeepsCustomerDataOnCompleteOrders(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	order := f.completeOrder(t, f.admin)
	blank := "  "

	_, err := f.svc.Update(ctx, order.ID, transport.UpdateOrderRequest{CustomerAddress: &blank}, f.admin)
	require.NoError(t, err, "pending orders may be incomplete")
	address := "12 Rue Atlas"
	_, err = f.svc.Update(ctx, order.ID, transport.UpdateOrderRequest{CustomerAddress: &address}, f.admin)
	require.NoError(t, err)

	for _, status := range []string{domain.StatusConfirmed, domain.StatusShipped, domain.StatusDelivered} {
		f.move(t, order.ID, f.admin, status)

		_, err = f.svc.Update(ctx, order.ID, transport.UpdateOrderRequest{CustomerAddress: &blank}, f.admin)
		require.Error(t, err, status)
		assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed), status)

		detail, err := f.svc.Get(ctx, order.ID, f.admin)
		require.NoError(t, err)
		assert.Equal(t, "12 Rue Atlas", detail.CustomerAddress, status)
	}
}

func TestAgentCannotTransitionAnotherAgentsOrder(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()
	other := authz.MustDefaultGate().Actor(uuid.New(), []string{authz.RoleAgent}, "Karim")
	order := f.completeOrder(t, f.agent)

	_, err := f.svc.Transition(ctx, order.ID, domain.StatusConfirmed, other)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	report, err := f.svc.BulkTransition(ctx, transport.BulkStatusRequest{
		OrderIDs: []uuid.UUID{order.ID},
		Status:   domain.StatusConfirmed,
	}, other)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	detail, err := f.svc.Get(ctx, order.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, detail.Status)
	assert.Empty(t, detail.History)

	f.move(t, order.ID, f.agent, domain.StatusConfirmed)
	f.move(t, order.ID, f.warehouse, domain.StatusShipped)
}

func TestOrderTransitionLocksLeadBeforeOrder(t *testing.T) {
	log := logger.NewWithWriter("test", io.Discard)
	store := memstore.New()
	gate := authz.MustDefaultGate()
	productID := uuid.New()
	products := fakeProducts{productID: {ID: productID, Name: "Desk lamp", Price: decimal.NewFromInt(5), IsActive: true}}
	var journal []string
	leads := &fakeLeadSync{journal: &journal}

	svc := New(lockJournal{Repository: store.Orders(), journal: &journal}, store, gate, &fakeStock{}, products, events.NewInMemoryBus(log), log)
	svc.SetLeadStatusSync(leads)
	admin := gate.Actor(uuid.New(), []string{authz.RoleAdmin}, "Root")
	ctx := context.Background()

	leadID := uuid.New()
	orderID, created, err := svc.ConvertLead(ctx, LeadConversion{
		LeadID:          leadID,
		CustomerName:    "Salma",
		CustomerPhone:   "0612345678",
		CustomerCity:    "Rabat",
		CustomerAddress: "12 Rue Atlas",
		ProductID:       &productID,
		Quantity:        1,
	}, "confirmed", admin)
	require.NoError(t, err)
	require.True(t, created)
	assert.Empty(t, leads.locked, "lead-driven transitions run under the caller's lead lock")

	journal = nil
	_, err = svc.Transition(ctx, orderID, domain.StatusShipped, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"lead", "order"}, journal)
	assert.Equal(t, []uuid.UUID{leadID}, leads.locked)

	standalone, err := svc.Create(ctx, transport.CreateOrderRequest{CustomerName: "Nour"}, admin)
	require.NoError(t, err)
	journal = nil
	_, err = svc.Transition(ctx, standalone.ID, domain.StatusTake, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"order"}, journal)
}
