package adapters_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk_backend/internal/adapters"
	"orderdesk_backend/internal/authz"
	catrepo "orderdesk_backend/internal/catalog/repository"
	catservice "orderdesk_backend/internal/catalog/service"
	cattransport "orderdesk_backend/internal/catalog/transport"
	"orderdesk_backend/internal/events"
	invrepo "orderdesk_backend/internal/inventory/repository"
	invservice "orderdesk_backend/internal/inventory/service"
	leaddomain "orderdesk_backend/internal/leads/domain"
	leadrepo "orderdesk_backend/internal/leads/repository"
	leadservice "orderdesk_backend/internal/leads/service"
	leadtransport "orderdesk_backend/internal/leads/transport"
	orderdomain "orderdesk_backend/internal/orders/domain"
	orderrepo "orderdesk_backend/internal/orders/repository"
	orderservice "orderdesk_backend/internal/orders/service"
	ordertransport "orderdesk_backend/internal/orders/transport"
	"orderdesk_backend/migrations"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
)

// setupTestDB connects to TEST_DATABASE_URL, applies the migrations and
// empties every table. Tests are skipped when the variable is unset.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = db.RunMigrations(ctx, pool, migrations.FS)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE call_logs, lead_line_items, leads,
			order_notes, order_history, order_line_items, orders,
			inventory_ledger_entries, products, profiles CASCADE`)
	require.NoError(t, err)
	return pool
}

type pgDesk struct {
	inventory *invservice.Service
	catalog   *catservice.Service
	orders    *orderservice.Service
	leads     *leadservice.Service
	stockRepo *invrepo.Repo
	orderRepo *orderrepo.Repo
	admin     authz.Actor
	agent     authz.Actor
	warehouse authz.Actor
}

// newPgDesk wires the services as cmd/api does, on Postgres repositories.
func newPgDesk(t *testing.T) *pgDesk {
	t.Helper()
	pool := setupTestDB(t)
	log := logger.NewWithWriter("test", io.Discard)
	tx := db.NewTxManager(pool)
	gate := authz.MustDefaultGate()
	bus := events.NewInMemoryBus(log)
	t.Cleanup(bus.Wait)

	stockRepo := invrepo.New(pool)
	catalogRepo := catrepo.New(pool)
	orderRepo := orderrepo.New(pool)

	inventory := invservice.New(stockRepo, tx, gate, bus, log)
	catalog := catservice.New(catalogRepo, tx, gate, adapters.NewInventoryStockInitializer(inventory), log)
	products := adapters.NewCatalogProductReader(catalogRepo)

	orders := orderservice.New(orderRepo, tx, gate, adapters.NewInventoryStockLedger(inventory), products, bus, log)
	leads := leadservice.New(leadrepo.New(pool), tx, gate, adapters.NewOrderConverter(orders), products, bus, log)
	orders.SetLeadStatusSync(adapters.NewLeadStatusSync(leads))

	return &pgDesk{
		inventory: inventory,
		catalog:   catalog,
		orders:    orders,
		leads:     leads,
		stockRepo: stockRepo,
		orderRepo: orderRepo,
		admin:     gate.Actor(uuid.New(), []string{authz.RoleAdmin}, "Root"),
		agent:     gate.Actor(uuid.New(), []string{authz.RoleAgent}, "Aya"),
		warehouse: gate.Actor(uuid.New(), []string{authz.RoleWarehouse}, "Omar"),
	}
}

func (d *pgDesk) product(t *testing.T, stock int) uuid.UUID {
	t.Helper()
	p, err := d.catalog.CreateProduct(context.Background(), cattransport.CreateProductRequest{
		Name:         "Desk lamp",
		SKU:          uuid.NewString(),
		Price:        decimal.NewFromInt(12),
		InitialStock: stock,
	}, d.admin)
	require.NoError(t, err)
	return p.ID
}

func (d *pgDesk) confirmedOrder(t *testing.T, productID uuid.UUID, phone string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	order, err := d.orders.Create(ctx, ordertransport.CreateOrderRequest{
		CustomerName:    "Salma",
		CustomerPhone:   phone,
		CustomerCity:    "Rabat",
		CustomerAddress: "12 Rue Atlas",
		Items:           []ordertransport.LineItemRequest{{ProductID: &productID, Quantity: 1}},
	}, d.admin)
	require.NoError(t, err)
	_, err = d.orders.Transition(ctx, order.ID, orderdomain.StatusConfirmed, d.admin)
	require.NoError(t, err)
	return order.ID
}

func (d *pgDesk) orderStatus(t *testing.T, id uuid.UUID) string {
	t.Helper()
	o, err := d.orderRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func TestPostgresLastUnitShipsOnce(t *testing.T) {
	d := newPgDesk(t)
	ctx := context.Background()
	productID := d.product(t, 1)

	const racers = 4
	ids := make([]uuid.UUID, racers)
	for i := range ids {
		ids[i] = d.confirmedOrder(t, productID, fmt.Sprintf("06%08d", i))
	}

	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = d.orders.Transition(ctx, id, orderdomain.StatusShipped, d.warehouse)
		}(i, id)
	}
	wg.Wait()

	shipped := 0
	for i, err := range errs {
		if err == nil {
			shipped++
			assert.Equal(t, orderdomain.StatusShipped, d.orderStatus(t, ids[i]))
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindInsufficientStock), "unexpected error: %v", err)
		assert.Equal(t, orderdomain.StatusConfirmed, d.orderStatus(t, ids[i]))
	}
	assert.Equal(t, 1, shipped)

	stock, err := d.stockRepo.CurrentStock(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)

	res, err := d.inventory.Reconcile(ctx, productID)
	require.NoError(t, err)
	assert.True(t, res.Consistent)
	assert.Equal(t, 2, res.EntryCount)
}

func TestPostgresConcurrentConversionsShareOneOrder(t *testing.T) {
	d := newPgDesk(t)
	ctx := context.Background()
	productID := d.product(t, 5)
	conv := orderservice.LeadConversion{
		LeadID:          uuid.New(),
		CustomerName:    "Salma",
		CustomerPhone:   "0612345678",
		CustomerCity:    "Rabat",
		CustomerAddress: "12 Rue Atlas",
		ProductID:       &productID,
		Quantity:        1,
	}

	const racers = 4
	ids := make([]uuid.UUID, racers)
	created := make([]bool, racers)
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], created[i], errs[i] = d.orders.ConvertLead(ctx, conv, leaddomain.StatusConfirmed, d.agent)
		}(i)
	}
	wg.Wait()

	creators := 0
	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
		if created[i] {
			creators++
		}
	}
	assert.Equal(t, 1, creators)

	list, err := d.orders.List(ctx, ordertransport.ListOrdersRequest{}, d.admin)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, orderdomain.StatusConfirmed, d.orderStatus(t, ids[0]))
}

func TestPostgresLeadAndOrderTransitionsDoNotDeadlock(t *testing.T) {
	d := newPgDesk(t)
	ctx := context.Background()
	productID := d.product(t, 5)

	lead, err := d.leads.Create(ctx, leadtransport.CreateLeadRequest{
		Name:      "Salma",
		Phone:     "0612345678",
		City:      "Rabat",
		Address:   "12 Rue Atlas",
		ProductID: &productID,
	}, d.admin)
	require.NoError(t, err)
	resp, err := d.leads.Transition(ctx, lead.ID, leadtransport.TransitionRequest{Status: leaddomain.StatusConfirmed}, d.admin)
	require.NoError(t, err)
	require.NotNil(t, resp.OrderID)
	orderID := *resp.OrderID

	const rounds = 20
	leadStatuses := []string{leaddomain.StatusCallAgain, leaddomain.StatusConfirmed}
	orderStatuses := []string{orderdomain.StatusCallAgain, orderdomain.StatusConfirmed}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := d.leads.Transition(ctx, lead.ID, leadtransport.TransitionRequest{Status: leadStatuses[i%2]}, d.admin)
			record(err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := d.orders.Transition(ctx, orderID, orderStatuses[i%2], d.admin)
			record(err)
		}
	}()
	wg.Wait()

	for _, err := range errs {
		assert.True(t, apperr.Is(err, apperr.KindPreconditionFailed), "unexpected error: %v", err)
	}

	assert.Contains(t, orderStatuses, d.orderStatus(t, orderID))
	detail, err := d.leads.Get(ctx, lead.ID, d.admin)
	require.NoError(t, err)
	assert.Contains(t, []string{leaddomain.StatusCallAgain, leaddomain.StatusConfirmed, leaddomain.StatusNoAnswer}, detail.Status)
}
