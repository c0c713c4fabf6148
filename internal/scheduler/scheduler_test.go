package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk_backend/internal/email"
	"orderdesk_backend/internal/events"
	invtransport "orderdesk_backend/internal/inventory/transport"
	"orderdesk_backend/platform/logger"
)

func testLogger() *logger.Logger {
	return logger.NewWithWriter("test", io.Discard)
}

func newTestClient(t *testing.T, queue string) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := newClient(asynq.RedisClientOpt{Addr: mr.Addr()}, queue)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func pendingKey(queue string) string {
	return "asynq:{" + queue + "}:pending"
}

func TestEnqueueLowStockAlertDeduplicatesPerProduct(t *testing.T) {
	c, mr := newTestClient(t, "alerts")
	ctx := context.Background()
	payload := LowStockAlertPayload{ProductID: uuid.NewString(), ProductName: "Desk lamp", Stock: 2, Threshold: 3}

	require.NoError(t, c.EnqueueLowStockAlert(ctx, payload))
	require.NoError(t, c.EnqueueLowStockAlert(ctx, payload))

	pending, err := mr.List(pendingKey("alerts"))
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	other := payload
	other.ProductID = uuid.NewString()
	require.NoError(t, c.EnqueueLowStockAlert(ctx, other))

	pending, err = mr.List(pendingKey("alerts"))
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestEnqueueLedgerReconcileUsesDefaultQueue(t *testing.T) {
	c, mr := newTestClient(t, "")
	require.NoError(t, c.EnqueueLedgerReconcile(context.Background()))

	pending, err := mr.List(pendingKey("default"))
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	assert.NoError(t, c.EnqueueLowStockAlert(context.Background(), LowStockAlertPayload{}))
	assert.NoError(t, c.EnqueueLedgerReconcile(context.Background()))
	assert.NoError(t, c.Close())
}

func TestLowStockAlertPayloadRoundTrip(t *testing.T) {
	in := LowStockAlertPayload{ProductID: uuid.NewString(), ProductName: "Desk lamp", Stock: 1, Threshold: 5}
	task, err := NewLowStockAlertTask(in)
	require.NoError(t, err)
	assert.Equal(t, TaskLowStockAlert, task.Type())

	out, err := ParseLowStockAlertPayload(task)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = ParseLowStockAlertPayload(asynq.NewTask(TaskLowStockAlert, []byte("{")))
	assert.Error(t, err)
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@cache:6380/2", false)
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)
	assert.Nil(t, opt.TLSConfig)

	opt, err = redisClientOpt("rediss://cache:6380", true)
	require.NoError(t, err)
	require.NotNil(t, opt.TLSConfig)
	assert.True(t, opt.TLSConfig.InsecureSkipVerify)

	_, err = redisClientOpt("://nope", false)
	assert.Error(t, err)
}

type sentAlert struct {
	to    string
	alert email.LowStockAlert
}

type fakeSender struct {
	mu      sync.Mutex
	alerts  []sentAlert
	reports [][]email.DriftedProduct
}

func (f *fakeSender) SendLowStockAlert(_ context.Context, to string, alert email.LowStockAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, sentAlert{to, alert})
	return nil
}

func (f *fakeSender) SendLedgerDriftReport(_ context.Context, _ string, drifted []email.DriftedProduct) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, drifted)
	return nil
}

type fakeReconciler struct {
	drifted []invtransport.ReconcileResponse
	err     error
}

func (f fakeReconciler) ReconcileAll(context.Context) ([]invtransport.ReconcileResponse, error) {
	return f.drifted, f.err
}

func TestHandleLowStockAlert(t *testing.T) {
	sender := &fakeSender{}
	w := &Worker{sender: sender, alertTo: "ops@example.com", log: testLogger()}
	payload := LowStockAlertPayload{ProductID: uuid.NewString(), ProductName: "Desk lamp", Stock: 2, Threshold: 3}
	task, err := NewLowStockAlertTask(payload)
	require.NoError(t, err)

	require.NoError(t, w.handleLowStockAlert(context.Background(), task))
	require.Len(t, sender.alerts, 1)
	assert.Equal(t, "ops@example.com", sender.alerts[0].to)
	assert.Equal(t, "Desk lamp", sender.alerts[0].alert.ProductName)

	err = w.handleLowStockAlert(context.Background(), asynq.NewTask(TaskLowStockAlert, []byte("not json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	w.alertTo = ""
	require.NoError(t, w.handleLowStockAlert(context.Background(), task))
	assert.Len(t, sender.alerts, 1)
}

func TestHandleLedgerReconcile(t *testing.T) {
	productID := uuid.New()
	sender := &fakeSender{}
	w := &Worker{
		reconciler: fakeReconciler{drifted: []invtransport.ReconcileResponse{
			{ProductID: productID, StoredStock: 9, ReplayedStock: 3},
		}},
		sender:  sender,
		alertTo: "ops@example.com",
		log:     testLogger(),
	}

	require.NoError(t, w.handleLedgerReconcile(context.Background(), NewLedgerReconcileTask()))
	require.Len(t, sender.reports, 1)
	assert.Equal(t, []email.DriftedProduct{{ProductID: productID.String(), StoredStock: 9, ReplayedStock: 3}}, sender.reports[0])

	w.reconciler = fakeReconciler{}
	require.NoError(t, w.handleLedgerReconcile(context.Background(), NewLedgerReconcileTask()))
	assert.Len(t, sender.reports, 1)

	boom := errors.New("database unavailable")
	w.reconciler = fakeReconciler{err: boom}
	assert.ErrorIs(t, w.handleLedgerReconcile(context.Background(), NewLedgerReconcileTask()), boom)
}

type recordingEnqueuer struct {
	mu       sync.Mutex
	payloads []LowStockAlertPayload
}

func (r *recordingEnqueuer) EnqueueLowStockAlert(_ context.Context, p LowStockAlertPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return nil
}

func TestSubscribeLowStockAlerts(t *testing.T) {
	bus := events.NewInMemoryBus(testLogger())
	enqueuer := &recordingEnqueuer{}
	SubscribeLowStockAlerts(bus, enqueuer, testLogger())

	productID := uuid.New()
	require.NoError(t, bus.PublishSync(context.Background(), events.LowStockReached{
		BaseEvent:   events.NewBaseEvent(),
		ProductID:   productID,
		ProductName: "Desk lamp",
		Stock:       1,
		Threshold:   2,
	}))

	require.Len(t, enqueuer.payloads, 1)
	assert.Equal(t, LowStockAlertPayload{
		ProductID:   productID.String(),
		ProductName: "Desk lamp",
		Stock:       1,
		Threshold:   2,
	}, enqueuer.payloads[0])
}

func TestCronRegistersReconcileSweep(t *testing.T) {
	mr := miniredis.RunT(t)
	c := newCron(asynq.RedisClientOpt{Addr: mr.Addr()}, "", "", testLogger())
	assert.Equal(t, defaultReconcileCron, c.spec)
	assert.Equal(t, "default", c.queue)

	id, err := c.Register()
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	bad := newCron(asynq.RedisClientOpt{Addr: mr.Addr()}, "every now and then", "", testLogger())
	_, err = bad.Register()
	assert.Error(t, err)
}
