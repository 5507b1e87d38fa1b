package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	order "github.com/hoangvu1420/YummyZoom-sub001/internal/order/domain"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/realtime"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage/sqlite"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/config"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/contracts"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/kafka"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/money"
	"github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu      sync.Mutex
	calls   []string
	targets []realtime.Target
	last    contracts.OrderStatusBroadcast
	err     error
	// failOn makes only broadcasts with this status fail with err.
	failOn string
}

func (f *fakeNotifier) record(kind string, b contracts.OrderStatusBroadcast, target realtime.Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil && (f.failOn == "" || f.failOn == b.Status) {
		return f.err
	}
	f.calls = append(f.calls, kind+":"+b.Status)
	f.targets = append(f.targets, target)
	f.last = b
	return nil
}

func (f *fakeNotifier) NotifyOrderPlaced(_ context.Context, b contracts.OrderStatusBroadcast) error {
	return f.record("placed", b, realtime.TargetBoth)
}

func (f *fakeNotifier) NotifyOrderAccepted(_ context.Context, b contracts.OrderStatusBroadcast) error {
	return f.record("accepted", b, realtime.TargetBoth)
}

func (f *fakeNotifier) NotifyOrderStatusChanged(_ context.Context, b contracts.OrderStatusBroadcast, target realtime.Target) error {
	return f.record("changed", b, target)
}

type captureWriter struct {
	mu   sync.Mutex
	msgs []kafkago.Message
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error { return nil }

type fixture struct {
	store    *sqlite.Store
	notifier *fakeNotifier
	writer   *captureWriter
	revenue  *RevenueRecorder
	status   *StatusBroadcaster
	relay    *EventRelay
	disp     *outbox.Dispatcher
}

func setup(t *testing.T) *fixture {
	t.Helper()
	s, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	f := &fixture{store: s, notifier: &fakeNotifier{}, writer: &captureWriter{}}
	f.revenue = NewRevenueRecorder(s, nil)
	f.status = NewStatusBroadcaster(s, f.notifier, nil)
	f.relay = NewEventRelay(s, f.writer, nil)
	f.disp = outbox.NewDispatcher(s)
	Register(f.disp, f.revenue, f.status, f.relay)
	return f
}

// deliveredOrder saves an order through its whole happy path, one save per
// transition, the way the use cases do.
func deliveredOrder(t *testing.T, s storage.Storage) *order.Order {
	t.Helper()
	ctx := context.Background()
	it, err := order.NewOrderItem("soups", "pho", "Pho bo", money.FromInt(50000, "VND"), 2)
	require.NoError(t, err)
	o, err := order.CreateMinimal(order.MinimalParams{
		CustomerID:   "cust-1",
		RestaurantID: "rest-1",
		Items:        []order.OrderItem{it},
		DeliveryFee:  money.FromInt(15000, "VND"),
		PlacedAt:     now,
	})
	require.NoError(t, err)

	save := func() {
		require.NoError(t, s.SaveOrder(ctx, o))
		o.ClearDomainEvents()
	}
	save()
	require.NoError(t, o.Accept(now.Add(40*time.Minute), now.Add(time.Minute)))
	save()
	require.NoError(t, o.MarkAsPreparing(now.Add(2*time.Minute)))
	save()
	require.NoError(t, o.MarkAsReadyForDelivery(now.Add(3*time.Minute)))
	save()
	require.NoError(t, o.MarkAsDelivered(now.Add(4*time.Minute)))
	save()
	return o
}

func inboxCount(t *testing.T, s storage.Storage, handler string) int {
	t.Helper()
	rows, err := s.ListInbox(context.Background(), handler)
	require.NoError(t, err)
	return len(rows)
}

func TestDrainRunsAllHandlers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := deliveredOrder(t, f.store)

	res, err := f.disp.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Fetched)
	assert.Equal(t, 6, res.Processed)

	acct, err := f.store.GetRestaurantAccount(ctx, "rest-1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(o.TotalAmount()))

	assert.Equal(t, []string{
		"placed:PLACED",
		"accepted:ACCEPTED",
		"changed:PREPARING",
		"changed:READY_FOR_DELIVERY",
		"changed:DELIVERED",
	}, f.notifier.calls)
	require.NotNil(t, f.notifier.last.DeliveredAt)
	assert.Equal(t, now.Add(4*time.Minute), *f.notifier.last.DeliveredAt)

	require.Len(t, f.writer.msgs, 6)
	assert.Equal(t, contracts.EventOrderCreated, kafka.EventType(f.writer.msgs[0]))
	assert.Equal(t, string(o.ID()), string(f.writer.msgs[0].Key))

	assert.Equal(t, 1, inboxCount(t, f.store, f.revenue.Name()))
	assert.Equal(t, 5, inboxCount(t, f.store, f.status.Name()))
	assert.Equal(t, 6, inboxCount(t, f.store, f.relay.Name()))

	res, err = f.disp.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Fetched)
}

func TestRedeliveryIsNoop(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	deliveredOrder(t, f.store)

	pending, err := f.store.FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	var delivered outbox.Message
	for _, m := range pending {
		if m.Type == contracts.EventOrderDelivered {
			delivered = m
		}
	}
	require.NotEmpty(t, delivered.ID)

	for range 2 {
		require.NoError(t, f.revenue.Handle(ctx, delivered))
		require.NoError(t, f.status.Handle(ctx, delivered))
	}

	assert.Len(t, f.notifier.calls, 1)
	assert.Equal(t, 1, inboxCount(t, f.store, f.status.Name()))
	assert.Equal(t, 1, inboxCount(t, f.store, f.revenue.Name()))

	acct, err := f.store.GetRestaurantAccount(ctx, "rest-1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(money.FromInt(115000, "VND")))
}

func TestFailedEffectLeavesInboxUnclaimed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	deliveredOrder(t, f.store)

	f.notifier.err = errors.New("hub offline")
	res, err := f.disp.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, outbox.DrainResult{Fetched: 6, Processed: 1, Failed: 1, Deferred: 4}, res,
		"order.created has no broadcast; everything after the failed placed event waits")
	assert.Zero(t, inboxCount(t, f.store, f.status.Name()))
	assert.Zero(t, inboxCount(t, f.store, f.revenue.Name()))

	f.notifier.failOn = string(order.StatusDelivered)
	res, err = f.disp.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, outbox.DrainResult{Fetched: 5, Processed: 4, Failed: 1}, res)
	assert.Equal(t, 4, inboxCount(t, f.store, f.status.Name()))
	assert.Equal(t, 1, inboxCount(t, f.store, f.revenue.Name()), "revenue committed before the broadcast failed")

	f.notifier.err = nil
	res, err = f.disp.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Len(t, f.notifier.calls, 5)
	assert.Equal(t, "changed:DELIVERED", f.notifier.calls[4])

	acct, err := f.store.GetRestaurantAccount(ctx, "rest-1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(money.FromInt(115000, "VND")), "revenue credited once across retries")
}

// TestConcurrentDrains runs several dispatchers over one store at once, the
// way multiple relay replicas would.
func TestConcurrentDrains(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := deliveredOrder(t, f.store)

	const workers = 4
	dispatchers := []*outbox.Dispatcher{f.disp}
	for range workers - 1 {
		d := outbox.NewDispatcher(f.store)
		Register(d, f.revenue, f.status, f.relay)
		dispatchers = append(dispatchers, d)
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for _, d := range dispatchers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 2 {
				if _, err := d.Drain(ctx); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	pending, err := f.store.FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Len(t, f.notifier.calls, 5, "one broadcast per transition")
	assert.Len(t, f.writer.msgs, 6, "one relay write per event")
	assert.Equal(t, 1, inboxCount(t, f.store, f.revenue.Name()))
	assert.Equal(t, 5, inboxCount(t, f.store, f.status.Name()))
	assert.Equal(t, 6, inboxCount(t, f.store, f.relay.Name()))

	acct, err := f.store.GetRestaurantAccount(ctx, "rest-1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(o.TotalAmount()), "revenue credited once")
}

func TestBroadcastTargets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	evt := order.OrderRejected{
		Meta:   order.Meta{EventID: "evt-9", OrderID: "ord-9", RestaurantID: "rest-1", CustomerID: "cust-1", OccurredAt: now},
		Reason: "kitchen closed",
	}
	msg, err := outbox.NewMessage(evt.EventID, evt.EventType(), "ord-9", now, evt)
	require.NoError(t, err)

	require.NoError(t, f.status.Handle(ctx, msg))
	assert.Equal(t, []string{"changed:REJECTED"}, f.notifier.calls)
	assert.Equal(t, []realtime.Target{realtime.TargetCustomer}, f.notifier.targets)
	assert.Equal(t, "kitchen closed", f.notifier.last.Reason)
	assert.Equal(t, "evt-9", f.notifier.last.EventID)
}

func TestNewDispatcherFromConfig(t *testing.T) {
	s, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := config.Defaults("outbox-relay")
	d, closeFn, err := NewDispatcher(cfg, s, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })

	assert.Len(t, d.Handlers(contracts.EventOrderDelivered), 2)
	assert.Len(t, d.Handlers(contracts.EventOrderPlaced), 1)
	assert.Empty(t, d.Handlers(contracts.EventOrderCreated))

	cfg.Outbox.Relay = true
	_, _, err = NewDispatcher(cfg, s, nil, prometheus.NewRegistry())
	assert.ErrorIs(t, err, kafka.ErrDisabled)
}
