package outbox

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/metrics"
)

type memStore struct {
	mu       sync.Mutex
	msgs     map[string]*Message
	fetchErr error
	markErr  error
}

func newMemStore(msgs ...Message) *memStore {
	s := &memStore{msgs: make(map[string]*Message)}
	for i := range msgs {
		m := msgs[i]
		s.msgs[m.ID] = &m
	}
	return s
}

func (s *memStore) FetchPendingOutbox(_ context.Context, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []Message
	for _, m := range s.msgs {
		if m.ProcessedAt == nil {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) MarkOutboxProcessed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.msgs[id].ProcessedAt = &at
	s.msgs[id].Error = ""
	return nil
}

func (s *memStore) MarkOutboxFailed(_ context.Context, id string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.msgs[id].Error = reason
	s.msgs[id].Attempts++
	return nil
}

func (s *memStore) get(id string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.msgs[id]
}

type recorder struct {
	name string
	fail error
	mu   sync.Mutex
	seen []string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Handle(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, m.ID)
	return r.fail
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(t *testing.T, id, typ, key string, offset time.Duration) Message {
	t.Helper()
	m, err := NewMessage(id, typ, key, t0.Add(offset), map[string]string{"id": id})
	require.NoError(t, err)
	return m
}

func TestDrainMarksProcessed(t *testing.T) {
	store := newMemStore(msg(t, "e1", "order.placed", "o1", 0), msg(t, "e2", "order.accepted", "o1", time.Second))
	h := &recorder{name: "broadcast"}
	d := NewDispatcher(store, WithClock(func() time.Time { return t0.Add(time.Hour) }))
	d.Register(h, "order.placed", "order.accepted")

	res, err := d.Drain(context.Background())

	require.NoError(t, err)
	assert.Equal(t, DrainResult{Fetched: 2, Processed: 2}, res)
	assert.Equal(t, []string{"e1", "e2"}, h.calls())
	require.NotNil(t, store.get("e1").ProcessedAt)
	assert.Equal(t, t0.Add(time.Hour), *store.get("e1").ProcessedAt)
}

func TestDrainTwiceDispatchesOnce(t *testing.T) {
	store := newMemStore(msg(t, "e1", "order.placed", "o1", 0))
	h := &recorder{name: "broadcast"}
	d := NewDispatcher(store)
	d.Register(h, "order.placed")

	_, err := d.Drain(context.Background())
	require.NoError(t, err)
	res, err := d.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Fetched)
	assert.Len(t, h.calls(), 1)
}

func TestHandlerFailureLeavesMessagePending(t *testing.T) {
	store := newMemStore(msg(t, "e1", "order.delivered", "o1", 0), msg(t, "e2", "order.placed", "o2", 0))
	ok := &recorder{name: "ok"}
	bad := &recorder{name: "revenue", fail: errors.New("ledger down")}
	d := NewDispatcher(store)
	d.Register(ok, "order.delivered", "order.placed")
	d.Register(bad, "order.delivered")

	res, err := d.Drain(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)
	failed := store.get("e1")
	assert.Nil(t, failed.ProcessedAt)
	assert.Equal(t, 1, failed.Attempts)
	assert.Contains(t, failed.Error, "revenue: ledger down")
	assert.NotNil(t, store.get("e2").ProcessedAt)

	bad.fail = nil
	res, err = d.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Empty(t, store.get("e1").Error)
	assert.Len(t, bad.calls(), 2)
}

func TestMessageWithoutHandlersIsProcessed(t *testing.T) {
	store := newMemStore(msg(t, "e1", "order.preparing", "o1", 0))
	d := NewDispatcher(store)

	res, err := d.Drain(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
}

func TestStoreErrorsPropagate(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		store := newMemStore()
		store.fetchErr = errors.New("db gone")
		_, err := NewDispatcher(store).Drain(context.Background())
		assert.ErrorIs(t, err, store.fetchErr)
	})
	t.Run("mark", func(t *testing.T) {
		store := newMemStore(msg(t, "e1", "order.placed", "o1", 0))
		store.markErr = errors.New("db gone")
		_, err := NewDispatcher(store).Drain(context.Background())
		assert.ErrorIs(t, err, store.markErr)
		assert.Nil(t, store.get("e1").ProcessedAt)
	})
}

func TestOrderPreservedWithinKey(t *testing.T) {
	var msgs []Message
	for i, id := range []string{"a1", "b1", "a2", "b2", "a3"} {
		msgs = append(msgs, msg(t, id, "order.placed", id[:1], time.Duration(i)*time.Second))
	}
	store := newMemStore(msgs...)
	h := &recorder{name: "h"}
	d := NewDispatcher(store, WithConcurrency(2))
	d.Register(h, "order.placed")

	_, err := d.Drain(context.Background())
	require.NoError(t, err)

	var a []string
	for _, id := range h.calls() {
		if id[0] == 'a' {
			a = append(a, id)
		}
	}
	assert.Equal(t, []string{"a1", "a2", "a3"}, a)
}

// flaky fails the listed message ids once each.
type flaky struct {
	recorder
	failOnce map[string]bool
}

func (f *flaky) Handle(ctx context.Context, m Message) error {
	f.mu.Lock()
	fail := f.failOnce[m.ID]
	delete(f.failOnce, m.ID)
	f.mu.Unlock()
	if fail {
		return errors.New("transient")
	}
	return f.recorder.Handle(ctx, m)
}

func TestFailureHoldsBackLaterMessagesForKey(t *testing.T) {
	store := newMemStore(
		msg(t, "a1", "order.accepted", "a", 0),
		msg(t, "b1", "order.accepted", "b", time.Second),
		msg(t, "a2", "order.delivered", "a", 2*time.Second),
		msg(t, "a3", "order.paid", "a", 3*time.Second),
	)
	h := &flaky{recorder: recorder{name: "broadcast"}, failOnce: map[string]bool{"a1": true}}
	d := NewDispatcher(store, WithConcurrency(2))
	d.Register(h, "order.accepted", "order.delivered", "order.paid")

	res, err := d.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Fetched: 4, Processed: 1, Failed: 1, Deferred: 2}, res)
	assert.Equal(t, []string{"b1"}, h.calls())
	assert.Nil(t, store.get("a2").ProcessedAt)
	assert.Zero(t, store.get("a2").Attempts)

	res, err = d.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Fetched: 3, Processed: 3}, res)
	assert.Equal(t, []string{"b1", "a1", "a2", "a3"}, h.calls())
}

func TestDrainRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewOutboxMetrics(reg, "test")
	store := newMemStore(msg(t, "e1", "order.placed", "o1", 0), msg(t, "e2", "order.placed", "o2", 0))
	d := NewDispatcher(store, WithMetrics(m), WithBatchSize(1))
	d.Register(&recorder{name: "h"}, "order.placed")

	res, err := d.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Processed.WithLabelValues("order.placed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LastBatch))
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newMemStore(msg(t, "e1", "order.placed", "o1", 0))
	h := &recorder{name: "h"}
	d := NewDispatcher(store)
	d.Register(h, "order.placed")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return len(h.calls()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
