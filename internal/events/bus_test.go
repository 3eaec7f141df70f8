package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHandler counts invocations and remembers the last event.
type recordingHandler struct {
	mu    sync.Mutex
	count int
	last  Event
	err   error
}

func (h *recordingHandler) handle(ctx context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.last = event
	return h.err
}

func (h *recordingHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func TestBusPublishImmediate(t *testing.T) {
	ctx := context.Background()

	t.Run("no handlers is not an error", func(t *testing.T) {
		bus := NewBus(BusOptions{Logger: testLogger()})
		assert.NoError(t, bus.PublishImmediate(ctx, TaskCreated, nil))
	})

	t.Run("all handlers receive the event", func(t *testing.T) {
		bus := NewBus(BusOptions{Logger: testLogger()})
		h1 := &recordingHandler{}
		h2 := &recordingHandler{}
		bus.Subscribe(TaskCreated, h1.handle)
		bus.Subscribe(TaskCreated, h2.handle)

		require.NoError(t, bus.PublishImmediate(ctx, TaskCreated, "payload"))
		assert.Equal(t, 1, h1.calls())
		assert.Equal(t, 1, h2.calls())
		assert.Equal(t, "payload", h1.last.Payload)
	})

	t.Run("handler error does not stop siblings", func(t *testing.T) {
		bus := NewBus(BusOptions{Logger: testLogger()})
		failing := &recordingHandler{err: errors.New("handler error")}
		healthy := &recordingHandler{}
		bus.Subscribe(TaskDeleted, failing.handle)
		bus.Subscribe(TaskDeleted, healthy.handle)

		err := bus.PublishImmediate(ctx, TaskDeleted, nil)
		assert.Error(t, err)
		assert.Equal(t, 1, healthy.calls())
	})

	t.Run("handler panic is contained", func(t *testing.T) {
		bus := NewBus(BusOptions{Logger: testLogger()})
		healthy := &recordingHandler{}
		bus.Subscribe(TaskUpdated, func(ctx context.Context, e Event) error {
			panic("boom")
		})
		bus.Subscribe(TaskUpdated, healthy.handle)

		err := bus.PublishImmediate(ctx, TaskUpdated, nil)
		assert.Error(t, err)
		assert.Equal(t, 1, healthy.calls())
	})
}

func TestBusBatching(t *testing.T) {
	ctx := context.Background()

	t.Run("batch flushes after the delay", func(t *testing.T) {
		bus := NewBus(BusOptions{FlushDelay: 20 * time.Millisecond, Logger: testLogger()})
		h := &recordingHandler{}
		bus.Subscribe(TaskCreated, h.handle)

		bus.Publish(ctx, TaskCreated, nil)
		bus.Publish(ctx, TaskCreated, nil)

		assert.Equal(t, 2, bus.PendingCount())
		assert.Equal(t, 0, h.calls(), "nothing dispatched inside the window")

		assert.Eventually(t, func() bool { return h.calls() == 2 },
			time.Second, 5*time.Millisecond)
		assert.Equal(t, 0, bus.PendingCount())
	})

	t.Run("batch flushes early at max size", func(t *testing.T) {
		bus := NewBus(BusOptions{
			FlushDelay:   time.Hour, // the timer alone would never fire
			MaxBatchSize: 3,
			Logger:       testLogger(),
		})
		h := &recordingHandler{}
		bus.Subscribe(TaskCreated, h.handle)

		bus.Publish(ctx, TaskCreated, nil)
		bus.Publish(ctx, TaskCreated, nil)
		assert.Equal(t, 0, h.calls())

		bus.Publish(ctx, TaskCreated, nil)
		assert.Equal(t, 3, h.calls(), "reaching max size dispatches synchronously")
	})

	t.Run("flush forces pending events", func(t *testing.T) {
		bus := NewBus(BusOptions{FlushDelay: time.Hour, Logger: testLogger()})
		h := &recordingHandler{}
		bus.Subscribe(TasksCleared, h.handle)

		bus.Publish(ctx, TasksCleared, nil)
		require.Equal(t, 1, bus.PendingCount())

		bus.Flush(ctx)
		assert.Equal(t, 1, h.calls())
		assert.Equal(t, 0, bus.PendingCount())
	})

	t.Run("handlers across a batch run concurrently and all settle", func(t *testing.T) {
		bus := NewBus(BusOptions{FlushDelay: time.Hour, Logger: testLogger()})

		var running, peak atomic.Int32
		slowHandler := func(ctx context.Context, e Event) error {
			cur := running.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return nil
		}

		bus.Subscribe(TaskCreated, slowHandler)
		bus.Subscribe(TaskUpdated, slowHandler)

		bus.Publish(ctx, TaskCreated, nil)
		bus.Publish(ctx, TaskUpdated, nil)
		bus.Flush(ctx)

		assert.Equal(t, int32(0), running.Load(), "flush waits for all handlers")
		assert.Equal(t, int32(2), peak.Load(), "handlers overlapped")
	})
}

func TestBusImmediateMode(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(BusOptions{Immediate: true, Logger: testLogger()})
	h := &recordingHandler{}
	bus.Subscribe(TaskCreated, h.handle)

	bus.Publish(ctx, TaskCreated, nil)
	assert.Equal(t, 1, h.calls(), "immediate mode bypasses batching")
	assert.Equal(t, 0, bus.PendingCount())
}

func TestBusSubscriptions(t *testing.T) {
	ctx := context.Background()

	t.Run("unsubscribe removes the handler", func(t *testing.T) {
		bus := NewBus(BusOptions{Logger: testLogger()})
		h := &recordingHandler{}
		sub := bus.Subscribe(TaskCreated, h.handle)
		require.Equal(t, 1, bus.SubscriberCount(TaskCreated))

		sub.Unsubscribe()
		assert.Equal(t, 0, bus.SubscriberCount(TaskCreated))

		require.NoError(t, bus.PublishImmediate(ctx, TaskCreated, nil))
		assert.Equal(t, 0, h.calls())
	})

	t.Run("last unsubscribe removes the registration entry", func(t *testing.T) {
		bus := NewBus(BusOptions{Logger: testLogger()})
		s1 := bus.Subscribe(TaskCreated, (&recordingHandler{}).handle)
		s2 := bus.Subscribe(TaskCreated, (&recordingHandler{}).handle)
		bus.Subscribe(TaskDeleted, (&recordingHandler{}).handle)

		assert.Equal(t, []string{TaskCreated, TaskDeleted}, bus.RegisteredEvents())

		s1.Unsubscribe()
		assert.Equal(t, []string{TaskCreated, TaskDeleted}, bus.RegisteredEvents())

		s2.Unsubscribe()
		assert.Equal(t, []string{TaskDeleted}, bus.RegisteredEvents())
	})

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		bus := NewBus(BusOptions{Logger: testLogger()})
		sub := bus.Subscribe(TaskCreated, (&recordingHandler{}).handle)
		sub.Unsubscribe()
		sub.Unsubscribe()
		assert.Empty(t, bus.RegisteredEvents())
	})
}

func TestBusClear(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(BusOptions{FlushDelay: time.Hour, Logger: testLogger()})
	h := &recordingHandler{}
	bus.Subscribe(TaskCreated, h.handle)
	bus.Publish(ctx, TaskCreated, nil)

	bus.Clear()
	assert.Equal(t, 0, bus.PendingCount())
	assert.Empty(t, bus.RegisteredEvents())

	// The cancelled timer must not fire handlers later.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, h.calls())
}
