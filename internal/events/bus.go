package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultFlushDelay is how long a batch waits before auto-flushing.
const DefaultFlushDelay = 50 * time.Millisecond

// DefaultMaxBatchSize is the queue length that triggers an immediate
// batch flush.
const DefaultMaxBatchSize = 10

// Handler processes a single event. A handler error (or panic) is caught
// and logged; it never prevents sibling handlers from running.
type Handler func(ctx context.Context, event Event) error

// BusOptions configures a Bus.
type BusOptions struct {
	// FlushDelay is the batching delay. Defaults to DefaultFlushDelay.
	FlushDelay time.Duration

	// MaxBatchSize flushes the batch early once reached. Defaults to
	// DefaultMaxBatchSize.
	MaxBatchSize int

	// Immediate disables batching entirely: every Publish dispatches
	// synchronously. Injected explicitly (typically in tests) instead of
	// sniffing the environment.
	Immediate bool

	// Logger is the structured logger. May be nil.
	Logger *slog.Logger
}

// Bus is an in-process publish/subscribe bus keyed by string event names.
// Events are queued into a shared batch that auto-flushes after FlushDelay
// or once MaxBatchSize is reached, whichever comes first. All handlers
// across all events in a batch are launched together and joined with a
// wait-for-all; ordering between different event names inside one batch is
// not guaranteed. Callers needing strict ordering use PublishImmediate.
type Bus struct {
	mu       sync.Mutex
	logger   *slog.Logger
	handlers map[string]map[uint64]Handler
	nextID   uint64

	queue      []Event
	timer      *time.Timer
	flushDelay time.Duration
	maxBatch   int
	immediate  bool
}

// NewBus creates a Bus. A zero BusOptions gives batched delivery with the
// default delay and batch size.
func NewBus(opts BusOptions) *Bus {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.FlushDelay
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	maxBatch := opts.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}

	return &Bus{
		logger:     logger.With(slog.String("component", "event_bus")),
		handlers:   make(map[string]map[uint64]Handler),
		flushDelay: delay,
		maxBatch:   maxBatch,
		immediate:  opts.Immediate,
	}
}

// Subscription deregisters a handler when unsubscribed.
type Subscription struct {
	bus  *Bus
	name string
	id   uint64
	once sync.Once
}

// Unsubscribe removes the handler. When the last handler for an event name
// unsubscribes, the event's registration entry is removed entirely.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()

		if hs, ok := s.bus.handlers[s.name]; ok {
			delete(hs, s.id)
			if len(hs) == 0 {
				delete(s.bus.handlers, s.name)
			}
		}
	})
}

// Subscribe registers a handler for an event name.
func (b *Bus) Subscribe(name string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.handlers[name] == nil {
		b.handlers[name] = make(map[uint64]Handler)
	}
	b.handlers[name][id] = handler

	b.logger.Debug("handler subscribed",
		slog.String("event", name),
		slog.Int("handler_count", len(b.handlers[name])))

	return &Subscription{bus: b, name: name, id: id}
}

// Publish queues an event into the shared batch. The batch flushes after
// FlushDelay or immediately once MaxBatchSize events are queued. On a bus
// constructed with Immediate, Publish behaves like PublishImmediate with
// the error discarded (it is still logged).
func (b *Bus) Publish(ctx context.Context, name string, payload any) {
	if b.immediate {
		_ = b.PublishImmediate(ctx, name, payload)
		return
	}

	b.mu.Lock()
	b.queue = append(b.queue, Event{Name: name, Payload: payload, PublishedAt: time.Now().UTC()})

	if len(b.queue) >= b.maxBatch {
		batch := b.takeBatchLocked()
		b.mu.Unlock()
		b.dispatch(ctx, batch)
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushDelay, func() {
			b.mu.Lock()
			b.timer = nil
			batch := b.takeBatchLocked()
			b.mu.Unlock()
			b.dispatch(context.Background(), batch)
		})
	}
	b.mu.Unlock()
}

// PublishImmediate bypasses batching and dispatches the event now,
// returning after every handler has settled. The first handler error is
// returned; the rest are logged.
func (b *Bus) PublishImmediate(ctx context.Context, name string, payload any) error {
	event := Event{Name: name, Payload: payload, PublishedAt: time.Now().UTC()}
	errs := b.dispatch(ctx, []Event{event})
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Flush dispatches any queued batch now, cancelling the pending timer.
func (b *Bus) Flush(ctx context.Context) {
	b.mu.Lock()
	batch := b.takeBatchLocked()
	b.mu.Unlock()

	b.dispatch(ctx, batch)
}

// takeBatchLocked drains the queue and stops the flush timer.
// Callers must hold b.mu.
func (b *Bus) takeBatchLocked() []Event {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	batch := b.queue
	b.queue = nil
	return batch
}

// dispatch launches all handlers for all events in the batch concurrently
// and waits for every one to settle. Handler errors and panics are logged
// and collected; they never stop sibling handlers.
func (b *Bus) dispatch(ctx context.Context, batch []Event) []error {
	if len(batch) == 0 {
		return nil
	}

	type invocation struct {
		event   Event
		handler Handler
	}

	b.mu.Lock()
	var invocations []invocation
	for _, event := range batch {
		for _, h := range b.handlers[event.Name] {
			invocations = append(invocations, invocation{event: event, handler: h})
		}
	}
	b.mu.Unlock()

	if len(invocations) == 0 {
		b.logger.Debug("no handlers registered for batch",
			slog.Int("event_count", len(batch)))
		return nil
	}

	var (
		wg     sync.WaitGroup
		errsMu sync.Mutex
		errs   []error
	)

	for _, inv := range invocations {
		wg.Add(1)
		go func(inv invocation) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					err := fmt.Errorf("handler panicked: %v", r)
					b.logger.Error("event handler panicked",
						slog.String("event", inv.event.Name),
						slog.Any("panic", r))
					errsMu.Lock()
					errs = append(errs, err)
					errsMu.Unlock()
				}
			}()

			if err := inv.handler(ctx, inv.event); err != nil {
				b.logger.Error("event handler failed",
					slog.String("event", inv.event.Name),
					slog.String("error", err.Error()))
				errsMu.Lock()
				errs = append(errs, err)
				errsMu.Unlock()
			}
		}(inv)
	}

	wg.Wait()
	return errs
}

// SubscriberCount reports the number of handlers registered for an event.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[name])
}

// RegisteredEvents lists event names that currently have at least one
// subscriber, sorted for stable output.
func (b *Bus) RegisteredEvents() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PendingCount reports how many events are queued in the current batch.
func (b *Bus) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Clear drops all subscriptions and queued events and cancels any pending
// flush timer.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.handlers = make(map[string]map[uint64]Handler)
	b.queue = nil
}
