// internal/eventbus/bus.go
package eventbus

import (
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"light-controller-service/internal/model"
)

// Handler receives events on the publisher's goroutine
type Handler func(event model.Event)

// Bus fans events out to subscribers. Publish is synchronous: handlers run on the
// caller's goroutine in subscription order, outside the bus lock, so a handler may
// subscribe or unsubscribe. A handler added during a publish misses that event.
type Bus struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
	nextID   uint64
	logger   *zap.Logger
}

// Subscription identifies one handler. A subscription that becomes unreachable
// without Unsubscribe is removed by the garbage collector; handlers that must
// outlive their caller keep the subscription.
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

// New creates an empty bus
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[uint64]Handler),
		logger:   logger.With(zap.String("component", "event-bus")),
	}
}

// Subscribe registers handler until the returned subscription is cancelled
func (b *Bus) Subscribe(handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[b.nextID] = handler
	sub := &Subscription{bus: b, id: b.nextID}
	runtime.AddCleanup(sub, b.remove, sub.id)
	return sub
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	delete(b.handlers, id)
	b.mu.Unlock()
}

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.bus.remove(s.id) })
}

// Len returns the number of subscribers
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Publish delivers a copy of event to every current subscriber
func (b *Bus) Publish(event model.Event) {
	b.mu.RLock()
	ids := make([]uint64, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	snapshot := make([]Handler, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		b.deliver(h, event)
	}
}

func (b *Bus) deliver(h Handler, event model.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("event_type", string(event.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	h(event)
}

// SubscribeChan returns a buffered channel fed by the bus. Events are dropped
// with a warning when the channel is full. The channel is closed by Unsubscribe
// on the returned subscription.
func (b *Bus) SubscribeChan(size int) (<-chan model.Event, *ChanSubscription) {
	if size <= 0 {
		size = 1
	}
	ch := make(chan model.Event, size)
	cs := &ChanSubscription{ch: ch}
	cs.sub = b.Subscribe(func(event model.Event) {
		cs.mu.RLock()
		defer cs.mu.RUnlock()
		if cs.closed {
			return
		}
		select {
		case ch <- event:
		default:
			b.logger.Warn("Subscriber channel full, dropping event",
				zap.String("event_type", string(event.Type)),
				zap.String("instance_id", event.InstanceID),
			)
		}
	})
	return ch, cs
}

// ChanSubscription is a channel-backed subscription
type ChanSubscription struct {
	sub    *Subscription
	ch     chan model.Event
	mu     sync.RWMutex
	closed bool
}

// Unsubscribe detaches from the bus and closes the channel
func (cs *ChanSubscription) Unsubscribe() {
	cs.sub.Unsubscribe()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if !cs.closed {
		cs.closed = true
		close(cs.ch)
	}
}
