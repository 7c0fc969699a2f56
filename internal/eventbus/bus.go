// Package eventbus provides the broadcast channel decoupling state-change
// producers from observers (UI bindings, refresh scheduler, analytics).
package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/favorize-app/multi-auth-sub004/internal/domain/event"
	"github.com/favorize-app/multi-auth-sub004/pkg/logger"
)

const defaultBufferSize = 64

// Envelope pairs an event with its metadata as delivered to subscribers.
type Envelope struct {
	Event    event.Event
	Metadata event.Metadata
}

// Handler consumes envelopes on a dedicated goroutine.
type Handler func(Envelope)

// Bus is a broadcast bus: every subscriber observes every event dispatched
// after its subscription. Late subscribers miss prior events; there is no
// replay. Construct with New and pass by reference; the bus is not a
// singleton.
type Bus struct {
	mu      sync.Mutex
	subs    map[uint64]*Subscription
	nextID  uint64
	closed  bool
	dropped atomic.Uint64
	log     logger.Logger
}

// New creates a bus. A nil logger falls back to the package default.
func New(log logger.Logger) *Bus {
	if log == nil {
		log = logger.Default()
	}
	return &Bus{
		subs: make(map[uint64]*Subscription),
		log:  log,
	}
}

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	id     uint64
	bus    *Bus
	ch     chan Envelope
	filter func(event.Event) bool
	once   sync.Once
}

// Events returns the subscriber's delivery channel. The channel is closed
// when the subscription or the bus is closed.
func (s *Subscription) Events() <-chan Envelope {
	return s.ch
}

// Close removes the subscription from the bus.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

// Option configures a subscription.
type Option func(*Subscription)

// WithFamily restricts delivery to the given variant families. Filtering is
// per-subscriber and does not alter the ordering seen by others.
func WithFamily(families ...event.Family) Option {
	set := make(map[event.Family]struct{}, len(families))
	for _, f := range families {
		set[f] = struct{}{}
	}
	return func(s *Subscription) {
		s.filter = func(e event.Event) bool {
			_, ok := set[e.Family()]
			return ok
		}
	}
}

// WithKinds restricts delivery to the given event kinds.
func WithKinds(kinds ...event.Kind) Option {
	set := make(map[event.Kind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return func(s *Subscription) {
		s.filter = func(e event.Event) bool {
			_, ok := set[e.Kind()]
			return ok
		}
	}
}

// WithBuffer overrides the per-subscriber buffer size.
func WithBuffer(n int) Option {
	return func(s *Subscription) {
		if n > 0 {
			s.ch = make(chan Envelope, n)
		}
	}
}

// Subscribe registers a new subscriber and returns its subscription.
func (b *Bus) Subscribe(opts ...Option) *Subscription {
	sub := &Subscription{
		bus: b,
		ch:  make(chan Envelope, defaultBufferSize),
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	return sub
}

// SubscribeFunc registers a handler running on its own goroutine. A panic in
// the handler is recovered and logged; delivery to other subscribers and to
// the handler's own later events is unaffected.
func (b *Bus) SubscribeFunc(handler Handler, opts ...Option) *Subscription {
	sub := b.Subscribe(opts...)
	go func() {
		for env := range sub.ch {
			b.invoke(handler, env)
		}
	}()
	return sub
}

func (b *Bus) invoke(handler Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event subscriber panicked",
				logger.Component("eventbus"),
				logger.String("event_kind", string(env.Event.Kind())),
				logger.Any("panic", r),
			)
		}
	}()
	handler(env)
}

// Dispatch fans the event out to all current subscribers. The single lock
// around the fan-out keeps delivery FIFO per producer. A subscriber whose
// buffer is full loses the event (counted in Dropped); producers are never
// blocked.
func (b *Bus) Dispatch(e event.Event, meta event.Metadata) {
	env := Envelope{Event: e, Metadata: meta}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if sub.filter != nil && !sub.filter(e) {
			continue
		}
		select {
		case sub.ch <- env:
		default:
			b.dropped.Add(1)
			b.log.Warn("event dropped: subscriber buffer full",
				logger.Component("eventbus"),
				logger.String("event_kind", string(e.Kind())),
			)
		}
	}
}

// Dropped returns the total number of events dropped due to saturated
// subscriber buffers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close shuts the bus down and closes all subscriber channels. Dispatch
// after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.once.Do(func() { close(sub.ch) })
		delete(b.subs, id)
	}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		sub.once.Do(func() { close(sub.ch) })
	}
}
