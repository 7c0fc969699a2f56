package eventbus

import "sync"

// Broadcaster fans a single writer's state values out to many observers.
// It backs the reactive session-state and operation-state streams. Same
// delivery contract as Bus: bounded buffers, slow observers lose updates,
// the writer never blocks.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	last   T
	primed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[uint64]chan T)}
}

// Subscribe returns a channel of state values and a cancel func. The
// current value, if any, is delivered immediately so observers can render
// without waiting for the next transition.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, defaultBufferSize)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = ch
	if b.primed {
		ch <- b.last
	}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the value to every observer and records it for late
// subscribers.
func (b *Broadcaster[T]) Publish(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = value
	b.primed = true
	for _, ch := range b.subs {
		select {
		case ch <- value:
		default:
		}
	}
}

// Last returns the most recent value and whether one has been published.
func (b *Broadcaster[T]) Last() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.primed
}
