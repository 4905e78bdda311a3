package event

import (
	"sync"
)

const defaultBuffer = 256

// Bus fans events out to subscribers. Publishers never block: when a
// subscriber's buffer is full, droppable events (progress snapshots) are
// discarded for that subscriber while lifecycle events evict the oldest
// buffered progress event to make room. A lifecycle event is only lost
// when a stalled subscriber's buffer holds nothing but lifecycle events,
// in which case the oldest of those gives way.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
	buffer int
}

// NewBus creates a bus with the default per-subscriber buffer.
func NewBus() *Bus {
	return NewBusWithBuffer(defaultBuffer)
}

// NewBusWithBuffer creates a bus with an explicit buffer size, for tests.
func NewBusWithBuffer(n int) *Bus {
	if n < 1 {
		n = 1
	}
	return &Bus{subs: make(map[int]chan Event), buffer: n}
}

// Subscribe registers a new consumer. The returned cancel function must be
// called when the consumer is done; it closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish delivers e to every subscriber. Callers serialize per download,
// so per-job ordering is preserved within each subscriber channel.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	droppable := e.Kind() == KindProgress
	for _, ch := range b.subs {
		select {
		case ch <- e:
			continue
		default:
		}
		if droppable {
			continue
		}
		// Make room by dropping the oldest buffered progress event; only
		// a buffer with no progress left gives up a lifecycle event.
		kept := make([]Event, 0, cap(ch))
		dropped := false
		for draining := true; draining; {
			select {
			case old := <-ch:
				if !dropped && old.Kind() == KindProgress {
					dropped = true
					continue
				}
				kept = append(kept, old)
			default:
				draining = false
			}
		}
		if !dropped && len(kept) > 0 {
			kept = kept[1:]
		}
		for _, old := range kept {
			select {
			case ch <- old:
			default:
			}
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
