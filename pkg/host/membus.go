package host

import (
	"sync"
	"sync/atomic"
)

// NewMemBus returns an in-memory topic fanout bus.
//
// It intentionally does not own any background goroutines.
func NewMemBus() Broadcaster {
	return &memBus{subs: map[string]map[uint64]chan any{}}
}

var (
	defaultBusOnce sync.Once
	defaultBus     Broadcaster
)

// DefaultBus returns the process-global bus. Channels constructed without
// an explicit broadcaster or store share it, so instances within one
// process sync with zero configuration.
func DefaultBus() Broadcaster {
	defaultBusOnce.Do(func() { defaultBus = NewMemBus() })
	return defaultBus
}

type memBus struct {
	mu   sync.RWMutex
	subs map[string]map[uint64]chan any
	seq  atomic.Uint64
}

func (b *memBus) Publish(topic string, value any) {
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	chs := make([]chan any, 0, len(b.subs[topic]))
	for _, ch := range b.subs[topic] {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If subscriber is slow, we drop.
		// If a subscriber unsubscribes concurrently and the channel closes,
		// recover from a possible panic (send on closed channel).
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- value:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(topic string, buffer int) (<-chan any, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan any, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[uint64]chan any{}
	}
	b.subs[topic][id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
