package channel

import "sync"

// Binding is the stateful-adapter contract around a Channel: it keeps a
// local copy of the value, updates it from cross-context changes, and
// forwards writes. The shape a UI or component layer consumes — on mount
// call Bind, on unmount call Close. Binding and closing in rapid
// succession never leaks transport resources.
type Binding struct {
	ch *Channel

	mu       sync.RWMutex
	val      any
	onChange func(value any)

	cb        Callback
	closeOnce sync.Once
}

// Bind constructs a channel for key, seeds the local copy with initial,
// and subscribes the binding to it.
func Bind(key string, initial any, options ...Option) *Binding {
	b := &Binding{val: initial}
	b.cb = func(v any) {
		b.mu.Lock()
		b.val = v
		fn := b.onChange
		b.mu.Unlock()
		if fn != nil {
			fn(v)
		}
	}
	b.ch = New(key, options...)
	b.ch.Subscribe(b.cb)
	return b
}

// Get returns the current local copy.
func (b *Binding) Get() any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.val
}

// Set updates the local copy immediately, then forwards to the channel.
func (b *Binding) Set(v any) {
	b.mu.Lock()
	b.val = v
	b.mu.Unlock()
	b.ch.Set(v)
}

// OnChange installs a hook invoked after every accepted change, including
// the local echo of this binding's own Set.
func (b *Binding) OnChange(fn func(value any)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Channel exposes the underlying channel (for Load, Transport, etc).
func (b *Binding) Channel() *Channel { return b.ch }

// Close unsubscribes and destroys the underlying channel. Idempotent.
func (b *Binding) Close() {
	b.closeOnce.Do(func() {
		b.ch.Unsubscribe(b.cb)
		b.ch.Destroy()
	})
}
