package channel

import (
	"reflect"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tabsync/pkg/host"
	logx "tabsync/pkg/logx"
)

// Callback receives a synced value. Inbound (cross-context) callbacks may
// run on an internal goroutine; the local echo inside Set runs on the
// caller's goroutine.
type Callback func(value any)

const (
	// subscribeBuffer sizes the transport's inbound queue. Only the most
	// recent values matter, so a small buffer with drop-on-overflow is fine.
	subscribeBuffer = 16

	// selfWriteWindow bounds how long a Set suppresses inbound delivery
	// when no echo loops back. Consuming the echo clears the flag earlier;
	// the generation counter keeps an old timer from un-suppressing a
	// newer write.
	selfWriteWindow = 50 * time.Millisecond
)

// Channel mirrors one value, identified by a logical key, across
// execution contexts. Construct with New, tear down with Destroy.
type Channel struct {
	key        string
	storageKey string
	opts       Options
	log        logx.Logger
	transport  Transport

	bus   host.Broadcaster
	store host.Store

	mu        sync.Mutex
	subs      map[uint64]Callback
	order     []uint64
	ids       map[uintptr]uint64
	nextID    uint64
	last      any
	lastRaw   string
	selfWrite bool
	selfGen   uint64
	destroyed bool

	stop     chan struct{}
	teardown func()

	// Malformed payloads can arrive at polling frequency; keep the debug
	// log from turning into a firehose.
	badLim *rate.Limiter
}

// New constructs a channel for key and wires its transport. It never
// fails: an unavailable capability degrades to the next tier, and a
// channel whose store write path later breaks still delivers locally.
func New(key string, options ...Option) *Channel {
	var opts Options
	for _, o := range options {
		if o != nil {
			o(&opts)
		}
	}
	opts.normalize()

	log := opts.Logger
	if opts.Debug && log.IsZero() {
		log = logx.NewConsole("debug")
	}
	if !opts.Debug {
		log = logx.Nop()
	}

	c := &Channel{
		key:        key,
		storageKey: opts.Namespace + ":" + key,
		opts:       opts,
		log:        log.With(logx.String("key", opts.Namespace+":"+key)),
		subs:       map[uint64]Callback{},
		ids:        map[uintptr]uint64{},
		stop:       make(chan struct{}),
		badLim:     rate.NewLimiter(rate.Every(time.Second), 5),
	}

	bus := opts.Broadcaster
	if bus == nil && opts.Store == nil {
		bus = host.DefaultBus()
	}

	switch {
	case bus != nil:
		c.bus = bus
		c.transport = TransportBroadcast
		ch, unsub := bus.Subscribe(c.storageKey, subscribeBuffer)
		c.teardown = unsub
		go c.broadcastLoop(ch)

	case opts.Store != nil:
		c.store = opts.Store
		if opts.Store.ReliableWatch() {
			if ch, cancel, err := opts.Store.Watch(subscribeBuffer); err == nil {
				c.transport = TransportStorageEvent
				c.teardown = cancel
				go c.watchLoop(ch)
				break
			} else {
				c.log.Debug("store watch unavailable; polling instead", logx.Err(err))
			}
		}
		c.transport = TransportPolling
		go c.pollLoop()
	}

	c.log.Debug("channel created", logx.String("transport", c.transport.String()))
	return c
}

func (c *Channel) Key() string          { return c.key }
func (c *Channel) StorageKey() string   { return c.storageKey }
func (c *Channel) Transport() Transport { return c.transport }

// Value returns the last value this channel observed, from either
// direction (a local Set or an accepted inbound change).
func (c *Channel) Value() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Subscribe adds fn to the subscriber set. Duplicate adds are idempotent:
// subscribers are identified by function identity, so registering the
// same function value twice registers it once. Note that in Go two
// closures created from the same literal share an identity; use Listen
// when that would collapse registrations you need to keep distinct.
func (c *Channel) Subscribe(fn Callback) {
	if fn == nil {
		return
	}
	ptr := callbackID(fn)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	if _, ok := c.ids[ptr]; ok {
		return
	}
	c.nextID++
	c.ids[ptr] = c.nextID
	c.subs[c.nextID] = fn
	c.order = append(c.order, c.nextID)
}

// Unsubscribe removes fn. Unknown callbacks are ignored.
func (c *Channel) Unsubscribe(fn Callback) {
	if fn == nil {
		return
	}
	ptr := callbackID(fn)
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[ptr]
	if !ok {
		return
	}
	delete(c.ids, ptr)
	c.removeLocked(id)
}

// Listen adds fn under its own registration identity and returns a
// remover bound to exactly that registration. Unlike Subscribe it never
// dedupes, so closures created from the same literal stay distinct.
// The remover is idempotent.
func (c *Channel) Listen(fn Callback) (remove func()) {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return func() {}
	}
	c.nextID++
	id := c.nextID
	c.subs[id] = fn
	c.order = append(c.order, id)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		c.removeLocked(id)
		c.mu.Unlock()
	}
}

func (c *Channel) removeLocked(id uint64) {
	if _, ok := c.subs[id]; !ok {
		return
	}
	delete(c.subs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Set records value, propagates it to other contexts, and notifies local
// subscribers synchronously. No-op after Destroy. Never panics and never
// returns an error: a serialization or store failure costs the
// cross-context write, not the local delivery.
func (c *Channel) Set(value any) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.last = value
	c.selfWrite = true
	c.selfGen++
	gen := c.selfGen
	cbs := c.snapshotLocked()
	c.mu.Unlock()

	switch c.transport {
	case TransportBroadcast:
		c.bus.Publish(c.storageKey, value)

	case TransportStorageEvent, TransportPolling:
		raw, err := encodeMessage(value, time.Now())
		if err != nil {
			c.log.Debug("value not serializable; cross-context write skipped", logx.Err(err))
		} else {
			if c.opts.EnableEncryption {
				raw = obfuscate(raw, c.opts.EncryptionKey)
			}
			// Record what we wrote before writing, so the poller never
			// mistakes our own write for an external change.
			c.mu.Lock()
			c.lastRaw = raw
			c.mu.Unlock()
			if err := c.store.Set(c.storageKey, raw); err != nil {
				c.log.Debug("cross-context write failed; delivered locally only", logx.Err(err))
			}
		}
	}

	// The local call site always sees its own write immediately.
	for _, cb := range cbs {
		cb(value)
	}

	// Deferred clear: an echo arriving within the window is suppressed,
	// independent future writes are not falsely suppressed.
	time.AfterFunc(selfWriteWindow, func() {
		c.mu.Lock()
		if c.selfGen == gen {
			c.selfWrite = false
		}
		c.mu.Unlock()
	})
}

// Load reads the value currently held by the shared store for this
// channel's key, without notifying subscribers. On the broadcast
// transport (no store) it reports false.
func (c *Channel) Load() (any, bool) {
	if c.store == nil {
		return nil, false
	}
	raw, ok, err := c.store.Get(c.storageKey)
	if err != nil || !ok {
		return nil, false
	}
	v, ok := c.decodeStored(raw)
	return v, ok
}

// Destroy releases the transport, clears subscribers, and makes every
// later Set a no-op. Idempotent, and safe even if construction only
// partially completed. Do not call it from inside a subscriber callback.
func (c *Channel) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.subs = nil
	c.order = nil
	c.ids = nil
	td := c.teardown
	c.teardown = nil
	c.mu.Unlock()

	close(c.stop)
	if td != nil {
		td()
	}
	c.log.Debug("channel destroyed")
}

// ---- inbound ----

func (c *Channel) broadcastLoop(ch <-chan any) {
	for {
		select {
		case <-c.stop:
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			c.handleBroadcast(v)
		}
	}
}

func (c *Channel) handleBroadcast(v any) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	if c.selfWrite {
		// Our own echo looped back. Policy: prefer dropping a possible
		// true external echo over double-delivering our own write.
		c.selfWrite = false
		c.mu.Unlock()
		return
	}
	c.last = v
	cbs := c.snapshotLocked()
	c.mu.Unlock()

	for _, cb := range cbs {
		cb(v)
	}
}

func (c *Channel) watchLoop(ch <-chan host.Change) {
	for {
		select {
		case <-c.stop:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Key != c.storageKey || ev.Value == "" {
				continue
			}
			c.handleStored(ev.Value)
		}
	}
}

func (c *Channel) pollLoop() {
	t := time.NewTicker(c.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			raw, ok, err := c.store.Get(c.storageKey)
			if err != nil {
				if c.badLim.Allow() {
					c.log.Debug("poll read failed", logx.Err(err))
				}
				continue
			}
			if !ok {
				continue
			}
			c.mu.Lock()
			changed := raw != c.lastRaw
			c.mu.Unlock()
			if changed {
				c.handleStored(raw)
			}
		}
	}
}

// handleStored runs the shared parse/validate/decrypt/notify pipeline for
// both store-based transports.
func (c *Channel) handleStored(raw string) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	if c.selfWrite && raw == c.lastRaw {
		// Our own write echoing back: the raw text matches what Set
		// recorded. External content arriving inside the echo window
		// carries different text and is never suppressed.
		c.selfWrite = false
		c.mu.Unlock()
		return
	}
	c.lastRaw = raw
	c.mu.Unlock()

	v, ok := c.decodeStored(raw)
	if !ok {
		return
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.last = v
	cbs := c.snapshotLocked()
	c.mu.Unlock()

	for _, cb := range cbs {
		cb(v)
	}
}

// decodeStored decrypts (when enabled) and decodes stored text. All
// failures are swallowed: log at debug, report !ok, never throw.
func (c *Channel) decodeStored(raw string) (any, bool) {
	text := raw
	if c.opts.EnableEncryption {
		p, err := deobfuscate(raw, c.opts.EncryptionKey)
		if err != nil {
			// Degrade gracefully: the entry may predate encryption being
			// turned on, so try it as plaintext.
			if c.badLim.Allow() {
				c.log.Debug("payload decrypt failed; trying as plaintext", logx.Err(err))
			}
		} else {
			text = p
		}
	}
	v, err := decodeMessage(text)
	if err != nil {
		if c.badLim.Allow() {
			c.log.Debug("dropping malformed sync payload", logx.Err(err))
		}
		return nil, false
	}
	return v, true
}

func (c *Channel) snapshotLocked() []Callback {
	out := make([]Callback, 0, len(c.order))
	for _, id := range c.order {
		if cb, ok := c.subs[id]; ok {
			out = append(out, cb)
		}
	}
	return out
}

// callbackID derives a stable identity for a callback so Subscribe can
// dedupe adds and Unsubscribe can remove by function value.
func callbackID(fn Callback) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
