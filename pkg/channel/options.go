package channel

import (
	"time"

	"tabsync/pkg/host"
	logx "tabsync/pkg/logx"
)

const (
	// DefaultNamespace prefixes storage keys and bus topics so independent
	// uses of the same logical key don't collide.
	DefaultNamespace = "tss"

	// DefaultPollInterval is the polling transport's read interval.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultEncryptionKey is a placeholder. Override it for any real use;
	// obfuscation with a known key defeats nothing.
	DefaultEncryptionKey = "tabsync-obfuscation-key"
)

// Options configures a Channel. The zero value plus normalize() yields
// a broadcast channel on the process-global bus.
type Options struct {
	// Namespace scopes storage keys ("{namespace}:{key}"). Default "tss".
	Namespace string

	// EnableEncryption obfuscates stored payloads. This defeats casual
	// inspection only; it is not a security boundary.
	EnableEncryption bool
	EncryptionKey    string

	// Debug gates diagnostic logging. It must not affect behavior.
	Debug  bool
	Logger logx.Logger

	// Broadcaster and Store are the injected host capabilities. With
	// neither set, host.DefaultBus() is used. A broadcaster always wins
	// over a store.
	Broadcaster host.Broadcaster
	Store       host.Store

	// PollInterval applies to the polling transport only. Default 500ms.
	PollInterval time.Duration
}

type Option func(*Options)

func WithNamespace(ns string) Option {
	return func(o *Options) { o.Namespace = ns }
}

// WithEncryption enables payload obfuscation. An empty secret keeps the
// placeholder default.
func WithEncryption(secret string) Option {
	return func(o *Options) {
		o.EnableEncryption = true
		if secret != "" {
			o.EncryptionKey = secret
		}
	}
}

func WithDebug(v bool) Option {
	return func(o *Options) { o.Debug = v }
}

func WithLogger(log logx.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

func WithBroadcaster(b host.Broadcaster) Option {
	return func(o *Options) { o.Broadcaster = b }
}

func WithStore(s host.Store) Option {
	return func(o *Options) { o.Store = s }
}

func WithPollInterval(d time.Duration) Option {
	return func(o *Options) { o.PollInterval = d }
}

func (o *Options) normalize() {
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
	if o.EncryptionKey == "" {
		o.EncryptionKey = DefaultEncryptionKey
	}
	if o.PollInterval < 10*time.Millisecond {
		o.PollInterval = DefaultPollInterval
	}
}
