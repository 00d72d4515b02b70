package host

import (
	"errors"
	"strings"

	logx "tabsync/pkg/logx"
)

var (
	// ErrStoreClosed is returned by store operations after Close.
	ErrStoreClosed = errors.New("store closed")

	// ErrWatchUnsupported is returned by Watch on stores that cannot
	// deliver change notifications (callers should poll instead).
	ErrWatchUnsupported = errors.New("store does not support change notifications")
)

// Broadcaster delivers structured values to every subscriber of a topic
// within the current process.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop values (bounded backpressure).
//   - Publish loops back to subscribers held by the publisher itself.
type Broadcaster interface {
	Publish(topic string, value any)
	Subscribe(topic string, buffer int) (ch <-chan any, unsubscribe func())
}

// Change is a single store mutation as seen by a watcher.
type Change struct {
	Key   string
	Value string
}

// Store is a shared key-value text store.
//
// Get returns (value, present, error); an absent key is not an error.
// Set replaces the whole value for a key (last write wins; implementations
// must never read-modify-write shared state on behalf of a Set).
//
// Watch returns a channel of Changes for the whole store plus a cancel
// func. ReliableWatch reports whether Watch notifications actually fire
// for mutations made in other execution contexts; when it is false,
// callers should poll Get instead.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Watch(buffer int) (<-chan Change, func(), error)
	ReliableWatch() bool
	Close() error
}

// StoreConfig selects a store backend.
//
// Driver values:
//   - "file": one file per key under Path (a directory), fsnotify watch
//   - "sqlite": SQLite database file at Path, polling only
//
// If Driver is empty or "none", no store is opened.
type StoreConfig struct {
	Driver string
	Path   string
}

// OpenStore initializes the configured store.
// It returns (nil, nil) if no store is configured.
func OpenStore(cfg StoreConfig, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return NewFileStore(cfg.Path, log)
	case "sqlite", "sqlite3":
		return OpenSQLite(cfg.Path, log)
	default:
		return nil, errors.New("unknown store driver: " + driver)
	}
}
