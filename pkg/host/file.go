package host

import (
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "tabsync/pkg/logx"
)

const kvExt = ".kv"

// FileStore keeps one file per key under a directory.
//
// Writes go through a temp file + rename so readers and watchers never
// observe a partial value. Change notifications come from an fsnotify
// watch on the directory, so mutations made by other processes are seen
// too; ReliableWatch is therefore true.
type FileStore struct {
	dir string
	log logx.Logger

	mu       sync.Mutex
	watchers map[uint64]chan Change
	seq      uint64
	running  bool
	closed   bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewFileStore(dir string, log logx.Logger) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("file store: path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{
		dir:      dir,
		log:      log,
		watchers: map[uint64]chan Change{},
		stop:     make(chan struct{}),
	}, nil
}

// keyPath maps a key to a filename. Keys are query-escaped so characters
// like ':' and '/' stay filesystem-safe on every OS.
func (s *FileStore) keyPath(key string) string {
	return filepath.Join(s.dir, url.QueryEscape(key)+kvExt)
}

func keyFromFilename(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, kvExt) {
		return "", false
	}
	key, err := url.QueryUnescape(strings.TrimSuffix(base, kvExt))
	if err != nil {
		return "", false
	}
	return key, true
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", false, ErrStoreClosed
	}
	b, err := os.ReadFile(s.keyPath(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrStoreClosed
	}
	path := s.keyPath(key)
	tmp := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, []byte(value), 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *FileStore) ReliableWatch() bool { return true }

func (s *FileStore) Watch(buffer int) (<-chan Change, func(), error) {
	if buffer <= 0 {
		buffer = 8
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil, ErrStoreClosed
	}
	ch := make(chan Change, buffer)
	s.seq++
	id := s.seq
	s.watchers[id] = ch
	if !s.running {
		s.running = true
		s.wg.Add(1)
		go s.watchLoop()
	}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.watchers[id]; ok {
				delete(s.watchers, id)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
	return ch, cancel, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
	return nil
}

// publish delivers to watchers while holding mu so a concurrent cancel
// cannot close a channel mid-send.
func (s *FileStore) publish(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- c:
		default:
			// Drop oldest, then push the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- c:
			default:
				s.log.Debug("store change dropped (watcher slow)",
					logx.String("key", c.Key),
					logx.Int("queue_cap", cap(ch)),
				)
			}
		}
	}
}

// watchLoop runs the fsnotify watcher.
//
// When fsnotify gets into a bad state (common on some platforms + certain
// editors), the watcher may stop delivering events or close its channels.
// Self-heal by recreating the watcher with a small exponential backoff.
func (s *FileStore) watchLoop() {
	defer s.wg.Done()

	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase
	// local RNG to avoid global contention (and to keep jitter deterministic per process).
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	wait := func() bool {
		d := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		select {
		case <-s.stop:
			return false
		case <-time.After(d):
			return true
		}
	}

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			s.log.Warn("store watch init failed", logx.Err(err), logx.String("dir", s.dir))
			if !wait() {
				return
			}
			continue
		}
		if err := w.Add(s.dir); err != nil {
			_ = w.Close()
			s.log.Warn("store watch add failed", logx.Err(err), logx.String("dir", s.dir))
			if !wait() {
				return
			}
			continue
		}

		// success; reset backoff so transient issues don't cause long restart delays
		backoff = restartBackoffBase
		s.log.Debug("store watcher started", logx.String("dir", s.dir))

		// inner loop: runs until the watcher breaks, then the outer loop recreates it.
		broken := false
		for !broken {
			select {
			case <-s.stop:
				_ = w.Close()
				return
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				s.handleEvent(ev)
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				s.log.Debug("store watch error", logx.Err(err), logx.String("dir", s.dir))
			}
		}
		_ = w.Close()
	}
}

func (s *FileStore) handleEvent(ev fsnotify.Event) {
	// Renames land as Create on the target; direct writes as Write.
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	key, ok := keyFromFilename(ev.Name)
	if !ok {
		// Temp files and anything else living in the directory.
		return
	}
	b, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		// The file may have been renamed away or removed again already.
		return
	}
	s.publish(Change{Key: key, Value: string(b)})
}
