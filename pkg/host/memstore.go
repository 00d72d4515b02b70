package host

import "sync"

// MemStore is an in-memory Store.
//
// Watch notifications are enqueued synchronously from Set, which makes it
// a deterministic stand-in for the shared store in tests; the reliable
// flag drives transport selection (reliable=false forces pollers).
type MemStore struct {
	reliable bool

	mu       sync.Mutex
	data     map[string]string
	watchers map[uint64]chan Change
	seq      uint64
	closed   bool
}

func NewMemStore(reliable bool) *MemStore {
	return &MemStore{
		reliable: reliable,
		data:     map[string]string{},
		watchers: map[uint64]chan Change{},
	}
}

func (s *MemStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrStoreClosed
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.data[key] = value
	s.notifyLocked(Change{Key: key, Value: value})
	return nil
}

// notifyLocked delivers to watchers while holding mu so a concurrent
// cancel cannot close a channel mid-send.
func (s *MemStore) notifyLocked(c Change) {
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
			}
		}
	}
}

func (s *MemStore) Watch(buffer int) (<-chan Change, func(), error) {
	if buffer <= 0 {
		buffer = 8
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrStoreClosed
	}
	ch := make(chan Change, buffer)
	s.seq++
	id := s.seq
	s.watchers[id] = ch

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

func (s *MemStore) ReliableWatch() bool { return s.reliable }

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
	return nil
}
