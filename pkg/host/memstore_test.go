package host

import (
	"testing"
	"time"
)

func TestMemStoreGetSet(t *testing.T) {
	t.Parallel()
	s := NewMemStore(true)
	defer s.Close()

	if _, ok, err := s.Get("missing"); ok || err != nil {
		t.Fatalf("Get(missing) = ok=%v err=%v", ok, err)
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get("k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("Get(k) = %q, %v, %v", v, ok, err)
	}
}

func TestMemStoreWatch(t *testing.T) {
	t.Parallel()
	s := NewMemStore(true)
	defer s.Close()

	ch, cancel, err := s.Watch(4)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer cancel()

	_ = s.Set("k", "v1")
	select {
	case c := <-ch:
		if c.Key != "k" || c.Value != "v1" {
			t.Fatalf("change = %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}
}

func TestMemStoreWatchCancel(t *testing.T) {
	t.Parallel()
	s := NewMemStore(true)
	defer s.Close()

	ch, cancel, err := s.Watch(4)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	cancel()
	cancel() // idempotent

	_ = s.Set("k", "v")
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after cancel")
	}
}

func TestMemStoreClose(t *testing.T) {
	t.Parallel()
	s := NewMemStore(false)
	ch, cancel, err := s.Watch(4)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Fatal("watcher channel still open after Close")
	}
	cancel() // must not panic after Close already closed the channel

	if err := s.Set("k", "v"); err == nil {
		t.Fatal("Set after Close succeeded")
	}
	if _, _, err := s.Get("k"); err == nil {
		t.Fatal("Get after Close succeeded")
	}
	if _, _, err := s.Watch(4); err == nil {
		t.Fatal("Watch after Close succeeded")
	}
}

func TestMemStoreReliability(t *testing.T) {
	t.Parallel()
	if !NewMemStore(true).ReliableWatch() {
		t.Fatal("want reliable")
	}
	if NewMemStore(false).ReliableWatch() {
		t.Fatal("want unreliable")
	}
}
