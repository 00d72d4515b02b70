package host

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "tabsync/pkg/logx"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	s, err := NewFileStore(t.TempDir(), logx.Nop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get("missing"); ok || err != nil {
		t.Fatalf("Get(missing) = ok=%v err=%v", ok, err)
	}
	if err := s.Set("tss:theme", `{"value":"dark"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get("tss:theme")
	if err != nil || !ok || v != `{"value":"dark"}` {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
}

func TestFileStoreKeyEscaping(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := NewFileStore(dir, logx.Nop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	key := "app:some/odd key"
	if err := s.Set(key, "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	want := filepath.Join(dir, url.QueryEscape(key)+".kv")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected escaped file %s: %v", want, err)
	}
	v, ok, err := s.Get(key)
	if err != nil || !ok || v != "v" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
}

func TestFileStoreWatchSeesOtherInstance(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	// Two store instances over the same directory stand in for two
	// processes sharing it.
	writer, err := NewFileStore(dir, logx.Nop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer writer.Close()
	reader, err := NewFileStore(dir, logx.Nop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer reader.Close()

	ch, cancel, err := reader.Watch(8)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer cancel()

	// Give the fsnotify watcher a beat to come up before writing.
	time.Sleep(100 * time.Millisecond)
	if err := writer.Set("tss:theme", "payload"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-ch:
			if c.Key == "tss:theme" && c.Value == "payload" {
				return
			}
		case <-deadline:
			t.Fatal("no change notification within 3s")
		}
	}
}

func TestFileStoreReliableWatch(t *testing.T) {
	t.Parallel()
	s, err := NewFileStore(t.TempDir(), logx.Nop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()
	if !s.ReliableWatch() {
		t.Fatal("file store watch should be reliable")
	}
}

func TestFileStoreClosedOperations(t *testing.T) {
	t.Parallel()
	s, err := NewFileStore(t.TempDir(), logx.Nop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := s.Set("k", "v"); err == nil {
		t.Fatal("Set after Close succeeded")
	}
	if _, _, err := s.Watch(4); err == nil {
		t.Fatal("Watch after Close succeeded")
	}
}
