package host

import (
	"errors"
	"path/filepath"
	"testing"

	logx "tabsync/pkg/logx"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "kv.db")
	s, err := OpenSQLite(path, logx.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get("missing"); ok || err != nil {
		t.Fatalf("Get(missing) = ok=%v err=%v", ok, err)
	}
	if err := s.Set("tss:theme", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("tss:theme", "v2"); err != nil {
		t.Fatalf("Set (overwrite): %v", err)
	}
	v, ok, err := s.Get("tss:theme")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
}

func TestSQLiteStoreNoWatch(t *testing.T) {
	t.Parallel()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"), logx.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	if s.ReliableWatch() {
		t.Fatal("sqlite store must report unreliable watch")
	}
	if _, _, err := s.Watch(4); !errors.Is(err, ErrWatchUnsupported) {
		t.Fatalf("Watch error = %v, want ErrWatchUnsupported", err)
	}
}

func TestSQLiteStoreReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenSQLite(path, logx.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Set("k", "persisted"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := OpenSQLite(path, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	v, ok, err := s2.Get("k")
	if err != nil || !ok || v != "persisted" {
		t.Fatalf("Get after reopen = %q, %v, %v", v, ok, err)
	}
}

func TestOpenStoreDrivers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := OpenStore(StoreConfig{}, logx.Nop())
	if err != nil || s != nil {
		t.Fatalf("empty driver = %v, %v; want nil, nil", s, err)
	}
	s, err = OpenStore(StoreConfig{Driver: "none"}, logx.Nop())
	if err != nil || s != nil {
		t.Fatalf("driver none = %v, %v; want nil, nil", s, err)
	}

	s, err = OpenStore(StoreConfig{Driver: "file", Path: filepath.Join(dir, "kv")}, logx.Nop())
	if err != nil || s == nil {
		t.Fatalf("file driver: %v", err)
	}
	_ = s.Close()

	s, err = OpenStore(StoreConfig{Driver: "sqlite", Path: filepath.Join(dir, "kv.db")}, logx.Nop())
	if err != nil || s == nil {
		t.Fatalf("sqlite driver: %v", err)
	}
	_ = s.Close()

	if _, err := OpenStore(StoreConfig{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
