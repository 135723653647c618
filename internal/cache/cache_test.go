package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"sqlite": sqlite,
	}
}

func TestCache_FreshAndStale(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
			c := New(backend, 5*time.Minute, WithClock(clock.Now))

			if _, ok, err := c.Get(ctx, "news_cache"); err != nil || ok {
				t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
			}

			if err := c.Put(ctx, "news_cache", []byte(`{"articles":[]}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}

			clock.Advance(5*time.Minute - time.Millisecond)
			data, ok, err := c.Get(ctx, "news_cache")
			if err != nil || !ok {
				t.Fatalf("expected fresh hit, got ok=%v err=%v", ok, err)
			}
			if string(data) != `{"articles":[]}` {
				t.Errorf("unexpected data %q", data)
			}

			clock.Advance(time.Millisecond)
			if _, ok, _ := c.Get(ctx, "news_cache"); ok {
				t.Error("expected entry to be stale exactly at TTL")
			}
		})
	}
}

func TestCache_PutOverwritesTimestamp(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
			c := New(backend, time.Minute, WithClock(clock.Now))

			if err := c.Put(ctx, "k", []byte("one")); err != nil {
				t.Fatal(err)
			}
			clock.Advance(2 * time.Minute)
			if err := c.Put(ctx, "k", []byte("two")); err != nil {
				t.Fatal(err)
			}

			entry, ok, err := backend.Load(ctx, "k")
			if err != nil || !ok {
				t.Fatalf("Load: ok=%v err=%v", ok, err)
			}
			if !entry.Timestamp.Equal(clock.Now()) {
				t.Errorf("expected timestamp %v, got %v", clock.Now(), entry.Timestamp)
			}
			if string(entry.Data) != "two" {
				t.Errorf("expected overwritten data, got %q", entry.Data)
			}
			if c.IsStale(entry) {
				t.Error("freshly written entry should not be stale")
			}
		})
	}
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryBackend(), time.Hour)

	if err := c.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected miss after invalidate")
	}
}

func TestPreferences(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			prefs := NewPreferences(backend)

			if _, ok, err := prefs.Get(ctx, "rememberMe"); err != nil || ok {
				t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
			}
			if err := prefs.Set(ctx, "rememberMe", "true"); err != nil {
				t.Fatal(err)
			}
			v, ok, err := prefs.Get(ctx, "rememberMe")
			if err != nil || !ok || v != "true" {
				t.Fatalf("expected true, got %q ok=%v err=%v", v, ok, err)
			}
			if err := prefs.Remove(ctx, "rememberMe"); err != nil {
				t.Fatal(err)
			}
			if _, ok, _ := prefs.Get(ctx, "rememberMe"); ok {
				t.Error("expected key removed")
			}
		})
	}
}

func TestSQLiteBackend_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	b, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	ts := time.UnixMilli(1_700_000_123_456)
	if err := b.Save(ctx, Entry{Key: "k", Data: []byte("v"), Timestamp: ts}); err != nil {
		t.Fatal(err)
	}
	b.Close()

	b, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()

	entry, ok, err := b.Load(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Load after reopen: ok=%v err=%v", ok, err)
	}
	if !entry.Timestamp.Equal(ts) {
		t.Errorf("expected timestamp %v, got %v", ts, entry.Timestamp)
	}
}
