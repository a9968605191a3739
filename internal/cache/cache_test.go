package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"saku/internal/log"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestLRU(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}

	// "a" was just used, so "b" is evicted.
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clock.t = clock.t.Add(2 * time.Minute)
	c.Set("c", "3")

	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if v, ok := c.Get("c"); !ok || v != "3" {
		t.Errorf("Get(c) = %q, %v", v, ok)
	}
}

func TestLRUCache_SetIfAbsent(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)

	if !c.SetIfAbsent("k", "first") {
		t.Fatal("first SetIfAbsent should store")
	}
	if c.SetIfAbsent("k", "second") {
		t.Error("second SetIfAbsent should not store")
	}
	clock.t = clock.t.Add(time.Hour)
	if !c.SetIfAbsent("k", "third") {
		t.Error("SetIfAbsent over an expired item should store")
	}
	if v, _ := c.Get("k"); v != "third" {
		t.Errorf("Get(k) = %q, want third", v)
	}
}

func TestIdempotency(t *testing.T) {
	idem := NewIdempotency(10, time.Minute)

	_, pending, claimed := idem.Begin("u1", "key")
	if !claimed || pending {
		t.Fatalf("first Begin: claimed=%v pending=%v", claimed, pending)
	}

	_, pending, claimed = idem.Begin("u1", "key")
	if claimed || !pending {
		t.Errorf("Begin while running: claimed=%v pending=%v", claimed, pending)
	}

	// Keys are scoped per owner.
	if _, _, claimed := idem.Begin("u2", "key"); !claimed {
		t.Error("another owner should claim the same key")
	}

	idem.Complete("u1", "key", Response{Status: 201, Body: []byte(`{"ok":true}`), Fingerprint: "f"})
	prev, pending, claimed := idem.Begin("u1", "key")
	if claimed || pending || prev.Status != 201 || prev.Fingerprint != "f" {
		t.Errorf("Begin after Complete = %+v pending=%v claimed=%v", prev, pending, claimed)
	}

	idem.Abandon("u2", "key")
	if _, _, claimed := idem.Begin("u2", "key"); !claimed {
		t.Error("abandoned key should be claimable again")
	}
}

func TestManager_CleanAll(t *testing.T) {
	c, clock := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	clock.t = clock.t.Add(time.Hour)

	m := NewManager(log.New(log.Config{Output: io.Discard}))
	m.Register(c)
	if n := m.CleanAll(); n != 1 {
		t.Errorf("CleanAll() = %d, want 1", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
