package cache

import (
	"fmt"
	"testing"
	"time"
)

func newMemoryCache(t *testing.T, opts Options) *Cache[string] {
	t.Helper()
	opts.Enabled = true
	opts.Storage = StorageMemory
	c, err := New[string](opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestMemorySetGet(t *testing.T) {
	c := newMemoryCache(t, Options{})

	c.Set("a", "alpha")

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit for key a")
	}
	if got != "alpha" {
		t.Errorf("got %q, want %q", got, "alpha")
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestMemoryHasDeleteClear(t *testing.T) {
	c := newMemoryCache(t, Options{})

	c.Set("a", "alpha")
	c.Set("b", "beta")

	if !c.Has("a") {
		t.Error("Has(a) = false, want true")
	}

	c.Delete("a")
	if c.Has("a") {
		t.Error("Has(a) = true after Delete")
	}
	// Deleting an absent key must not panic or error.
	c.Delete("a")

	c.Clear()
	if c.Has("b") {
		t.Error("Has(b) = true after Clear")
	}
	if got := c.Stats().Size; got != 0 {
		t.Errorf("Stats().Size = %d after Clear, want 0", got)
	}
}

func TestFIFOEviction(t *testing.T) {
	const maxSize = 3
	c := newMemoryCache(t, Options{MaxSize: maxSize})

	for i := 0; i < maxSize+1; i++ {
		c.Set(fmt.Sprintf("key-%d", i), "v")
	}

	// Exactly the first-inserted key is evicted.
	if c.Has("key-0") {
		t.Error("oldest key survived eviction")
	}
	for i := 1; i <= maxSize; i++ {
		if !c.Has(fmt.Sprintf("key-%d", i)) {
			t.Errorf("key-%d missing, want present", i)
		}
	}
	if got := c.Stats().Size; got != maxSize {
		t.Errorf("Stats().Size = %d, want %d", got, maxSize)
	}
}

func TestFIFOResetKeepsInsertionOrder(t *testing.T) {
	c := newMemoryCache(t, Options{MaxSize: 2})

	c.Set("a", "1")
	c.Set("b", "2")
	// Overwriting "a" must not move it to the back of the eviction order.
	c.Set("a", "updated")
	c.Set("c", "3")

	if c.Has("a") {
		t.Error("re-set key escaped FIFO eviction")
	}
	if !c.Has("b") || !c.Has("c") {
		t.Error("expected b and c to remain")
	}
}

func TestTTLExpiry(t *testing.T) {
	now := time.Now()
	c := newMemoryCache(t, Options{TTL: time.Minute})
	c.WithClock(func() time.Time { return now })

	c.Set("k", "v")

	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	// Advance past the TTL; the entry must lazily expire and be removed.
	now = now.Add(time.Minute + time.Second)

	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after TTL")
	}
	if got := c.Stats().Size; got != 0 {
		t.Errorf("expired entry still counted: size = %d", got)
	}
}

func TestHasAppliesTTL(t *testing.T) {
	now := time.Now()
	c := newMemoryCache(t, Options{TTL: time.Minute})
	c.WithClock(func() time.Time { return now })

	c.Set("k", "v")
	now = now.Add(2 * time.Minute)

	if c.Has("k") {
		t.Error("Has returned true for expired entry")
	}
	if got := c.Stats().Size; got != 0 {
		t.Errorf("expired entry not deleted by Has: size = %d", got)
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := New[string](Options{Enabled: false})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	c.Set("k", "v")
	if _, ok := c.Get("k"); ok {
		t.Error("disabled cache returned a hit")
	}
	if c.Has("k") {
		t.Error("disabled cache Has = true")
	}

	stats := c.Stats()
	if stats.Enabled || stats.Size != 0 {
		t.Errorf("unexpected stats for disabled cache: %+v", stats)
	}
}

func TestStatsSnapshot(t *testing.T) {
	c := newMemoryCache(t, Options{MaxSize: 10, TTL: time.Second})

	c.Set("a", "1")
	c.Set("b", "2")

	stats := c.Stats()
	if !stats.Enabled {
		t.Error("Stats().Enabled = false")
	}
	if stats.Storage != StorageMemory {
		t.Errorf("Stats().Storage = %q", stats.Storage)
	}
	if stats.Size != 2 {
		t.Errorf("Stats().Size = %d, want 2", stats.Size)
	}
	if stats.MaxSize != 10 {
		t.Errorf("Stats().MaxSize = %d, want 10", stats.MaxSize)
	}
	if stats.TTL != time.Second {
		t.Errorf("Stats().TTL = %v, want 1s", stats.TTL)
	}
}

func TestUnknownStorageType(t *testing.T) {
	if _, err := New[string](Options{Enabled: true, Storage: "redis"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
}
