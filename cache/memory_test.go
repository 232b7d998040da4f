package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-registry/logger"
	"github.com/saiset-co/sai-registry/types"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T, maxEntries int) (*MemoryCache, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)}
	config := &types.CacheConfig{
		Enabled: true,
		Type:    "memory",
		Config: &MemoryConfig{
			MaxEntries:      maxEntries,
			CleanupInterval: "",
		},
	}

	c, err := newMemoryCache(context.Background(), logger.NewNopLogger(), config, clock)
	if err != nil {
		t.Fatalf("newMemoryCache failed: %v", err)
	}

	return c, clock
}

func TestMemoryCache_GetSetDelete(t *testing.T) {
	c, _ := newTestCache(t, 100)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should miss")
	}

	if err := c.Set("GET:/api/codes", "payload", 5*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get("GET:/api/codes")
	if !ok || got != "payload" {
		t.Errorf("Get = (%v, %v), want (payload, true)", got, ok)
	}

	if err := c.Delete("GET:/api/codes"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := c.Get("GET:/api/codes"); ok {
		t.Error("Get after Delete should miss")
	}

	if err := c.Set("", "x", time.Minute); err != types.ErrCacheKeyEmpty {
		t.Errorf("empty key should be rejected, got %v", err)
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	c, clock := newTestCache(t, 100)

	if err := c.Set("GET:/api/codes", "v1", 5*time.Second); err != nil {
		t.Fatal(err)
	}

	// Still fresh at t0+4s.
	clock.Advance(4 * time.Second)
	got, ok := c.Get("GET:/api/codes")
	if !ok || got != "v1" {
		t.Errorf("at t0+4s Get = (%v, %v), want (v1, true)", got, ok)
	}

	// Absent at t0+6s, and the expired entry is purged on access.
	clock.Advance(2 * time.Second)
	if _, ok := c.Get("GET:/api/codes"); ok {
		t.Error("at t0+6s entry should be expired")
	}

	c.mu.RLock()
	_, stillThere := c.data["GET:/api/codes"]
	c.mu.RUnlock()
	if stillThere {
		t.Error("expired entry should be lazily purged on access")
	}
}

func TestMemoryCache_ExpiryBoundary(t *testing.T) {
	c, clock := newTestCache(t, 100)

	if err := c.Set("k", "v", 5*time.Second); err != nil {
		t.Fatal(err)
	}

	// now - storedAt >= ttl counts as expired: the boundary instant misses.
	clock.Advance(5 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("entry at exactly ttl should be expired")
	}
}

func TestMemoryCache_ZeroTTLDisables(t *testing.T) {
	c, _ := newTestCache(t, 100)

	if err := c.Set("k", "v", 0); err != nil {
		t.Fatalf("zero ttl Set should be a no-op, got %v", err)
	}
	if err := c.Set("k2", "v", -time.Second); err != nil {
		t.Fatalf("negative ttl Set should be a no-op, got %v", err)
	}

	if _, ok := c.Get("k"); ok {
		t.Error("zero ttl must not store")
	}
	if _, ok := c.Get("k2"); ok {
		t.Error("negative ttl must not store")
	}
}

func TestMemoryCache_InvalidatePrefix(t *testing.T) {
	c, _ := newTestCache(t, 100)

	keys := []string{
		"GET:/api/codes",
		"GET:/api/codes?group_id=1",
		"GET:/api/codes/abc",
		"GET:/api/collections",
	}
	for _, key := range keys {
		if err := c.Set(key, key, time.Minute); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.InvalidatePrefix("GET:/api/codes"); err != nil {
		t.Fatal(err)
	}

	for _, key := range keys[:3] {
		if _, ok := c.Get(key); ok {
			t.Errorf("key %q should be invalidated", key)
		}
	}
	if _, ok := c.Get("GET:/api/collections"); !ok {
		t.Error("unrelated key must survive invalidation")
	}

	if err := c.InvalidatePrefix(""); err != types.ErrCacheKeyEmpty {
		t.Errorf("empty prefix should be rejected, got %v", err)
	}
}

// Coherence: a write invalidating the path makes the next read miss even
// though the previously stored entry's TTL has not elapsed.
func TestMemoryCache_WriteInvalidationBeatsTTL(t *testing.T) {
	c, clock := newTestCache(t, 100)

	if err := c.Set("GET:/api/codes", "before-write", time.Hour); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Second)
	if err := c.InvalidatePrefix("GET:/api/codes"); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("GET:/api/codes"); ok {
		t.Error("read after write must not see the pre-write entry")
	}

	if err := c.Set("GET:/api/codes", "after-write", time.Hour); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get("GET:/api/codes")
	if !ok || got != "after-write" {
		t.Errorf("Get = (%v, %v), want (after-write, true)", got, ok)
	}
}

func TestMemoryCache_Sweep(t *testing.T) {
	c, clock := newTestCache(t, 100)

	if err := c.Set("short", "v", time.Second); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("long", "v", time.Hour); err != nil {
		t.Fatal(err)
	}

	clock.Advance(2 * time.Second)

	if removed := c.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d entries, want 1", removed)
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("unexpired entry must survive sweep")
	}
}

func TestMemoryCache_FIFOEviction(t *testing.T) {
	c, clock := newTestCache(t, 3)

	for i := 0; i < 3; i++ {
		if err := c.Set(fmt.Sprintf("key-%d", i), i, time.Hour); err != nil {
			t.Fatal(err)
		}
		clock.Advance(time.Millisecond)
	}

	if err := c.Set("key-3", 3, time.Hour); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("key-0"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get("key-3"); !ok {
		t.Error("newest entry should be present")
	}

	_, _, evictions := c.Stats()
	if evictions != 1 {
		t.Errorf("evictions = %d, want 1", evictions)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(t, 1000)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("GET:/api/codes?w=%d&i=%d", worker, i%10)
				switch i % 4 {
				case 0:
					_ = c.Set(key, i, time.Minute)
				case 1:
					c.Get(key)
				case 2:
					_ = c.InvalidatePrefix(fmt.Sprintf("GET:/api/codes?w=%d", worker))
				case 3:
					c.Sweep()
				}
			}
		}(worker)
	}
	wg.Wait()
}

func TestMemoryCache_Lifecycle(t *testing.T) {
	c, _ := newTestCache(t, 10)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !c.IsRunning() {
		t.Error("cache should be running after Start")
	}
	if err := c.Start(); err != types.ErrServerAlreadyRunning {
		t.Errorf("second Start should fail, got %v", err)
	}

	if err := c.Set("k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if c.IsRunning() {
		t.Error("cache should not be running after Stop")
	}
	if _, ok := c.Get("k"); ok {
		t.Error("entries should be cleared on Stop")
	}
}

func TestBuildKey_Deterministic(t *testing.T) {
	argsA := &fasthttp.Args{}
	argsA.Set("page", "2")
	argsA.Set("status", "danger")

	argsB := &fasthttp.Args{}
	argsB.Set("status", "danger")
	argsB.Set("page", "2")

	keyA := BuildKey("GET", "/api/codes", argsA)
	keyB := BuildKey("GET", "/api/codes", argsB)
	if keyA != keyB {
		t.Errorf("parameter order must not matter: %q vs %q", keyA, keyB)
	}

	want := "GET:/api/codes?page=2&status=danger"
	if keyA != want {
		t.Errorf("BuildKey = %q, want %q", keyA, want)
	}

	if got := BuildKey("GET", "/api/codes", nil); got != "GET:/api/codes" {
		t.Errorf("BuildKey without args = %q", got)
	}
}

func TestReadPrefix(t *testing.T) {
	if got := ReadPrefix("/api/codes/"); got != "GET:/api/codes" {
		t.Errorf("ReadPrefix = %q", got)
	}
}
