package cache

import (
	"sync"
	"testing"
	"time"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should be present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("Size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("k", "v")
	c.Set("k2", "v2")

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d", c.Size())
	}
}

func TestDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("overview:1:2024-03", 1)
	c.Set("overview:1:2024-02", 2)
	c.Set("overview:12:2024-03", 3)

	if n := c.DeletePrefix("overview:1:"); n != 2 {
		t.Fatalf("DeletePrefix = %d", n)
	}
	if _, ok := c.Get("overview:12:2024-03"); !ok {
		t.Fatalf("other user's entry must survive")
	}
}

func TestManagerCleanNowAndStop(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Hour)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(time.Hour)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow = %d", n)
	}
	m.Stop()
	m.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int](50, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + (i+j)%26))
				c.Set(key, j)
				c.Get(key)
				if j%10 == 0 {
					c.DeletePrefix(key)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestStatsCountsHitsAndMisses(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2) // capacity clamps to one
	c.Get("a")
	c.Get("b")
	c.Get("b")

	got := c.Stats()
	if got.Hits != 2 || got.Misses != 1 || got.Entries != 1 {
		t.Fatalf("Stats = %+v", got)
	}
}
