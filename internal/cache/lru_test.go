package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache returned a value")
	}

	c.Set("a", "1")
	if got, ok := c.Get("a"); !ok || got != "1" {
		t.Errorf("Get(a) = %q, %v", got, ok)
	}

	c.Set("a", "2")
	if got, _ := c.Get("a"); got != "2" {
		t.Errorf("overwrite: Get(a) = %q", got)
	}
	if c.Size() != 1 {
		t.Errorf("size = %d after overwrite", c.Size())
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("new entry missing")
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)

	c.Set("a", 1)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry returned")
	}
	if n := c.CleanExpired(); n != 0 {
		// Get already removed it.
		t.Errorf("CleanExpired removed %d entries", n)
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	time.Sleep(5 * time.Millisecond)

	if n := c.CleanExpired(); n != 3 {
		t.Errorf("CleanExpired = %d, want 3", n)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d after cleanup", c.Size())
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("place:1:week1", 1)
	c.Set("place:1:week2", 2)
	c.Set("place:2:week1", 3)

	if n := c.DeletePrefix("place:1:"); n != 2 {
		t.Errorf("DeletePrefix = %d, want 2", n)
	}
	if _, ok := c.Get("place:1:week1"); ok {
		t.Error("prefixed entry survived")
	}
	if _, ok := c.Get("place:2:week1"); !ok {
		t.Error("unrelated entry was removed")
	}
}
