package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](0)
	defer c.Close()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "xlm", 1200000, time.Minute)
	c.Set(ctx, "forever", 1, 0)

	if v, ok := c.Get(ctx, "xlm"); !ok || v != 1200000 {
		t.Fatalf("Get = %d, %v", v, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get(ctx, "xlm"); ok {
		t.Fatal("expected expiry at ttl boundary")
	}
	if _, ok := c.Get(ctx, "forever"); !ok {
		t.Fatal("zero ttl should not expire")
	}

	c.evictExpired()
	if c.Len() != 1 {
		t.Fatalf("Len = %d after eviction", c.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := New[string, string](time.Hour)
	defer c.Close()

	c.Set(ctx, "k", "v", time.Hour)
	c.Delete(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected deleted")
	}
	c.Close()
}
