package org

import (
	"testing"
	"time"
)

func TestCacheFreshWithinTTL(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Minute)
	c.Set("dev-hub")

	value, fresh := c.Get()
	if !fresh {
		t.Fatal("entry should be fresh immediately after Set")
	}
	if value != "dev-hub" {
		t.Errorf("value = %q, want dev-hub", value)
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Minute)
	c.Set("dev-hub")

	// Advance the clock past the TTL instead of sleeping.
	base := time.Now()
	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	if _, fresh := c.Get(); fresh {
		t.Error("entry should be stale after TTL elapsed")
	}
}

func TestCacheEmptyValueIsStillFresh(t *testing.T) {
	t.Parallel()

	// "No default configured" is a cacheable answer: fresh=true with an
	// empty value, so the resolver does not re-fetch on every call.
	c := NewCache(time.Minute)
	c.Set("")

	value, fresh := c.Get()
	if !fresh {
		t.Fatal("empty value should still be a fresh entry")
	}
	if value != "" {
		t.Errorf("value = %q, want empty", value)
	}
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	c := NewCache(time.Minute)
	c.Set("dev-hub")
	c.Invalidate()

	if _, fresh := c.Get(); fresh {
		t.Error("entry should not be fresh after Invalidate")
	}
}

func TestCacheZeroTTLFallsBackToDefault(t *testing.T) {
	t.Parallel()

	c := NewCache(0)
	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultTTL)
	}
}
