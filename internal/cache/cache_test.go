package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestTTLCache_SetGet(t *testing.T) {
	c := New(time.Minute)
	c.Set("honda|civic|2018", 14500.0)

	v, ok := c.Get("honda|civic|2018")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v.(float64) != 14500.0 {
		t.Errorf("expected 14500, got %v", v)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestTTLCache_Expiry(t *testing.T) {
	c := New(time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry reaped, len=%d", c.Len())
	}
}

func TestTTLCache_ZeroTTLDisables(t *testing.T) {
	c := New(0)
	c.Set("k", "v")
	if _, ok := c.Get("k"); ok {
		t.Error("expected zero-TTL cache to never hit")
	}
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%5)
			c.Set(key, i)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if c.Len() != 5 {
		t.Errorf("expected 5 distinct keys, got %d", c.Len())
	}
}
