package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryCache_SetGetExpire(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := NewMemoryCacheWithClock(clock.Now)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get() = %q, %v", got, err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get(expired) error = %v, want ErrCacheMiss", err)
	}
	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Error("Exists(expired) = true")
	}
	if n := c.RemoveExpired(); n != 1 {
		t.Errorf("RemoveExpired() = %d, want 1", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewMemoryCacheWithClock(clock.Now)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	clock.Advance(1000 * time.Hour)
	if ok, _ := c.Exists(ctx, "k"); !ok {
		t.Error("zero-TTL entry expired")
	}
}

func TestMemoryCache_GetOrSet(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	calls := 0
	fn := func() ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}
	for i := 0; i < 3; i++ {
		got, err := c.GetOrSet(ctx, "k", time.Minute, fn)
		if err != nil || string(got) != "computed" {
			t.Fatalf("GetOrSet() = %q, %v", got, err)
		}
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}

	c.Delete(ctx, "k")
	c.GetOrSet(ctx, "k", time.Minute, fn)
	if calls != 2 {
		t.Errorf("fn called %d times after Delete, want 2", calls)
	}

	wantErr := errors.New("boom")
	if _, err := c.GetOrSet(ctx, "other", time.Minute, func() ([]byte, error) { return nil, wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("GetOrSet(error) = %v, want %v", err, wantErr)
	}
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	c := NewMemoryCacheWithClock(time.Now)
	ctx := context.Background()

	buf := []byte("abc")
	c.Set(ctx, "k", buf, 0)
	buf[0] = 'x'

	got, _ := c.Get(ctx, "k")
	got[1] = 'y'

	again, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func TestMemoryCache_Take(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCacheWithClock(clock.Now)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, err := c.Take(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Take() = %q, %v", got, err)
	}
	if _, err := c.Take(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("second Take() error = %v, want ErrCacheMiss", err)
	}

	c.Set(ctx, "old", []byte("v"), time.Minute)
	clock.Advance(2 * time.Minute)
	if _, err := c.Take(ctx, "old"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Take(expired) error = %v, want ErrCacheMiss", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Take of expired entry, want 0", c.Len())
	}
}

func TestMemoryCache_TakeConcurrent(t *testing.T) {
	c := NewMemoryCacheWithClock(time.Now)
	ctx := context.Background()
	c.Set(ctx, "session", []byte("v"), 0)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Take(ctx, "session"); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Take() succeeded %d times, want 1", wins)
	}
}
