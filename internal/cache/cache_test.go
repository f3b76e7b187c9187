package cache

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryCacheSetGetRoundTrip(t *testing.T) {
	c := NewInMemory()
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("Get = (%q, %v, %v), want (\"v\", true, nil)", got, ok, err)
	}
}

func TestInMemoryCacheMissReturnsFalse(t *testing.T) {
	c := NewInMemory()
	defer c.Close()
	_, ok, err := c.Get(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("Get(missing) = (_, %v, %v), want (false, nil)", ok, err)
	}
}

func TestInMemoryCacheExpiresAfterTTL(t *testing.T) {
	c := NewInMemory()
	defer c.Close()
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	_, ok, _ := c.Get(ctx, "k")
	if ok {
		t.Error("expected expired key to miss")
	}
}

func TestInMemoryCacheDelete(t *testing.T) {
	c := NewInMemory()
	defer c.Close()
	ctx := context.Background()
	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, ok, _ := c.Get(ctx, "k")
	if ok {
		t.Error("expected deleted key to miss")
	}
}

func TestKeyHashIsStableAndDistinct(t *testing.T) {
	a := KeyHash("hello")
	b := KeyHash("hello")
	c := KeyHash("world")
	if a != b {
		t.Error("KeyHash should be deterministic for the same input")
	}
	if a == c {
		t.Error("KeyHash should differ for different input")
	}
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c := NewInMemory()
	defer c.Close()
	ctx := context.Background()
	calls := 0
	fn := func() ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}
	v1, hit1, err := GetOrCompute(ctx, c, "k", time.Minute, fn)
	if err != nil || hit1 || string(v1) != "computed" {
		t.Fatalf("first call = (%q, %v, %v)", v1, hit1, err)
	}
	v2, hit2, err := GetOrCompute(ctx, c, "k", time.Minute, fn)
	if err != nil || !hit2 || string(v2) != "computed" {
		t.Fatalf("second call = (%q, %v, %v)", v2, hit2, err)
	}
	if calls != 1 {
		t.Errorf("fn should only run once, ran %d times", calls)
	}
}
