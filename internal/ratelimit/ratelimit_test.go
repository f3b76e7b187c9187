package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, zap.NewNop()), mr
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "k1", 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed, got %+v", i, res)
		}
	}
}

func TestLimiterRejectsOverLimit(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := l.Allow(ctx, "k2", 2, time.Minute); err != nil {
			t.Fatalf("Allow: %v", err)
		}
	}
	res, err := l.Allow(ctx, "k2", 2, time.Minute)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed {
		t.Error("third request should be rejected at limit=2")
	}
	if res.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", res.Remaining)
	}
}

func TestLimiterWindowSlidesAfterExpiry(t *testing.T) {
	l, mr := newTestLimiter(t)
	ctx := context.Background()
	if _, err := l.Allow(ctx, "k3", 1, time.Second); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	res, err := l.Allow(ctx, "k3", 1, time.Second)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("second request within the window should be rejected")
	}
	mr.FastForward(2 * time.Second)
	res, err = l.Allow(ctx, "k3", 1, time.Second)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !res.Allowed {
		t.Error("request after the window slides should be allowed again")
	}
}

func TestConcurrentGateEnforcesCap(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	g := NewConcurrentGate(rdb, zap.NewNop())
	ctx := context.Background()

	ok1, _ := g.Acquire(ctx, "gate", 1)
	if !ok1 {
		t.Fatal("first acquire should succeed")
	}
	ok2, _ := g.Acquire(ctx, "gate", 1)
	if ok2 {
		t.Fatal("second acquire should fail while cap is 1 and first is held")
	}
	g.Release(ctx, "gate")
	ok3, _ := g.Acquire(ctx, "gate", 1)
	if !ok3 {
		t.Fatal("acquire after release should succeed")
	}
}
