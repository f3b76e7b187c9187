// Package ratelimit implements the sliding-window per-key request
// limiter and the concurrent-operation ceiling, both backed by Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Result reports the outcome of a sliding-window check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func New(rdb *redis.Client, logger *zap.Logger) *Limiter {
	return &Limiter{rdb: rdb, logger: logger}
}

// Allow applies the prune-count-append sliding window atomically via a
// pipeline. On Redis unavailability it fails open (admits the request
// and logs the incident), per the documented gate contract.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := time.Now()
	windowStart := now.Add(-window)
	member := fmt.Sprintf("%d-%s", now.UnixNano(), key)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, window)
	_, err := pipe.Exec(ctx)
	if err != nil {
		l.logger.Warn("ratelimit: fail-open, cache unavailable", zap.Error(err), zap.String("key", key))
		return Result{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	count := int(countCmd.Val())
	if count >= limit {
		l.rdb.ZRem(ctx, key, member)
		oldest, _ := l.rdb.ZRangeWithScores(ctx, key, 0, 0).Result()
		resetAt := now.Add(window)
		if len(oldest) > 0 {
			resetAt = time.Unix(0, int64(oldest[0].Score)).Add(window)
		}
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Result{Allowed: true, Limit: limit, Remaining: limit - count - 1, ResetAt: now.Add(window)}, nil
}

// ConcurrentGate enforces a global ceiling on in-flight operations of one
// kind (e.g. concurrent ingestions), using an INCR/EXPIRE counter with a
// TTL safety net in case Release is never called.
type ConcurrentGate struct {
	rdb    *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

func NewConcurrentGate(rdb *redis.Client, logger *zap.Logger) *ConcurrentGate {
	return &ConcurrentGate{rdb: rdb, logger: logger, ttl: 10 * time.Minute}
}

// Acquire increments the counter and admits the caller if it's within
// cap; fails open on Redis unavailability.
func (g *ConcurrentGate) Acquire(ctx context.Context, key string, cap int) (bool, error) {
	n, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		g.logger.Warn("ratelimit: concurrent gate fail-open", zap.Error(err), zap.String("key", key))
		return true, nil
	}
	if n == 1 {
		g.rdb.Expire(ctx, key, g.ttl)
	}
	if int(n) > cap {
		g.rdb.Decr(ctx, key)
		return false, nil
	}
	return true, nil
}

func (g *ConcurrentGate) Release(ctx context.Context, key string) {
	g.rdb.Decr(ctx, key)
}
