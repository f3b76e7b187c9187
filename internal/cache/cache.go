// Package cache provides the shared cache abstraction used for the
// query-embedding memo and the answer cache.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache is the minimal contract both the in-memory and Redis-backed
// implementations satisfy.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// KeyHash returns a stable cache key for arbitrary string input (a
// normalized question, a prompt, a chunk id list).
func KeyHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// InMemoryCache is a process-local TTL cache, used as the query-embedding
// memo's backing store and as the answer cache when no Redis is configured.
type InMemoryCache struct {
	mu      sync.RWMutex
	items   map[string]memEntry
	stopCh  chan struct{}
	stopped bool
}

func NewInMemory() *InMemoryCache {
	c := &InMemoryCache{items: make(map[string]memEntry, 1024), stopCh: make(chan struct{})}
	go c.janitor(15 * time.Second)
	return c
}

func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.Delete(context.Background(), key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = memEntry{value: append([]byte(nil), value...), expiresAt: exp}
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Close() error {
	if c.stopped {
		return nil
	}
	close(c.stopCh)
	c.stopped = true
	return nil
}

func (c *InMemoryCache) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, v := range c.items {
				if !v.expiresAt.IsZero() && now.After(v.expiresAt) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// RedisCache is the shared, cross-process cache used for the answer
// cache in multi-instance deployments.
type RedisCache struct {
	Client *redis.Client
}

func NewRedis(url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	cli := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	return &RedisCache{Client: cli}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

func (r *RedisCache) Close() error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

// GetOrCompute returns the cached value or computes and caches it via fn.
func GetOrCompute(ctx context.Context, c Cache, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, bool, error) {
	if c == nil {
		return nil, false, errors.New("cache: nil cache")
	}
	if v, ok, _ := c.Get(ctx, key); ok {
		return v, true, nil
	}
	v, err := fn()
	if err != nil {
		return nil, false, err
	}
	_ = c.Set(ctx, key, v, ttl)
	return v, false, nil
}
