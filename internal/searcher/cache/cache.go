// Package cache stores term-query results in Redis, keyed by the index
// generation so that entries computed before a new document arrived are
// never served.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

const keyPrefix = "tfidf:"

// Store is the key/value surface the cache needs. *redis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store: store,
		ttl:   ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
		}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Key identifies one query result at one index generation.
type Key struct {
	Kind       string
	Term       string
	Limit      int
	Generation int64
}

func (k Key) String() string {
	hash := sha256.Sum256(fmt.Appendf(nil, "%s|%d", k.Term, k.Limit))
	return fmt.Sprintf("%s%s:%x:g%d", keyPrefix, k.Kind, hash[:16], k.Generation)
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. Concurrent misses on the same key share one computation. The
// boolean reports a cache hit. Redis failures degrade to computing.
func GetOrCompute[T any](ctx context.Context, c *QueryCache, key Key, compute func() (T, error)) (T, bool, error) {
	var result T
	if c.get(ctx, key, &result) {
		return result, true, nil
	}
	k := key.String()
	val, err, _ := c.group.Do(k, func() (any, error) {
		var cached T
		if c.lookup(ctx, k, &cached) {
			return cached, nil
		}
		computed, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, k, computed)
		return computed, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return val.(T), false, nil
}

func (c *QueryCache) get(ctx context.Context, key Key, dst any) bool {
	ok := c.lookup(ctx, key.String(), dst)
	if ok {
		c.hits.Add(1)
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.Inc()
		}
	} else {
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.CacheMissesTotal.Inc()
		}
	}
	return ok
}

func (c *QueryCache) lookup(ctx context.Context, key string, dst any) bool {
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			data = nil
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return false
	}
	return true
}

func (c *QueryCache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate deletes every cached query result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports whether Redis calls are currently being attempted.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.State()
}
