package storage

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/nithinv16/hearmem/internal/metrics"
)

// CachedKV wraps a KV backend with a ristretto read cache. Writes go
// straight through and invalidate the cached value, so a read after a
// write always observes the write.
type CachedKV struct {
	backend KV
	cache   *ristretto.Cache
}

// NewCachedKV wraps backend with a read cache of at most maxSizeMB.
func NewCachedKV(backend KV, maxSizeMB int64) (*CachedKV, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = 16
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     maxSizeMB << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating read cache: %w", err)
	}

	return &CachedKV{backend: backend, cache: cache}, nil
}

// Compile-time interface check.
var _ KV = (*CachedKV)(nil)

// Get returns the cached value for key, falling back to the backend.
func (c *CachedKV) Get(ctx context.Context, key string) ([]byte, error) {
	if cached, ok := c.cache.Get(key); ok {
		metrics.IncCounter(metrics.MetricStorageCacheHits)
		return cached.([]byte), nil
	}
	metrics.IncCounter(metrics.MetricStorageCacheMisses)

	value, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if value != nil {
		c.cache.Set(key, value, int64(len(value)))
	}
	return value, nil
}

// Set writes through to the backend and refreshes the cache.
func (c *CachedKV) Set(ctx context.Context, key string, value []byte) error {
	if err := c.backend.Set(ctx, key, value); err != nil {
		return err
	}
	c.cache.Set(key, value, int64(len(value)))
	c.cache.Wait()
	return nil
}

// Delete removes key from the backend and the cache.
func (c *CachedKV) Delete(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil {
		return err
	}
	c.cache.Del(key)
	return nil
}

// Close closes the cache and the backend.
func (c *CachedKV) Close() error {
	c.cache.Close()
	return c.backend.Close()
}
