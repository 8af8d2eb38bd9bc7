// Package ristretto is a local.Cache on dgraph-io/ristretto.
//
// Every entry costs 1, so MaxCost is the entry bound. Ristretto's TinyLFU
// admission may refuse a new key when the cache is full; a refused Set is
// indistinguishable from an immediate eviction and the next Get misses.
package ristretto

import (
	"errors"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/stash/local"
)

type Cache[V any] struct {
	c *rc.Cache
}

var _ local.Cache[struct{}] = (*Cache[struct{}])(nil)

type Config struct {
	MaxEntries  int64 // 0 => local.DefaultMaxEntries
	BufferItems int64 // 0 => 64
	Metrics     bool
}

func New[V any](cfg Config) (*Cache[V], error) {
	if cfg.MaxEntries < 0 || cfg.BufferItems < 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = local.DefaultMaxEntries
	}
	if cfg.BufferItems == 0 {
		cfg.BufferItems = 64
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.MaxEntries * 10, // ristretto recommends ~10x the item count
		MaxCost:     cfg.MaxEntries,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Cache[V]{c: c}, nil
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.c.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		c.c.Del(key)
		return zero, false
	}
	return v, true
}

// Set waits for the write buffer so the value is visible to the next Get.
func (c *Cache[V]) Set(key string, value V) {
	if c.c.Set(key, value, 1) {
		c.c.Wait()
	}
}

func (c *Cache[V]) Delete(key string) { c.c.Del(key) }

// Len reports admitted minus evicted keys. It needs Config.Metrics; without
// metrics it returns -1.
func (c *Cache[V]) Len() int {
	m := c.c.Metrics
	if m == nil {
		return -1
	}
	return int(m.KeysAdded() - m.KeysEvicted())
}

func (c *Cache[V]) Close() error {
	c.c.Wait()
	c.c.Close()
	return nil
}

// Metrics exposes ristretto's counters; nil unless Config.Metrics was set.
func (c *Cache[V]) Metrics() *rc.Metrics { return c.c.Metrics }
