// Package bigcache is a local.Cache on allegro/bigcache.
//
// BigCache stores bytes off the Go heap's pointer graph, so values go through
// a codec on every Set and Get. It is bounded by memory (HardMaxCacheSizeMB),
// not by entry count. Time-based cleanup is disabled: entries leave only
// through capacity pressure or explicit deletion.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/stash/codec"
	"github.com/unkn0wn-root/stash/local"
)

type Cache[V any] struct {
	c     *bc.BigCache
	codec codec.Codec[V]
}

var _ local.Cache[struct{}] = (*Cache[struct{}])(nil)

type Config struct {
	Shards             int // power of two; 0 => 64
	MaxEntriesInWindow int // initial sizing hint; 0 => local.DefaultMaxEntries
	MaxEntrySize       int // bytes, sizing hint; 0 => 512
	HardMaxCacheSizeMB int // 0 = unbounded
}

func New[V any](cfg Config, cd codec.Codec[V]) (*Cache[V], error) {
	if cd == nil {
		return nil, errors.New("bigcache: codec is required")
	}
	// LifeWindow only matters when CleanWindow > 0, which stays disabled.
	conf := bc.DefaultConfig(24 * time.Hour)
	conf.CleanWindow = 0
	conf.Shards = 64
	conf.MaxEntriesInWindow = local.DefaultMaxEntries
	conf.MaxEntrySize = 512
	conf.Verbose = false
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{c: c, codec: cd}, nil
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	b, err := c.c.Get(key)
	if err != nil {
		return zero, false
	}
	v, err := c.codec.Decode(b)
	if err != nil {
		_ = c.c.Delete(key) // self-heal
		return zero, false
	}
	return v, true
}

// Set drops values the codec cannot encode or bigcache refuses (entry larger
// than a shard); the next Get misses and the remote tier serves the value.
func (c *Cache[V]) Set(key string, value V) {
	b, err := c.codec.Encode(value)
	if err != nil {
		_ = c.c.Delete(key)
		return
	}
	if err := c.c.Set(key, b); err != nil {
		_ = c.c.Delete(key)
	}
}

func (c *Cache[V]) Delete(key string) { _ = c.c.Delete(key) }
func (c *Cache[V]) Len() int          { return c.c.Len() }
func (c *Cache[V]) Close() error      { return c.c.Close() }
