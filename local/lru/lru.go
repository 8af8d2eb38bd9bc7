// Package lru is the default local.Cache: an exact entry-count bound with
// least-recently-used eviction.
package lru

import (
	hlru "github.com/hashicorp/golang-lru/v2"

	"github.com/unkn0wn-root/stash/local"
)

type Cache[V any] struct {
	c *hlru.Cache[string, V]
}

var _ local.Cache[struct{}] = (*Cache[struct{}])(nil)

// New returns a cache holding at most maxEntries values.
// maxEntries <= 0 selects local.DefaultMaxEntries.
func New[V any](maxEntries int) (*Cache[V], error) {
	if maxEntries <= 0 {
		maxEntries = local.DefaultMaxEntries
	}
	c, err := hlru.New[string, V](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{c: c}, nil
}

func (c *Cache[V]) Get(key string) (V, bool) { return c.c.Get(key) }
func (c *Cache[V]) Set(key string, value V)  { c.c.Add(key, value) }
func (c *Cache[V]) Delete(key string)        { c.c.Remove(key) }
func (c *Cache[V]) Len() int                 { return c.c.Len() }

func (c *Cache[V]) Close() error {
	c.c.Purge()
	return nil
}
