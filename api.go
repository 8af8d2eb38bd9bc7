package stash

import (
	"context"
	"time"

	"github.com/unkn0wn-root/stash/codec"
	"github.com/unkn0wn-root/stash/local"
	"github.com/unkn0wn-root/stash/lock"
	"github.com/unkn0wn-root/stash/pubsub"
	"github.com/unkn0wn-root/stash/remote"
)

// Fetcher computes the value for key on a double miss. Its ctx carries the
// values of the Get that started the load but not its cancellation, since
// other callers may be waiting on the same result. It should bound its own
// run time: if it outlives the lock TTL another process may run it too.
type Fetcher[V any] func(ctx context.Context, key string) (V, error)

// Stash is a two-tier read-through cache. V is the caller's value type.
type Stash[V any] interface {
	// Get returns the cached value for key, or runs fetch once across the
	// fleet and caches its result in both tiers.
	Get(ctx context.Context, key string, fetch Fetcher[V]) (V, error)

	// Del evicts key locally, deletes it remotely and tells peers to evict it.
	// Only a failed remote delete is returned.
	Del(ctx context.Context, key string) error

	// Close unsubscribes from invalidations and releases every collaborator.
	Close(ctx context.Context) error
}

// Options configure a Stash. Every field has a default.
type Options[V any] struct {
	// Remote tier. If nil, NewRemote is called once during New; if both are
	// nil, a Redis store on DefaultRedisAddr is used.
	Remote    remote.Store
	NewRemote func() (remote.Store, error)

	Local           local.Cache[V] // nil => LRU bounded by MaxLocalEntries
	MaxLocalEntries int            // 0 => 1000

	// Locker guards fetch. nil => an in-process locker, which protects only
	// goroutines of this process; use lock/redis for a fleet.
	Locker lock.Locker

	// Channel carries invalidations. nil disables broadcast and subscription.
	Channel    pubsub.Channel
	Topic      string // "" => DefaultTopic
	InstanceID string // "" => random; identifies this instance's own messages

	Codec  codec.Codec[V] // nil => codec.JSON[V]
	Logger Logger         // nil => NopLogger
	Hooks  Hooks          // nil => NopHooks

	TTL          time.Duration // remote entry and lock TTL; 0 => 10m
	LockAttempts int           // 0 => 5
	LockBackoff  time.Duration // 0 => 200ms
}

// New builds a Stash and subscribes it to invalidations.
// The Stash owns every collaborator passed in Options and closes them in Close.
func New[V any](opts Options[V]) (Stash[V], error) {
	return newStash[V](opts)
}
