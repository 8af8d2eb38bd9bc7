// Package local defines the bounded in-process tier of stash.
//
// A Cache holds native values and is bounded by capacity only: nothing in
// stash expires local entries on a clock. Entries leave through capacity
// eviction, Del, or an invalidation message from a peer. Eviction order is
// up to the implementation.
package local

// DefaultMaxEntries bounds a local cache when no size is configured.
const DefaultMaxEntries = 1000

// Cache is a bounded key->value mapping. Lookups never block on I/O.
// Implementations must be safe for concurrent use.
type Cache[V any] interface {
	// Get reports presence explicitly: a stored zero value is a hit.
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string)
	Len() int
	Close() error
}
