// Package remote defines the shared key-value tier used by stash.
//
// A Store is reachable by every process in the fleet. Values are opaque bytes
// produced by a codec.Codec and must come back from Get exactly as they were
// passed to Set: no framing, no re-encoding. Peers written in other languages
// read the same keys, so the payload is whatever the codec emits (JSON text by
// default) and nothing else.
//
// The "<key>:lock" keyspace is owned by the lock manager. Stores must not be
// asked to hold data under that suffix.
package remote

import (
	"context"
	"time"
)

// Store is a shared byte store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	// Transport or server failures return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Exists reports whether key currently holds a live value.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases resources owned by the store.
	Close(ctx context.Context) error
}
