// Package lock defines the time-bounded mutual exclusion used to collapse
// concurrent cache misses into a single fetch.
//
// A Lock's TTL is a safety net against a crashed owner, not a lease to be held
// for long: owners release as soon as the guarded work finishes.
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotObtained is returned by Acquire when another owner holds the key.
	ErrNotObtained = errors.New("lock: not obtained")
	// ErrNotHeld is returned by Release when the lock expired or changed owner.
	ErrNotHeld = errors.New("lock: not held")
)

// Locker grants exclusive locks on lock-keys.
// Implementations must be safe for concurrent use.
type Locker interface {
	// Acquire makes a single attempt. It never waits for the current owner.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
	Close(ctx context.Context) error
}

// Lock is a held lock.
type Lock interface {
	Key() string
	// Release gives the lock back. Releasing an expired lock returns ErrNotHeld.
	Release(ctx context.Context) error
}
