package stash

import "time"

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking: they run on the Get/Del
// path and on the invalidation delivery goroutine. Wrap slow sinks with
// hooks/async.
type Hooks interface {
	// Get was served from the local tier.
	LocalHit(key string)
	// Get was served from the remote tier and copied into the local tier.
	RemoteHit(key string)
	// fetch ran under the lock. err is the fetch error, if any.
	Fetched(key string, took time.Duration, err error)

	// A lock attempt failed; attempt counts from 1.
	LockContended(key string, attempt int)
	// The attempt ceiling was reached and Get failed.
	LockExhausted(key string, attempts int, err error)

	// A remote value could not be decoded.
	DecodeFailed(key string, err error)

	// A peer's invalidation evicted key from the local tier.
	InvalidationReceived(key string)
	// An invalidation payload was discarded.
	// reason ∈ {"foreign_topic", "malformed", "empty_key"}
	InvalidationDropped(reason string)
	// Del could not broadcast the invalidation for key.
	PublishFailed(key string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) LocalHit(string)                      {}
func (NopHooks) RemoteHit(string)                     {}
func (NopHooks) Fetched(string, time.Duration, error) {}
func (NopHooks) LockContended(string, int)            {}
func (NopHooks) LockExhausted(string, int, error)     {}
func (NopHooks) DecodeFailed(string, error)           {}
func (NopHooks) InvalidationReceived(string)          {}
func (NopHooks) InvalidationDropped(string)           {}
func (NopHooks) PublishFailed(string, error)          {}
