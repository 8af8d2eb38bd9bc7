package stash

import "time"

const (
	DefaultTTL          = 10 * time.Minute
	DefaultLockAttempts = 5
	DefaultLockBackoff  = 200 * time.Millisecond
	DefaultTopic        = "stash:invalidate"
	DefaultRedisAddr    = "localhost:6379"
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
