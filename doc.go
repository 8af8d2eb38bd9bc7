// Package stash implements a two-tier read-through cache.
//
// Every process keeps a bounded in-memory tier in front of a shared remote
// tier. A miss in both tiers runs the caller's fetch function under a
// distributed lock, so one process in the fleet computes a value while the
// others wait and then read it from the remote tier.
//
// Components:
//   - local.Cache[V]: per-process tier (LRU by default; Ristretto, BigCache).
//   - remote.Store: shared byte store with TTL (Redis, in-memory).
//   - lock.Locker: per-key fetch lock (Redis SET NX PX, in-process).
//   - pubsub.Channel: invalidation broadcast (Redis, NATS, in-process).
//   - codec.Codec[V]: V <-> []byte for the remote tier (JSON by default).
//
// Keys:
//
//	<key>       - remote value, TTL 10m by default
//	<key>:lock  - fetch lock, same TTL
//
// Read path:
//
//	local hit            -> return
//	remote hit           -> fill local, return
//	miss                 -> lock <key>:lock (5 attempts, 200ms apart, remote
//	                        rechecked between attempts) -> fetch -> remote,
//	                        local -> unlock
//
// Del evicts locally, deletes remotely, then publishes
// {"key":"<key>","sender":"<instance>"} on the invalidation topic so peers
// evict their local copy.
package stash
