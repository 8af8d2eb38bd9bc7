// Package keys derives storage keys and log-safe key forms.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
)

// LockSuffix separates lock-keys from data keys in the shared keyspace.
const LockSuffix = ":lock"

// Lock returns the lock-key guarding the fetch for key.
func Lock(key string) string { return key + LockSuffix }

// Redact returns a short stable digest of key (first 8 bytes of SHA-256, hex)
// for logs that must not carry raw cache keys.
func Redact(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
