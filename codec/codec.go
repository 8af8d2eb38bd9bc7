// Package codec converts cached values to the bytes held by the remote tier.
//
// JSON is the default because peers in other languages read the same keys
// and expect text. Binary codecs are available for fleets that only run Go.
package codec

// Codec encodes/decodes values V to []byte for the remote tier.
// Decode must return an error for input it did not produce; stash surfaces
// that error to callers instead of treating the entry as missing.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
