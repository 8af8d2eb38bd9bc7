package codec

// Bytes is an identity codec for []byte values. An empty slice is stored as
// zero bytes, which the remote tier reads as a miss: peers refetch it.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String stores Go strings as their raw UTF-8 bytes, without JSON quoting.
// Peers reading the key see the bare text.
//
// "" encodes to zero bytes, which the remote tier reads as a miss. The
// instance that fetched it keeps serving "" from its local tier; other
// instances call fetch again. Use JSON[string] when empty strings must be
// shared like any other value.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
