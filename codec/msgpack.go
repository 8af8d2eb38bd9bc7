package codec

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack serializes values with vmihailenco/msgpack/v5. The zero value is
// ready to use. Fields without a `msgpack` tag fall back to their `json` tag,
// so a type cached with JSON switches codecs without retagging.
type Msgpack[V any] struct {
	// Tag replaces "json" as the fallback struct tag. "-" disables the fallback.
	Tag string
	// Strict rejects map keys that do not match a field of V and trailing bytes.
	Strict bool
}

var _ Codec[struct{}] = Msgpack[struct{}]{}

func (c Msgpack[V]) fallbackTag() string {
	switch c.Tag {
	case "":
		return "json"
	case "-":
		return ""
	}
	return c.Tag
}

func (c Msgpack[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if tag := c.fallbackTag(); tag != "" {
		enc.SetCustomStructTag(tag)
	}
	// sorted keys so two instances encoding the same map write the same bytes
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	r := bytes.NewReader(b)
	dec := msgpack.NewDecoder(r)
	if tag := c.fallbackTag(); tag != "" {
		dec.SetCustomStructTag(tag)
	}
	dec.DisallowUnknownFields(c.Strict)
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if c.Strict && r.Len() > 0 {
		var zero V
		return zero, fmt.Errorf("msgpack: %d trailing bytes after value", r.Len())
	}
	return v, nil
}
