package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

var errNilMessage = errors.New("protobuf: nil message")

// Protobuf serializes proto messages deterministically, so peers caching the
// same message write the same bytes. A message with every field unset encodes
// to zero bytes, which the remote tier reads as a miss.
type Protobuf[T proto.Message] struct {
	ctor      func() T
	marshal   proto.MarshalOptions
	unmarshal proto.UnmarshalOptions
}

// NewProtobuf panics if ctor is nil. ctor returns an empty message to decode into.
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	if ctor == nil {
		panic("codec: NewProtobuf requires a constructor")
	}
	return Protobuf[T]{
		ctor:    ctor,
		marshal: proto.MarshalOptions{Deterministic: true},
	}
}

// DiscardUnknown returns a copy that drops fields T does not declare instead
// of carrying them in the decoded message.
func (c Protobuf[T]) DiscardUnknown() Protobuf[T] {
	c.unmarshal.DiscardUnknown = true
	return c
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	if any(v) == nil || !v.ProtoReflect().IsValid() {
		return nil, errNilMessage
	}
	return c.marshal.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.ctor()
	err := c.unmarshal.Unmarshal(b, m)
	return m, err
}
