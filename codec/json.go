package codec

import (
	"bytes"
	"encoding/json"
	"errors"
)

// JSON is the default text codec. The zero value is ready to use.
type JSON[V any] struct {
	// Strict rejects object keys that do not map to a field of V.
	Strict bool
}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (c JSON[V]) Decode(b []byte) (V, error) {
	var v V
	if !c.Strict {
		err := json.Unmarshal(b, &v)
		return v, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	// a second value means the payload was not a single JSON document
	if dec.More() {
		var zero V
		return zero, errors.New("json: trailing data after value")
	}
	return v, nil
}
