package codec

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type user struct {
	ID   string    `json:"id" msgpack:"id" cbor:"id"`
	Name string    `json:"name" msgpack:"name" cbor:"name"`
	Seen time.Time `json:"seen" msgpack:"seen" cbor:"seen"`
}

func TestJSONIsText(t *testing.T) {
	b, err := JSON[string]{}.Encode("x")
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(b))

	v, err := JSON[string]{}.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestJSONRejectsGarbage(t *testing.T) {
	_, err := JSON[map[string]int]{}.Decode([]byte("not-json"))
	assert.Error(t, err)

	_, err = JSON[int]{}.Decode([]byte(`1 2`))
	assert.Error(t, err)
}

func TestJSONStrict(t *testing.T) {
	in := []byte(`{"id":"1","name":"Ada","extra":true}`)

	v, err := JSON[user]{}.Decode(in)
	require.NoError(t, err)
	assert.Equal(t, "Ada", v.Name)

	_, err = JSON[user]{Strict: true}.Decode(in)
	assert.Error(t, err)

	_, err = JSON[user]{Strict: true}.Decode([]byte(`{"id":"1"} {"id":"2"}`))
	assert.Error(t, err)
}

func TestBinaryCodecsPreserveValues(t *testing.T) {
	want := user{ID: "1", Name: "Ada", Seen: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	codecs := map[string]Codec[user]{
		"msgpack":  Msgpack[user]{},
		"cbor":     MustCBOR[user](false),
		"cbor-det": MustCBOR[user](true),
	}
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			b, err := c.Encode(want)
			require.NoError(t, err)
			got, err := c.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.Name, got.Name)
			assert.True(t, want.Seen.Equal(got.Seen))

			_, err = c.Decode([]byte{0xff, 0x00, 0x13})
			assert.Error(t, err)
		})
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	require.NoError(t, err)
	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.GetValue())

	_, err = c.Encode(nil)
	assert.ErrorIs(t, err, errNilMessage)

	assert.Panics(t, func() { NewProtobuf[*wrapperspb.StringValue](nil) })
}

func TestProtobufIsDeterministic(t *testing.T) {
	c := NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} })
	fields := map[string]any{}
	for _, k := range strings.Split("a b c d e f g h i j k l", " ") {
		fields[k] = k
	}
	m, err := structpb.NewStruct(fields)
	require.NoError(t, err)

	first, err := c.Encode(m)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		b, err := c.Encode(m)
		require.NoError(t, err)
		require.Equal(t, first, b)
	}
}

func TestProtobufDiscardUnknown(t *testing.T) {
	b, err := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }).
		Encode(wrapperspb.String("extra"))
	require.NoError(t, err)

	keep := NewProtobuf(func() *emptypb.Empty { return &emptypb.Empty{} })
	got, err := keep.Decode(b)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ProtoReflect().GetUnknown())

	got, err = keep.DiscardUnknown().Decode(b)
	require.NoError(t, err)
	assert.Empty(t, got.ProtoReflect().GetUnknown())
	assert.Zero(t, proto.Size(got))
}

type jsonTagged struct {
	UserID string `json:"user_id"`
	Skip   string `json:"-"`
}

func TestMsgpackFallsBackToJSONTags(t *testing.T) {
	b, err := Msgpack[jsonTagged]{}.Encode(jsonTagged{UserID: "7", Skip: "x"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, msgpack.Unmarshal(b, &raw))
	assert.Equal(t, map[string]any{"user_id": "7"}, raw)

	got, err := Msgpack[jsonTagged]{}.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, jsonTagged{UserID: "7"}, got)

	b, err = Msgpack[jsonTagged]{Tag: "-"}.Encode(jsonTagged{UserID: "7"})
	require.NoError(t, err)
	raw = nil
	require.NoError(t, msgpack.Unmarshal(b, &raw))
	assert.Contains(t, raw, "UserID")
}

func TestMsgpackSortsMapKeys(t *testing.T) {
	c := Msgpack[map[string]int]{}
	m := map[string]int{}
	for i, k := range strings.Split("a b c d e f g h i j k l", " ") {
		m[k] = i
	}
	first, err := c.Encode(m)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		b, err := c.Encode(m)
		require.NoError(t, err)
		require.Equal(t, first, b)
	}
}

func TestMsgpackStrict(t *testing.T) {
	in, err := Msgpack[map[string]any]{}.Encode(map[string]any{"id": "1", "name": "Ada", "extra": true})
	require.NoError(t, err)

	v, err := Msgpack[user]{}.Decode(in)
	require.NoError(t, err)
	assert.Equal(t, "Ada", v.Name)

	_, err = Msgpack[user]{Strict: true}.Decode(in)
	assert.Error(t, err)

	ok, err := Msgpack[user]{}.Encode(user{ID: "1"})
	require.NoError(t, err)
	trailing := append(ok, 0x01)

	_, err = Msgpack[user]{}.Decode(trailing)
	assert.NoError(t, err)
	_, err = Msgpack[user]{Strict: true}.Decode(trailing)
	assert.ErrorContains(t, err, "trailing bytes")
}

func TestLimit(t *testing.T) {
	c := Limit[string]{Inner: JSON[string]{}, MaxDecode: 8}

	b, err := c.Encode("abc")
	require.NoError(t, err)
	v, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	_, err = c.Decode([]byte(`"` + strings.Repeat("a", 16) + `"`))
	assert.ErrorContains(t, err, "payload too large")

	unlimited := Limit[string]{Inner: JSON[string]{}}
	_, err = unlimited.Decode([]byte(`"` + strings.Repeat("a", 1024) + `"`))
	assert.NoError(t, err)
}

func TestRawCodecs(t *testing.T) {
	b, _ := String{}.Encode("plain")
	assert.Equal(t, "plain", string(b))
	s, _ := String{}.Decode([]byte("plain"))
	assert.Equal(t, "plain", s)

	raw := []byte{1, 2, 3}
	out, _ := Bytes{}.Encode(raw)
	assert.Equal(t, raw, out)

	// the remote tier treats these as absent
	empty, _ := String{}.Encode("")
	assert.Empty(t, empty)
	none, _ := Bytes{}.Encode([]byte{})
	assert.Empty(t, none)
}
