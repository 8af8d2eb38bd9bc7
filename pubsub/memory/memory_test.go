package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) handle(topic string, payload []byte) {
	r.mu.Lock()
	r.got = append(r.got, topic+"="+string(payload))
	r.mu.Unlock()
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestHubFansOutByTopic(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	a, b := hub.Channel(), hub.Channel()

	var ra, rb recorder
	_, err := a.Subscribe(ctx, "inv", ra.handle)
	require.NoError(t, err)
	_, err = b.Subscribe(ctx, "inv", rb.handle)
	require.NoError(t, err)
	_, err = b.Subscribe(ctx, "other", rb.handle)
	require.NoError(t, err)

	require.NoError(t, a.Publish(ctx, "inv", []byte("k1")))
	require.NoError(t, b.Publish(ctx, "other", []byte("k2")))

	assert.Equal(t, []string{"inv=k1"}, ra.messages())
	assert.ElementsMatch(t, []string{"inv=k1", "other=k2"}, rb.messages())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	c := hub.Channel()

	var r recorder
	sub, err := c.Subscribe(ctx, "inv", r.handle)
	require.NoError(t, err)
	require.NoError(t, sub.Unsubscribe(ctx))
	require.NoError(t, sub.Unsubscribe(ctx))

	require.NoError(t, c.Publish(ctx, "inv", []byte("k")))
	assert.Empty(t, r.messages())
}

func TestClosedChannelRejectsUse(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	c := hub.Channel()
	peer := hub.Channel()

	var r recorder
	_, err := c.Subscribe(ctx, "inv", r.handle)
	require.NoError(t, err)
	require.NoError(t, c.Close(ctx))
	require.NoError(t, c.Close(ctx))

	assert.ErrorIs(t, c.Publish(ctx, "inv", []byte("k")), ErrClosed)
	_, err = c.Subscribe(ctx, "inv", r.handle)
	assert.ErrorIs(t, err, ErrClosed)

	// subscriptions made through the closed channel are gone
	require.NoError(t, peer.Publish(ctx, "inv", []byte("k")))
	assert.Empty(t, r.messages())
}

func TestPublishCopiesPayload(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	c := hub.Channel()

	var seen []byte
	_, err := c.Subscribe(ctx, "inv", func(_ string, p []byte) { seen = p })
	require.NoError(t, err)

	buf := []byte("abc")
	require.NoError(t, c.Publish(ctx, "inv", buf))
	buf[0] = 'X'
	assert.Equal(t, "abc", string(seen))
}
