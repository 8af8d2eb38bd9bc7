// Package memory is an in-process pubsub.Channel.
//
// All Channels created from the same Hub see each other's messages, which
// lets tests and single-process deployments run several Stash instances as
// if they were separate processes. Delivery is synchronous: Publish returns
// after every subscriber's handler has run.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/unkn0wn-root/stash/pubsub"
)

// ErrClosed is returned when publishing or subscribing on a closed Channel.
var ErrClosed = errors.New("memory channel: closed")

type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscription)}
}

// Channel returns a new endpoint on the hub.
func (h *Hub) Channel() *Channel {
	return &Channel{hub: h}
}

func (h *Hub) publish(topic string, payload []byte) {
	h.mu.RLock()
	targets := make([]*subscription, 0, len(h.subs))
	for _, s := range h.subs {
		if s.topic == topic {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.deliver(topic, payload)
	}
}

func (h *Hub) add(s *subscription) {
	h.mu.Lock()
	h.nextID++
	s.id = h.nextID
	h.subs[s.id] = s
	h.mu.Unlock()
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

type Channel struct {
	hub    *Hub
	mu     sync.Mutex
	closed bool
	owned  []*subscription
}

var _ pubsub.Channel = (*Channel)(nil)

func (c *Channel) Publish(_ context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	c.hub.publish(topic, cp)
	return nil
}

func (c *Channel) Subscribe(_ context.Context, topic string, h pubsub.Handler) (pubsub.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	s := &subscription{hub: c.hub, topic: topic, h: h}
	c.hub.add(s)
	c.owned = append(c.owned, s)
	return s, nil
}

// Close unsubscribes everything created through this Channel.
func (c *Channel) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	owned := c.owned
	c.owned = nil
	c.mu.Unlock()

	for _, s := range owned {
		_ = s.Unsubscribe(ctx)
	}
	return nil
}

type subscription struct {
	hub   *Hub
	id    uint64
	topic string
	h     pubsub.Handler

	mu     sync.RWMutex // held for reading while a handler runs
	closed bool
}

func (s *subscription) deliver(topic string, payload []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	s.h(topic, payload)
}

func (s *subscription) Unsubscribe(context.Context) error {
	s.hub.remove(s.id)
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
