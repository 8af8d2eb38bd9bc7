// Package pubsub defines the fan-out transport that carries invalidation
// messages between processes.
//
// Delivery is whatever the transport gives: typically at-least-once while
// connected, unordered across subscribers, and lossy across disconnects.
// Receivers must tolerate duplicates and garbage.
package pubsub

import "context"

// Handler receives one message. topic is the topic the transport delivered
// on, so a handler attached to a multiplexed subscription can filter.
// Handlers must not block for long; they run on the transport's delivery goroutine.
type Handler func(topic string, payload []byte)

// Channel publishes to and subscribes on named topics.
type Channel interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error)
	Close(ctx context.Context) error
}

// Subscription is a live subscription. Unsubscribe is idempotent and waits
// for in-flight handler calls to return.
type Subscription interface {
	Unsubscribe(ctx context.Context) error
}
