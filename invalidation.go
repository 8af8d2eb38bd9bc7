package stash

import (
	"context"
	"encoding/json"
	"fmt"
)

// invalidation is the broadcast payload. Sender lets an instance skip its
// own messages; peers that do not set it are still honored.
type invalidation struct {
	Key    string `json:"key"`
	Sender string `json:"sender,omitempty"`
}

func (s *stash[V]) publish(ctx context.Context, key string) {
	if s.channel == nil {
		return
	}
	payload, err := json.Marshal(invalidation{Key: key, Sender: s.id})
	if err == nil {
		err = s.channel.Publish(ctx, s.topic, payload)
	}
	if err != nil {
		// peers keep the stale entry until it leaves their LRU
		s.log.Warn("invalidation publish failed", Fields{"key": key, "topic": s.topic, "err": err})
		s.hooks.PublishFailed(key, err)
	}
}

// onInvalidation is the subscription handler. It never returns an error and
// never panics: a bad message is logged and dropped so delivery continues.
func (s *stash[V]) onInvalidation(topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("invalidation handler panic", Fields{"topic": topic, "panic": fmt.Sprint(r)})
		}
	}()

	if topic != s.topic {
		s.hooks.InvalidationDropped("foreign_topic")
		return
	}
	var msg invalidation
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.log.Debug("malformed invalidation", Fields{"topic": topic, "err": err})
		s.hooks.InvalidationDropped("malformed")
		return
	}
	if msg.Key == "" {
		s.hooks.InvalidationDropped("empty_key")
		return
	}
	if msg.Sender == s.id {
		return
	}
	if s.closed.Load() {
		return
	}

	s.local.Delete(msg.Key)
	s.flight.Forget(msg.Key)
	s.hooks.InvalidationReceived(msg.Key)
	s.log.Debug("invalidated", Fields{"key": msg.Key, "sender": msg.Sender})
}
