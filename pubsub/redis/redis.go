// Package redis is a pubsub.Channel over Redis PUBLISH/SUBSCRIBE.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/stash/pubsub"
)

var ErrNilClient = errors.New("redis channel: nil client")

type Channel struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ pubsub.Channel = (*Channel)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this channel exclusively owns the client
}

func New(cfg Config) (*Channel, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Channel{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (c *Channel) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := c.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %q: %w", topic, err)
	}
	return nil
}

// Subscribe blocks until Redis confirms the subscription, then delivers
// messages on a dedicated goroutine. go-redis reconnects and resubscribes on
// its own; messages published while disconnected are lost.
func (c *Channel) Subscribe(ctx context.Context, topic string, h pubsub.Handler) (pubsub.Subscription, error) {
	ps := c.rdb.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %q: %w", topic, err)
	}
	s := &subscription{ps: ps, done: make(chan struct{})}
	msgs := ps.Channel()
	go func() {
		defer close(s.done)
		for m := range msgs {
			h(m.Channel, []byte(m.Payload))
		}
	}()
	return s, nil
}

func (c *Channel) Close(context.Context) error {
	if c.closeClient {
		if err := c.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

type subscription struct {
	ps   *goredis.PubSub
	done chan struct{}
	once sync.Once
	err  error
}

func (s *subscription) Unsubscribe(ctx context.Context) error {
	s.once.Do(func() {
		s.err = s.ps.Close()
		select {
		case <-s.done:
		case <-ctx.Done():
			if s.err == nil {
				s.err = ctx.Err()
			}
		}
	})
	return s.err
}
