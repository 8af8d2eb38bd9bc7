// Package nats is a pubsub.Channel over core NATS subjects.
//
// Core NATS is fire-and-forget, which matches invalidation semantics: a
// subscriber that is offline simply misses the message.
package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/unkn0wn-root/stash/pubsub"
)

var ErrNilConn = errors.New("nats channel: nil connection")

const defaultFlushTimeout = 5 * time.Second

type Channel struct {
	nc        *nats.Conn
	closeConn bool
}

var _ pubsub.Channel = (*Channel)(nil)

type Config struct {
	Conn      *nats.Conn
	CloseConn bool // drain and close the connection on Close
}

func New(cfg Config) (*Channel, error) {
	if cfg.Conn == nil {
		return nil, ErrNilConn
	}
	return &Channel{nc: cfg.Conn, closeConn: cfg.CloseConn}, nil
}

// ConnectConfig holds what Connect needs to dial a server.
type ConnectConfig struct {
	URL           string
	Name          string
	MaxReconnect  int
	ReconnectWait time.Duration
	// OnError is called for disconnects and async errors. May be nil.
	OnError func(msg string, err error)
}

// Connect dials NATS with reconnect handling and returns a Channel that owns
// the connection.
func Connect(cfg ConnectConfig) (*Channel, error) {
	report := cfg.OnError
	if report == nil {
		report = func(string, error) {}
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				report("nats disconnected", err)
			}
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			report("nats async error", err)
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Channel{nc: nc, closeConn: true}, nil
}

func (c *Channel) Publish(_ context.Context, topic string, payload []byte) error {
	if err := c.nc.Publish(topic, payload); err != nil {
		return fmt.Errorf("nats publish %q: %w", topic, err)
	}
	return nil
}

func (c *Channel) Subscribe(ctx context.Context, topic string, h pubsub.Handler) (pubsub.Subscription, error) {
	sub, err := c.nc.Subscribe(topic, func(m *nats.Msg) {
		h(m.Subject, m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %q: %w", topic, err)
	}
	// make sure the server has registered interest before returning
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}
	if err := c.nc.FlushWithContext(ctx); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("nats subscribe %q: flush: %w", topic, err)
	}
	return &subscription{sub: sub}, nil
}

func (c *Channel) Close(context.Context) error {
	if !c.closeConn || c.nc.IsClosed() {
		return nil
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
		return err
	}
	return nil
}

type subscription struct {
	sub  *nats.Subscription
	once sync.Once
	err  error
}

func (s *subscription) Unsubscribe(context.Context) error {
	s.once.Do(func() {
		if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
			s.err = err
		}
	})
	return s.err
}
