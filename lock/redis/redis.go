// Package redis implements lock.Locker with single-instance Redis locks:
// SET key token NX PX ttl to acquire, and a compare-and-delete script to
// release so an owner whose lock expired cannot free someone else's.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/stash/lock"
)

var ErrNilClient = errors.New("redis locker: nil client")

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ lock.Locker = (*Locker)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this locker exclusively owns the client
}

func New(cfg Config) (*Locker, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Locker{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Lock, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("redis lock %q: ttl must be positive", key)
	}
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %q: %w", key, err)
	}
	if !ok {
		return nil, lock.ErrNotObtained
	}
	return &held{rdb: l.rdb, key: key, token: token}, nil
}

func (l *Locker) Close(context.Context) error {
	if l.closeClient {
		if err := l.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

type held struct {
	rdb   goredis.UniversalClient
	key   string
	token string
}

func (h *held) Key() string { return h.key }

func (h *held) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, h.rdb, []string{h.key}, h.token).Int64()
	if err != nil {
		return fmt.Errorf("redis unlock %q: %w", h.key, err)
	}
	if n == 0 {
		return lock.ErrNotHeld
	}
	return nil
}
