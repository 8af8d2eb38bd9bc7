package stash

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/stash/codec"
	"github.com/unkn0wn-root/stash/internal/keys"
	"github.com/unkn0wn-root/stash/local"
	"github.com/unkn0wn-root/stash/local/lru"
	"github.com/unkn0wn-root/stash/lock"
	locallock "github.com/unkn0wn-root/stash/lock/local"
	"github.com/unkn0wn-root/stash/pubsub"
	"github.com/unkn0wn-root/stash/remote"
	redisstore "github.com/unkn0wn-root/stash/remote/redis"
)

type stash[V any] struct {
	local   local.Cache[V]
	remote  remote.Store
	locker  lock.Locker
	channel pubsub.Channel
	sub     pubsub.Subscription
	codec   codec.Codec[V]
	log     Logger
	hooks   Hooks

	topic        string
	id           string
	ttl          time.Duration
	lockAttempts int
	lockBackoff  time.Duration

	// collapses concurrent misses of one process before they reach the locker
	flight singleflight.Group
	wait   func(ctx context.Context, d time.Duration) error

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func newStash[V any](opts Options[V]) (*stash[V], error) {
	rs := opts.Remote
	ownedRemote := false
	if rs == nil && opts.NewRemote != nil {
		var err error
		if rs, err = opts.NewRemote(); err != nil {
			return nil, fmt.Errorf("stash: remote factory: %w", err)
		}
		ownedRemote = true
	}
	if rs == nil {
		var err error
		if rs, err = defaultRemote(); err != nil {
			return nil, fmt.Errorf("stash: default remote: %w", err)
		}
		ownedRemote = true
	}

	s := &stash[V]{
		remote:  rs,
		locker:  opts.Locker,
		channel: opts.Channel,
		codec:   opts.Codec,
		log:     opts.Logger,
		hooks:   opts.Hooks,
		wait:    sleep,
	}

	// defaults
	s.topic = coalesce(opts.Topic, DefaultTopic)
	s.id = coalesce(opts.InstanceID, uuid.NewString())
	s.ttl = coalesce(opts.TTL, DefaultTTL)
	s.lockAttempts = coalesce(opts.LockAttempts, DefaultLockAttempts)
	s.lockBackoff = coalesce(opts.LockBackoff, DefaultLockBackoff)

	// Logger and Hooks may hold func types, which coalesce cannot compare.
	if s.log == nil {
		s.log = NopLogger{}
	}
	if s.hooks == nil {
		s.hooks = NopHooks{}
	}
	if s.codec == nil {
		s.codec = codec.JSON[V]{}
	}

	ownedLocal := false
	if opts.Local != nil {
		s.local = opts.Local
	} else {
		lc, err := lru.New[V](coalesce(opts.MaxLocalEntries, local.DefaultMaxEntries))
		if err != nil {
			if ownedRemote {
				_ = rs.Close(context.Background())
			}
			return nil, fmt.Errorf("stash: local cache: %w", err)
		}
		s.local = lc
		ownedLocal = true
	}

	if opts.Remote == nil && opts.NewRemote == nil {
		s.log.Warn("no remote store configured; using redis", Fields{"addr": DefaultRedisAddr})
	}

	if s.locker == nil {
		s.locker = locallock.New(s.ttl)
		s.log.Warn("no locker configured; fetch is serialized only within this process", nil)
	}

	if s.channel == nil {
		s.log.Warn("no invalidation channel configured; peers will not see deletions", nil)
		return s, nil
	}

	sub, err := s.channel.Subscribe(context.Background(), s.topic, s.onInvalidation)
	if err != nil {
		if ownedLocal {
			_ = s.local.Close()
		}
		if ownedRemote {
			_ = rs.Close(context.Background())
		}
		return nil, fmt.Errorf("stash: subscribe %q: %w", s.topic, err)
	}
	s.sub = sub
	s.log.Debug("subscribed to invalidations", Fields{"topic": s.topic, "instance": s.id})
	return s, nil
}

// defaultRemote is an owned Redis store on DefaultRedisAddr. go-redis dials
// lazily, so New succeeds even when nothing listens there yet.
func defaultRemote() (remote.Store, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: DefaultRedisAddr})
	return redisstore.New(redisstore.Config{Client: rdb, CloseClient: true})
}

func (s *stash[V]) Get(ctx context.Context, key string, fetch Fetcher[V]) (V, error) {
	var zero V
	if s.closed.Load() {
		return zero, ErrClosed
	}
	if v, ok := s.local.Get(key); ok {
		s.hooks.LocalHit(key)
		return v, nil
	}

	// The shared load must not die with whichever caller happened to start
	// it; each caller still stops waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (v any, err error) {
		// DoChan re-panics on a goroutine of its own, out of every caller's reach.
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("fetch panicked", Fields{"key": key, "panic": fmt.Sprint(r)})
				err = &panicError{value: r, stack: debug.Stack()}
			}
		}()
		return s.load(shared, key, fetch)
	})
	select {
	case r := <-ch:
		if pe, ok := r.Err.(*panicError); ok {
			panic(pe.value)
		}
		if r.Err != nil {
			return zero, r.Err
		}
		v, _ := r.Val.(V)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *stash[V]) load(ctx context.Context, key string, fetch Fetcher[V]) (V, error) {
	var zero V

	v, ok, err := s.lookup(ctx, key)
	if err != nil || ok {
		return v, err
	}

	a := acquirer[V]{
		key:         key,
		maxAttempts: s.lockAttempts,
		backoff:     s.lockBackoff,
		acquire: func(ctx context.Context) (lock.Lock, error) {
			return s.locker.Acquire(ctx, keys.Lock(key), s.ttl)
		},
		recheck: func(ctx context.Context) (V, bool, error) {
			return s.lookup(ctx, key)
		},
		wait: s.wait,
		onContended: func(attempt int, _ error) {
			s.hooks.LockContended(key, attempt)
		},
	}
	res, err := a.run(ctx)
	if err != nil {
		var lerr *LockAcquisitionError
		if errors.As(err, &lerr) {
			s.log.Warn("lock attempts exhausted", Fields{"key": key, "attempts": lerr.Attempts, "err": lerr.Err})
			s.hooks.LockExhausted(key, lerr.Attempts, lerr.Err)
		}
		return zero, err
	}
	if res.state == stateHit {
		return res.value, nil
	}
	return s.fetchLocked(ctx, key, res.lock, fetch)
}

// fetchLocked runs fetch while holding l. The release is deferred so it
// happens on every exit path, including a panicking fetch.
func (s *stash[V]) fetchLocked(ctx context.Context, key string, l lock.Lock, fetch Fetcher[V]) (V, error) {
	var zero V
	defer s.release(ctx, l)

	// the previous holder may have published between our miss and the acquire
	if v, ok, err := s.lookupRemote(ctx, key); err != nil || ok {
		return v, err
	}

	start := time.Now()
	v, err := fetch(ctx, key)
	s.hooks.Fetched(key, time.Since(start), err)
	if err != nil {
		return zero, err
	}

	b, err := s.codec.Encode(v)
	if err != nil {
		return zero, &EncodeError{Key: key, Err: err}
	}
	if err := s.remote.Set(ctx, key, b, s.ttl); err != nil {
		return zero, fmt.Errorf("stash: remote set %q: %w", key, err)
	}
	s.local.Set(key, v)
	return v, nil
}

func (s *stash[V]) release(ctx context.Context, l lock.Lock) {
	if err := l.Release(context.WithoutCancel(ctx)); err != nil {
		// the TTL frees it eventually
		s.log.Warn("lock release failed", Fields{"lock": l.Key(), "err": err})
	}
}

// lookup checks the local tier, then the remote tier.
func (s *stash[V]) lookup(ctx context.Context, key string) (V, bool, error) {
	if v, ok := s.local.Get(key); ok {
		return v, true, nil
	}
	return s.lookupRemote(ctx, key)
}

// lookupRemote reads key from the remote tier and copies a hit into the
// local tier. An empty remote value counts as a miss.
func (s *stash[V]) lookupRemote(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, ok, err := s.remote.Get(ctx, key)
	if err != nil {
		return zero, false, fmt.Errorf("stash: remote get %q: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return zero, false, nil
	}
	v, err := s.codec.Decode(raw)
	if err != nil {
		s.log.Error("remote value decode failed", Fields{"key": key, "err": err})
		s.hooks.DecodeFailed(key, err)
		return zero, false, &DecodeError{Key: key, Err: err}
	}
	s.local.Set(key, v)
	s.hooks.RemoteHit(key)
	return v, true, nil
}

func (s *stash[V]) Del(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.local.Delete(key)
	// later Gets must not join a load that started before the delete
	s.flight.Forget(key)
	if err := s.remote.Del(ctx, key); err != nil {
		return fmt.Errorf("stash: remote del %q: %w", key, err)
	}
	s.publish(ctx, key)
	return nil
}

func (s *stash[V]) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		var errs []error
		if s.sub != nil {
			if err := s.sub.Unsubscribe(ctx); err != nil {
				errs = append(errs, fmt.Errorf("unsubscribe: %w", err))
			}
		}
		if s.channel != nil {
			if err := s.channel.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close channel: %w", err))
			}
		}
		if err := s.locker.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close locker: %w", err))
		}
		if err := s.remote.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close remote: %w", err))
		}
		if err := s.local.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close local: %w", err))
		}

		s.closeErr = errors.Join(errs...)
		if s.closeErr != nil {
			s.log.Error("stash close", Fields{"err": s.closeErr})
		}
	})
	return s.closeErr
}

// panicError carries a panic out of the shared load so that Get can raise it
// again on each waiting caller's goroutine.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("stash: fetch panicked: %v\n\n%s", p.value, p.stack)
}
