package config

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/stash"
	"github.com/unkn0wn-root/stash/codec"
	"github.com/unkn0wn-root/stash/local"
	"github.com/unkn0wn-root/stash/local/bigcache"
	"github.com/unkn0wn-root/stash/local/lru"
	"github.com/unkn0wn-root/stash/local/ristretto"
	redislock "github.com/unkn0wn-root/stash/lock/redis"
	"github.com/unkn0wn-root/stash/pubsub"
	natspubsub "github.com/unkn0wn-root/stash/pubsub/nats"
	redispubsub "github.com/unkn0wn-root/stash/pubsub/redis"
	redisstore "github.com/unkn0wn-root/stash/remote/redis"
)

// Build assembles stash.Options for cfg: one go-redis client shared by the
// store, the locker and (for transport "redis") the invalidation channel.
// The store owns the client, so closing the Stash closes it.
func Build[V any](cfg *Config, log stash.Logger) (opts stash.Options[V], err error) {
	if err := cfg.Validate(); err != nil {
		return opts, err
	}
	if log == nil {
		log = stash.NopLogger{}
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer func() {
		if err != nil {
			_ = rdb.Close()
		}
	}()

	store, err := redisstore.New(redisstore.Config{Client: rdb, CloseClient: true})
	if err != nil {
		return opts, err
	}
	locker, err := redislock.New(redislock.Config{Client: rdb})
	if err != nil {
		return opts, err
	}

	cd, err := codecFor[V](cfg.Codec)
	if err != nil {
		return opts, err
	}
	if cfg.MaxDecodeBytes > 0 {
		cd = codec.Limit[V]{Inner: cd, MaxDecode: cfg.MaxDecodeBytes}
	}

	lc, err := localFor[V](cfg.LocalCache, cfg.MaxLocalEntries, cd)
	if err != nil {
		return opts, err
	}

	ch, err := channelFor(cfg, rdb, log)
	if err != nil {
		_ = lc.Close()
		return opts, err
	}

	return stash.Options[V]{
		Remote:          store,
		Local:           lc,
		MaxLocalEntries: cfg.MaxLocalEntries,
		Locker:          locker,
		Channel:         ch,
		Topic:           cfg.Topic,
		Codec:           cd,
		Logger:          log,
		TTL:             cfg.TTL,
		LockAttempts:    cfg.Lock.Attempts,
		LockBackoff:     cfg.Lock.Backoff,
	}, nil
}

func codecFor[V any](name string) (codec.Codec[V], error) {
	switch name {
	case "", "json":
		return codec.JSON[V]{}, nil
	case "msgpack":
		return codec.Msgpack[V]{}, nil
	case "cbor":
		return codec.NewCBOR[V](true)
	default:
		return nil, fmt.Errorf("config: unknown codec %q", name)
	}
}

func localFor[V any](kind string, maxEntries int, cd codec.Codec[V]) (local.Cache[V], error) {
	if maxEntries == 0 {
		maxEntries = local.DefaultMaxEntries
	}
	switch kind {
	case "", "lru":
		return lru.New[V](maxEntries)
	case "ristretto":
		return ristretto.New[V](ristretto.Config{MaxEntries: int64(maxEntries)})
	case "bigcache":
		// bigcache stores bytes, so it reuses the remote codec
		return bigcache.New[V](bigcache.Config{MaxEntriesInWindow: maxEntries}, cd)
	default:
		return nil, fmt.Errorf("config: unknown local_cache %q", kind)
	}
}

func channelFor(cfg *Config, rdb goredis.UniversalClient, log stash.Logger) (pubsub.Channel, error) {
	switch cfg.Invalidation.Transport {
	case "", "redis":
		return redispubsub.New(redispubsub.Config{Client: rdb})
	case "nats":
		ch, err := natspubsub.Connect(natspubsub.ConnectConfig{
			URL:           cfg.Invalidation.NATSURL,
			Name:          cfg.Invalidation.Name,
			MaxReconnect:  -1,
			ReconnectWait: 2 * time.Second,
			OnError: func(msg string, err error) {
				log.Warn(msg, stash.Fields{"err": err})
			},
		})
		if err != nil {
			return nil, err
		}
		return ch, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("config: unknown invalidation.transport %q", cfg.Invalidation.Transport)
	}
}

// Open is Load followed by Build and stash.New.
func Open[V any](path string, log stash.Logger) (stash.Stash[V], error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	opts, err := Build[V](cfg, log)
	if err != nil {
		return nil, err
	}
	s, err := stash.New[V](opts)
	if err != nil {
		closeOptions(opts)
		return nil, err
	}
	return s, nil
}

func closeOptions[V any](opts stash.Options[V]) {
	ctx := context.Background()
	if opts.Channel != nil {
		_ = opts.Channel.Close(ctx)
	}
	_ = opts.Locker.Close(ctx)
	_ = opts.Local.Close()
	_ = opts.Remote.Close(ctx)
}
