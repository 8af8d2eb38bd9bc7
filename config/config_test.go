package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/stash"
	"github.com/unkn0wn-root/stash/codec"
	"github.com/unkn0wn-root/stash/local/bigcache"
	"github.com/unkn0wn-root/stash/local/ristretto"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "stash.yaml", "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.TTL)
	assert.Equal(t, 1000, cfg.MaxLocalEntries)
	assert.Equal(t, "lru", cfg.LocalCache)
	assert.Equal(t, "json", cfg.Codec)
	assert.Equal(t, "stash:invalidate", cfg.Topic)
	assert.Equal(t, 5, cfg.Lock.Attempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Lock.Backoff)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "redis", cfg.Invalidation.Transport)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, "stash.yaml", `
ttl: 90s
local_cache: ristretto
codec: msgpack
lock:
  attempts: 3
redis:
  addr: cache:6379
  db: 2
`)
	t.Setenv("STASH_REDIS_ADDR", "override:6379")
	t.Setenv("STASH_LOCK_BACKOFF", "50ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.TTL)
	assert.Equal(t, "ristretto", cfg.LocalCache)
	assert.Equal(t, "msgpack", cfg.Codec)
	assert.Equal(t, 3, cfg.Lock.Attempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Lock.Backoff)
	assert.Equal(t, "override:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadDotEnv(t *testing.T) {
	env := writeFile(t, ".env", "STASH_INVALIDATION_NAME=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("STASH_INVALIDATION_NAME") })

	cfg, err := Load(writeFile(t, "stash.yaml", "{}\n"), env)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Invalidation.Name)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeFile(t, "stash.yaml", "codec: xml\n"))
	assert.ErrorContains(t, err, `unknown codec "xml"`)

	_, err = Load(writeFile(t, "stash.yaml", "invalidation:\n  transport: kafka\n"))
	assert.ErrorContains(t, err, "invalidation.transport")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildLocalAndCodecKinds(t *testing.T) {
	mr := miniredis.RunT(t)
	base := Config{
		TTL:             time.Minute,
		MaxLocalEntries: 100,
		Codec:           "cbor",
		MaxDecodeBytes:  1 << 20,
		Redis:           RedisConfig{Addr: mr.Addr()},
		Invalidation:    InvalidationConfig{Transport: "none"},
	}

	for kind, want := range map[string]any{
		"ristretto": &ristretto.Cache[string]{},
		"bigcache":  &bigcache.Cache[string]{},
	} {
		t.Run(kind, func(t *testing.T) {
			cfg := base
			cfg.LocalCache = kind
			opts, err := Build[string](&cfg, nil)
			require.NoError(t, err)
			defer closeOptions(opts)

			assert.IsType(t, want, opts.Local)
			assert.IsType(t, codec.Limit[string]{}, opts.Codec)
			assert.Nil(t, opts.Channel)
		})
	}
}

func TestBuildEndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	cfg := &Config{
		TTL:             time.Minute,
		MaxLocalEntries: 10,
		LocalCache:      "lru",
		Codec:           "json",
		Topic:           "test:invalidate",
		Lock:            LockConfig{Attempts: 5, Backoff: 10 * time.Millisecond},
		Redis:           RedisConfig{Addr: mr.Addr()},
		Invalidation:    InvalidationConfig{Transport: "redis"},
	}

	newInstance := func() stash.Stash[string] {
		opts, err := Build[string](cfg, nil)
		require.NoError(t, err)
		s, err := stash.New[string](opts)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close(ctx) })
		return s
	}
	a, b := newInstance(), newInstance()

	fetches := 0
	fetch := func(context.Context, string) (string, error) {
		fetches++
		return "v1", nil
	}
	v, err := a.Get(ctx, "greeting", fetch)
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	raw, err := mr.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, raw)
	assert.Equal(t, time.Minute, mr.TTL("greeting"))
	assert.False(t, mr.Exists("greeting:lock"))

	v, err = b.Get(ctx, "greeting", fetch)
	require.NoError(t, err)
	assert.Equal(t, "v1", v)
	assert.Equal(t, 1, fetches)

	require.NoError(t, a.Del(ctx, "greeting"))
	assert.False(t, mr.Exists("greeting"))

	// b drops its local copy once the message arrives
	assert.Eventually(t, func() bool {
		v, err := b.Get(ctx, "greeting", func(context.Context, string) (string, error) {
			return "v2", nil
		})
		return err == nil && v == "v2"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBuildRejectsInvalid(t *testing.T) {
	_, err := Build[string](&Config{}, nil)
	assert.Error(t, err)
}
