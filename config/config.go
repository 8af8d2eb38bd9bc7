// Package config loads deployment settings for a Stash from a YAML file,
// a .env file and STASH_* environment variables, and assembles
// stash.Options from them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "STASH"

type Config struct {
	TTL             time.Duration      `mapstructure:"ttl"`
	MaxLocalEntries int                `mapstructure:"max_local_entries"`
	LocalCache      string             `mapstructure:"local_cache"` // lru | ristretto | bigcache
	Codec           string             `mapstructure:"codec"`       // json | msgpack | cbor
	MaxDecodeBytes  int                `mapstructure:"max_decode_bytes"`
	Topic           string             `mapstructure:"topic"`
	Lock            LockConfig         `mapstructure:"lock"`
	Redis           RedisConfig        `mapstructure:"redis"`
	Invalidation    InvalidationConfig `mapstructure:"invalidation"`
}

type LockConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type InvalidationConfig struct {
	Transport string `mapstructure:"transport"` // redis | nats | none
	NATSURL   string `mapstructure:"nats_url"`
	Name      string `mapstructure:"name"`
}

// Load reads path (if non-empty) and the environment into a Config.
// envFiles are loaded with godotenv first; a missing .env is not an error.
// Variables already set in the process win over .env values.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("stash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Default Values
	v.SetDefault("ttl", 10*time.Minute)
	v.SetDefault("max_local_entries", 1000)
	v.SetDefault("local_cache", "lru")
	v.SetDefault("codec", "json")
	v.SetDefault("max_decode_bytes", 0)
	v.SetDefault("topic", "stash:invalidate")
	v.SetDefault("lock.attempts", 5)
	v.SetDefault("lock.backoff", 200*time.Millisecond)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 0)
	v.SetDefault("invalidation.transport", "redis")
	v.SetDefault("invalidation.nats_url", "nats://localhost:4222")
	v.SetDefault("invalidation.name", "stash")

	// Environment Variables: STASH_REDIS_ADDR, STASH_LOCK_ATTEMPTS, ...
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that New or Build would reject.
func (c *Config) Validate() error {
	switch {
	case c.TTL <= 0:
		return fmt.Errorf("config: ttl must be positive, got %s", c.TTL)
	case c.MaxLocalEntries < 0:
		return fmt.Errorf("config: max_local_entries must not be negative")
	case c.Lock.Attempts < 0:
		return fmt.Errorf("config: lock.attempts must not be negative")
	case c.Lock.Backoff < 0:
		return fmt.Errorf("config: lock.backoff must not be negative")
	case c.Redis.Addr == "":
		return fmt.Errorf("config: redis.addr is required")
	}
	if !oneOf(c.LocalCache, "lru", "ristretto", "bigcache") {
		return fmt.Errorf("config: unknown local_cache %q", c.LocalCache)
	}
	if !oneOf(c.Codec, "json", "msgpack", "cbor") {
		return fmt.Errorf("config: unknown codec %q", c.Codec)
	}
	if !oneOf(c.Invalidation.Transport, "redis", "nats", "none") {
		return fmt.Errorf("config: unknown invalidation.transport %q", c.Invalidation.Transport)
	}
	return nil
}

func oneOf(s string, allowed ...string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
