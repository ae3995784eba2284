package store

import (
	"crypto/tls"
	"time"

	"github.com/dailyyoga/cachedkv/db"
	"github.com/redis/go-redis/v9"
)

// MemoryConfig holds configuration for the in-process adapter
type MemoryConfig struct {
	// TTL is the lifetime applied when Set is called with a zero ttl
	// default: 0 (entries never expire)
	TTL time.Duration `mapstructure:"ttl"`
	// CleanupInterval is how often expired entries are purged in the background,
	// 0 disables the janitor and expired entries are only dropped on read
	// default: 1 * time.Minute
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DefaultMemoryConfig returns the default configuration for the in-process adapter
func DefaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		CleanupInterval: time.Minute,
	}
}

// Validate validates the configuration
func (c *MemoryConfig) Validate() error {
	if c.TTL < 0 {
		return ErrInvalidTTL(c.TTL)
	}
	if c.CleanupInterval < 0 {
		return ErrInvalidConfig("cleanup_interval cannot be negative")
	}
	return nil
}

// RedisConfig holds configuration for the Redis adapter
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// TLS dials with the system roots, set by rediss:// URIs
	TLS bool `mapstructure:"tls"`
	// default: 10
	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`
	// default: 5 * time.Second
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// Namespace prefixes every key as "namespace:key"; Clear only touches the namespace
	// default: "cachedkv"
	Namespace string `mapstructure:"namespace"`
	// TTL is the lifetime applied when Set is called with a zero ttl
	// default: 0 (keys never expire)
	TTL time.Duration `mapstructure:"ttl"`
	// OpTimeout bounds every command issued by the adapter
	// default: 5 * time.Second
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

// DefaultRedisConfig returns the default configuration for the Redis adapter
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:        "localhost:6379",
		PoolSize:    10,
		DialTimeout: 5 * time.Second,
		Namespace:   "cachedkv",
		OpTimeout:   5 * time.Second,
	}
}

// MergeDefaults merges the default configuration into zero fields
func (c *RedisConfig) MergeDefaults() *RedisConfig {
	defaults := DefaultRedisConfig()
	if c.PoolSize == 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.Namespace == "" {
		c.Namespace = defaults.Namespace
	}
	if c.OpTimeout == 0 {
		c.OpTimeout = defaults.OpTimeout
	}
	return c
}

// Validate validates the configuration
func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return ErrInvalidConfig("redis addr is required")
	}
	if c.DB < 0 {
		return ErrInvalidConfig("redis db cannot be negative")
	}
	if c.PoolSize < 0 {
		return ErrInvalidConfig("redis pool_size cannot be negative")
	}
	if c.MinIdleConns < 0 {
		return ErrInvalidConfig("redis min_idle_conns cannot be negative")
	}
	if c.MaxRetries < 0 {
		return ErrInvalidConfig("redis max_retries cannot be negative")
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.OpTimeout < 0 {
		return ErrInvalidConfig("redis timeouts cannot be negative")
	}
	if c.TTL < 0 {
		return ErrInvalidTTL(c.TTL)
	}
	return nil
}

// Options converts the configuration into go-redis client options
func (c *RedisConfig) Options() *redis.Options {
	opts := &redis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
	if c.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// MySQLConfig holds configuration for the MySQL adapter
type MySQLConfig struct {
	db.Config `mapstructure:",squash"`
	// Table is the key-value table, created on open when missing
	// default: "cachedkv_entries"
	Table string `mapstructure:"table"`
	// TTL is the lifetime applied when Set is called with a zero ttl
	// default: 0 (rows never expire)
	TTL time.Duration `mapstructure:"ttl"`
}

// MergeDefaults merges the default configuration into zero fields
func (c *MySQLConfig) MergeDefaults() *MySQLConfig {
	c.Config.MergeDefaults()
	if c.Table == "" {
		c.Table = "cachedkv_entries"
	}
	return c
}

// Validate validates the configuration
func (c *MySQLConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.TTL < 0 {
		return ErrInvalidTTL(c.TTL)
	}
	return nil
}
