package cache

import (
	"fmt"
	"time"

	"github.com/dailyyoga/cachedkv/kafka"
	"github.com/dailyyoga/cachedkv/store"
	"github.com/dailyyoga/cachedkv/syncer"
)

// Config holds configuration for the cached store
type Config struct {
	// DB selects the durable store
	DB DBConfig `mapstructure:"db"`
	// Cache configures the cache in front of it
	Cache CacheConfig `mapstructure:"cache"`
	// Sync configures the engine replaying writes to the durable store
	Sync syncer.Config `mapstructure:"sync"`
	// DeadLetter configures where mutations go after their last failed attempt
	DeadLetter DeadLetterConfig `mapstructure:"dead_letter"`
}

// DBConfig selects the durable store. At most one field may be set; when
// none is, an in-process store is used.
type DBConfig struct {
	// URI is a connection string, see store.Open
	URI    string              `mapstructure:"uri"`
	Memory *store.MemoryConfig `mapstructure:"memory"`
	Redis  *store.RedisConfig  `mapstructure:"redis"`
	MySQL  *store.MySQLConfig  `mapstructure:"mysql"`
}

func (c *DBConfig) variants() int {
	n := 0
	if c.URI != "" {
		n++
	}
	if c.Memory != nil {
		n++
	}
	if c.Redis != nil {
		n++
	}
	if c.MySQL != nil {
		n++
	}
	return n
}

// CacheConfig configures the cache backend
type CacheConfig struct {
	// TTL is the default lifetime of cache entries, used for writes without
	// a ttl and for entries repopulated from the durable store
	// default: 0 (entries never expire)
	TTL time.Duration `mapstructure:"ttl"`
	// CleanupInterval is how often the in-process cache purges expired entries
	// default: 1 * time.Minute
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// Redis puts the cache in Redis instead of process memory
	Redis *store.RedisConfig `mapstructure:"redis"`
}

// Dead-letter sink kinds
const (
	DeadLetterNone  = ""
	DeadLetterLog   = "log"
	DeadLetterKafka = "kafka"
)

// DeadLetterConfig configures the dead-letter sink
type DeadLetterConfig struct {
	// Kind is "", "log" or "kafka"
	// default: "" (failures are only reported through the error event and logs)
	Kind string `mapstructure:"kind"`
	// Topic receives the letters when Kind is "kafka"
	// default: "cachedkv.deadletter"
	Topic string                `mapstructure:"topic"`
	Kafka *kafka.ProducerConfig `mapstructure:"kafka"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			CleanupInterval: time.Minute,
		},
		Sync: *syncer.DefaultConfig(),
	}
}

// MergeDefaults merges the default configuration into zero fields
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Cache.CleanupInterval == 0 {
		c.Cache.CleanupInterval = defaults.Cache.CleanupInterval
	}
	c.Sync.MergeDefaults()
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DB.variants() > 1 {
		return ErrInvalidConfig("db: only one of uri, memory, redis, mysql may be set")
	}
	if c.Cache.TTL < 0 {
		return ErrInvalidConfig(fmt.Sprintf("cache.ttl: %v must be >= 0", c.Cache.TTL))
	}
	if c.Cache.CleanupInterval < 0 {
		return ErrInvalidConfig("cache.cleanup_interval cannot be negative")
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	switch c.DeadLetter.Kind {
	case DeadLetterNone, DeadLetterLog:
	case DeadLetterKafka:
		if c.DeadLetter.Kafka == nil {
			return ErrInvalidConfig("dead_letter.kafka is required when kind is kafka")
		}
	default:
		return ErrInvalidConfig(fmt.Sprintf("dead_letter.kind %q must be one of: log, kafka", c.DeadLetter.Kind))
	}
	return nil
}
