package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dailyyoga/cachedkv/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// clearBatchSize is the number of keys scanned and deleted per round trip by Clear
const clearBatchSize = 500

type redisStore struct {
	*Emitter

	logger    logger.Logger
	client    *redis.Client
	namespace string
	ttl       time.Duration
	opTimeout time.Duration
	closed    atomic.Bool
}

// NewRedis connects to Redis and returns a store that owns the client
func NewRedis(log logger.Logger, cfg *RedisConfig) (Store, error) {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log = logger.OrNop(log)
	client := redis.NewClient(cfg.Options())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, ErrConnection("redis", err)
	}

	log.Info("redis store connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("namespace", cfg.Namespace),
	)

	return &redisStore{
		Emitter:   NewEmitter(log, "redis"),
		logger:    log,
		client:    client,
		namespace: cfg.Namespace,
		ttl:       cfg.TTL,
		opTimeout: cfg.OpTimeout,
	}, nil
}

func (r *redisStore) key(key string) string {
	return r.namespace + ":" + key
}

func (r *redisStore) opCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, r.opTimeout)
}

func (r *redisStore) Get(ctx context.Context, key string) (any, bool, error) {
	if r.closed.Load() {
		return nil, false, ErrClosed
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, err := decodeValue(key, data)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *redisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if ttl < 0 {
		return ErrInvalidTTL(ttl)
	}
	if ttl == 0 {
		ttl = r.ttl
	}
	data, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}

func (r *redisStore) Delete(ctx context.Context, key string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	return r.client.Del(ctx, r.key(key)).Err()
}

// Clear deletes every key in the namespace. It is not atomic: keys written
// while the scan runs may survive.
func (r *redisStore) Clear(ctx context.Context) error {
	if r.closed.Load() {
		return ErrClosed
	}

	var (
		cursor  uint64
		deleted int64
	)
	for {
		scanCtx, cancel := r.opCtx(ctx)
		keys, next, err := r.client.Scan(scanCtx, cursor, r.namespace+":*", clearBatchSize).Result()
		if err == nil && len(keys) > 0 {
			var n int64
			n, err = r.client.Del(scanCtx, keys...).Result()
			deleted += n
		}
		cancel()
		if err != nil {
			return err
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	r.logger.Debug("redis namespace cleared",
		zap.String("namespace", r.namespace),
		zap.Int64("deleted", deleted),
	)
	r.Emit(EventClear, Event{})
	return nil
}

func (r *redisStore) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := r.client.Close()
	r.Emit(EventClose, Event{Err: err})
	return err
}
