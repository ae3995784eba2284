package cache

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dailyyoga/cachedkv/deadletter"
	"github.com/dailyyoga/cachedkv/kafka"
	"github.com/dailyyoga/cachedkv/logger"
	"github.com/dailyyoga/cachedkv/queue"
	"github.com/dailyyoga/cachedkv/store"
	"github.com/dailyyoga/cachedkv/syncer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type cachedStore struct {
	logger logger.Logger
	db     store.Store
	cache  store.Store
	engine *syncer.Engine
	sink   deadletter.Sink
	subs   *subscriptions

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Option configures optional collaborators
type Option func(*options)

type options struct {
	sink        deadletter.Sink
	middlewares []syncer.Middleware
}

// WithDeadLetterSink overrides the sink built from Config.DeadLetter
func WithDeadLetterSink(s deadletter.Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithSyncMiddleware wraps every durable store call made by the engine
func WithSyncMiddleware(mws ...syncer.Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mws...)
	}
}

// New builds both stores from cfg and starts the sync engine
func New(log logger.Logger, cfg *Config, opts ...Option) (CachedStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)

	db, err := cfg.DB.Open(log)
	if err != nil {
		return nil, ErrOpenStore("db", err)
	}
	c, err := openCache(log, &cfg.Cache)
	if err != nil {
		db.Close()
		return nil, ErrOpenStore("cache", err)
	}
	cs, err := newCachedStore(log, db, c, cfg, opts)
	if err != nil {
		db.Close()
		c.Close()
		return nil, err
	}
	return cs, nil
}

// NewFromURI opens the durable store from a connection string, see
// store.Open. The uri replaces cfg.DB; the other sections of cfg apply.
func NewFromURI(log logger.Logger, uri string, cfg *Config, opts ...Option) (CachedStore, error) {
	var merged Config
	if cfg != nil {
		merged = *cfg
	}
	merged.DB = DBConfig{URI: uri}
	if uri == "" {
		merged.DB = DBConfig{}
	}
	return New(log, &merged, opts...)
}

// NewWithStores wraps existing stores. cfg.DB and cfg.Cache are ignored; the
// returned CachedStore owns db and cache and closes them.
func NewWithStores(log logger.Logger, db, cache store.Store, cfg *Config, opts ...Option) (CachedStore, error) {
	if db == nil || cache == nil {
		return nil, ErrInvalidConfig("db and cache stores are required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newCachedStore(logger.OrNop(log), db, cache, cfg, opts)
}

func newCachedStore(log logger.Logger, db, c store.Store, cfg *Config, opts []Option) (*cachedStore, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sink := o.sink
	if sink == nil {
		var err error
		if sink, err = openSink(log, &cfg.DeadLetter); err != nil {
			return nil, err
		}
	}

	engineOpts := []syncer.Option{syncer.WithMiddleware(o.middlewares...)}
	if sink != nil {
		engineOpts = append(engineOpts, syncer.WithSink(sink))
	}
	engine, err := syncer.New(log, db, queue.New(0), &cfg.Sync, engineOpts...)
	if err != nil {
		closeSink(sink)
		return nil, err
	}
	if err := engine.Start(); err != nil {
		closeSink(sink)
		return nil, err
	}

	return &cachedStore{
		logger: log,
		db:     db,
		cache:  c,
		engine: engine,
		sink:   sink,
		subs:   newSubscriptions(),
	}, nil
}

// Open opens the selected durable store
func (cfg *DBConfig) Open(log logger.Logger) (store.Store, error) {
	if cfg.variants() > 1 {
		return nil, ErrInvalidConfig("db: only one of uri, memory, redis, mysql may be set")
	}
	switch {
	case cfg.URI != "":
		return store.Open(log, cfg.URI)
	case cfg.Redis != nil:
		return store.NewRedis(log, cfg.Redis)
	case cfg.MySQL != nil:
		return store.NewMySQL(log, cfg.MySQL)
	default:
		return store.NewMemory(log, cfg.Memory)
	}
}

func openCache(log logger.Logger, cfg *CacheConfig) (store.Store, error) {
	if cfg.Redis != nil {
		rc := *cfg.Redis
		if rc.TTL == 0 {
			rc.TTL = cfg.TTL
		}
		return store.NewRedis(log, &rc)
	}
	return store.NewMemory(log, &store.MemoryConfig{
		TTL:             cfg.TTL,
		CleanupInterval: cfg.CleanupInterval,
	})
}

func openSink(log logger.Logger, cfg *DeadLetterConfig) (deadletter.Sink, error) {
	switch cfg.Kind {
	case DeadLetterLog:
		return deadletter.NewLogSink(log), nil
	case DeadLetterKafka:
		producer, err := kafka.NewProducer(log, cfg.Kafka)
		if err != nil {
			return nil, err
		}
		return deadletter.NewKafkaSink(log, producer, cfg.Topic)
	default:
		return nil, nil
	}
}

func closeSink(s deadletter.Sink) {
	if s != nil {
		s.Close()
	}
}

func (c *cachedStore) Get(ctx context.Context, key string) (any, bool, error) {
	if c.closed.Load() {
		return nil, false, ErrClosed
	}
	value, found, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return value, true, nil
	}

	value, found, err = c.db.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	if err := c.cache.Set(ctx, key, value, 0); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *cachedStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.enqueue(queue.NewSet(key, value, ttl))
}

func (c *cachedStore) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.cache.Delete(ctx, key); err != nil {
		return err
	}
	return c.enqueue(queue.NewDelete(key))
}

func (c *cachedStore) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.cache.Clear(ctx); err != nil {
		return err
	}
	return c.enqueue(queue.NewClear())
}

func (c *cachedStore) enqueue(m queue.Mutation) error {
	err := c.engine.Enqueue(m)
	if errors.Is(err, syncer.ErrStopped) || errors.Is(err, queue.ErrClosed) {
		// Close won the race with this write
		return ErrClosed
	}
	return err
}

func (c *cachedStore) On(target Target, event string, fn store.Listener) store.ListenerID {
	return c.subs.add(c.notifiers(target), event, fn)
}

func (c *cachedStore) Off(target Target, event string, id store.ListenerID) {
	c.subs.remove(c.notifiers(target), event, id)
}

func (c *cachedStore) notifiers(target Target) []store.Notifier {
	switch target {
	case TargetDB:
		return []store.Notifier{c.db}
	case TargetCache:
		return []store.Notifier{c.cache}
	case TargetBoth:
		return []store.Notifier{c.db, c.cache}
	default:
		c.logger.Warn("ignoring subscription with invalid target", zap.Error(ErrInvalidTarget(target)))
		return nil
	}
}

func (c *cachedStore) Sync(ctx context.Context) int {
	return c.engine.Drain(ctx)
}

func (c *cachedStore) Pending() int {
	return c.engine.Pending()
}

func (c *cachedStore) WriteMetrics(w io.Writer) {
	c.engine.WriteMetrics(w)
}

func (c *cachedStore) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		stopErr := c.engine.Stop(ctx)
		if stopErr != nil {
			c.logger.Warn("closing with unsynced mutations",
				zap.Int("pending", c.engine.Pending()),
				zap.Error(stopErr),
			)
		}

		var g errgroup.Group
		g.Go(c.db.Close)
		g.Go(c.cache.Close)
		if c.sink != nil {
			g.Go(c.sink.Close)
		}
		c.closeErr = errors.Join(stopErr, g.Wait())
	})
	return c.closeErr
}
