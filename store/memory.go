package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dailyyoga/cachedkv/logger"
	"github.com/dailyyoga/cachedkv/routine"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

type memoryEntry struct {
	value any
	// unix nanos, 0 means no expiry
	expiresAt int64
}

func (e memoryEntry) expired(now int64) bool {
	return e.expiresAt != 0 && now >= e.expiresAt
}

// memoryStore keeps values in process memory.
// Values are stored as given: for reference types the caller and the store
// share the same data, so stored values must be treated as read-only.
type memoryStore struct {
	*Emitter

	logger  logger.Logger
	ttl     time.Duration
	entries *xsync.MapOf[string, memoryEntry]

	runner routine.Runner
	cancel context.CancelFunc
	closed atomic.Bool
	once   sync.Once
}

// NewMemory creates an in-process store, a nil config uses the defaults
func NewMemory(log logger.Logger, cfg *MemoryConfig) (Store, error) {
	if cfg == nil {
		cfg = DefaultMemoryConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log = logger.OrNop(log)
	ctx, cancel := context.WithCancel(context.Background())
	m := &memoryStore{
		Emitter: NewEmitter(log, "memory"),
		logger:  log,
		ttl:     cfg.TTL,
		entries: xsync.NewMapOf[string, memoryEntry](),
		runner:  routine.New(log),
		cancel:  cancel,
	}

	if cfg.CleanupInterval > 0 {
		m.runner.GoNamed(ctx, "memory-janitor", func(ctx context.Context) {
			ticker := time.NewTicker(cfg.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					m.purgeExpired()
				case <-ctx.Done():
					return
				}
			}
		})
	}
	return m, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (any, bool, error) {
	if m.closed.Load() {
		return nil, false, ErrClosed
	}
	e, ok := m.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired(time.Now().UnixNano()) {
		m.entries.Compute(key, func(cur memoryEntry, loaded bool) (memoryEntry, bool) {
			// only drop the entry we saw, a concurrent Set may have replaced it.
			// A missing key must stay missing, keeping the zero entry would make it live forever.
			return cur, !loaded || cur.expiresAt == e.expiresAt
		})
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if ttl < 0 {
		return ErrInvalidTTL(ttl)
	}
	if ttl == 0 {
		ttl = m.ttl
	}
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl).UnixNano()
	}
	m.entries.Store(key, e)
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.entries.Delete(key)
	return nil
}

func (m *memoryStore) Clear(_ context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.entries.Clear()
	m.Emit(EventClear, Event{})
	return nil
}

func (m *memoryStore) Close() error {
	m.once.Do(func() {
		m.closed.Store(true)
		m.cancel()
		m.runner.Wait()
		m.entries.Clear()
		m.Emit(EventClose, Event{})
	})
	return nil
}

func (m *memoryStore) purgeExpired() {
	now := time.Now().UnixNano()
	purged := 0
	m.entries.Range(func(key string, e memoryEntry) bool {
		if e.expired(now) {
			m.entries.Compute(key, func(cur memoryEntry, loaded bool) (memoryEntry, bool) {
				if !loaded {
					return cur, true
				}
				drop := cur.expired(now)
				if drop {
					purged++
				}
				return cur, drop
			})
		}
		return true
	})
	if purged > 0 {
		m.logger.Debug("purged expired entries", zap.Int("count", purged))
	}
}
