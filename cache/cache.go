// Package cache is a write-behind cache in front of a durable key-value store.
//
// Reads are served from the cache and fall back to the durable store on a
// miss, repopulating the cache. Writes update the cache synchronously and
// queue the same mutation for the durable store, where a background engine
// applies it later in FIFO order. Durable failures are never returned to the
// caller; subscribe to the "error" event of the durable store to see them.
package cache

import (
	"context"
	"io"
	"time"

	"github.com/dailyyoga/cachedkv/store"
)

// Target selects the backend(s) an event subscription applies to
type Target int

const (
	// TargetBoth subscribes to the durable store and the cache
	TargetBoth Target = iota
	// TargetDB subscribes to the durable store only
	TargetDB
	// TargetCache subscribes to the cache only
	TargetCache
)

func (t Target) String() string {
	switch t {
	case TargetBoth:
		return "both"
	case TargetDB:
		return "db"
	case TargetCache:
		return "cache"
	default:
		return "unknown"
	}
}

// CachedStore is the write-behind facade. It is safe for concurrent use.
type CachedStore interface {
	// Get returns the value of key from the cache, or from the durable store
	// on a cache miss. found distinguishes a missing key from a zero value.
	Get(ctx context.Context, key string) (value any, found bool, err error)

	// Set writes the cache and queues the durable write. A zero ttl uses the
	// backend's default lifetime.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes key from the cache and queues the durable delete
	Delete(ctx context.Context, key string) error

	// Clear empties the cache and queues a durable clear
	Clear(ctx context.Context) error

	// On subscribes fn to event on target and returns a handle for Off
	On(target Target, event string, fn store.Listener) store.ListenerID

	// Off removes the subscription id from target. Removing from TargetBoth
	// removes it wherever it was attached.
	Off(target Target, event string, id store.ListenerID)

	// Sync runs a drain pass now and returns the number of mutations
	// applied; 0 when a pass is already running
	Sync(ctx context.Context) int

	// Pending returns the number of queued durable mutations
	Pending() int

	// WriteMetrics writes sync metrics in Prometheus text format
	WriteMetrics(w io.Writer)

	// Close stops the engine, flushes pending mutations within ctx and closes
	// both stores. Later operations return ErrClosed.
	Close(ctx context.Context) error
}
