// Package store defines the backend adapter contract used by the write-behind
// cache, plus adapters for an in-process map, Redis and MySQL.
//
// An adapter is an opaque key-value backend: it answers Get/Set/Delete/Clear
// and publishes named events (at least "error") to subscribed listeners.
// The same contract is used for the durable store and for the cache.
package store

import (
	"context"
	"time"
)

// Event names published by the adapters and the sync engine
const (
	EventError = "error"
	EventClear = "clear"
	EventClose = "close"
)

// Event is delivered to listeners
type Event struct {
	// Name is the event name the listener subscribed to
	Name string
	// Key is the affected key, empty for store-wide events
	Key string
	// Err is set for error events
	Err error
	// Data carries event specific payload
	Data any
}

// Listener receives events; it is called synchronously by Emit
type Listener func(Event)

// ListenerID identifies a subscription, it is returned by On and accepted by Off
type ListenerID uint64

// Notifier is the event side of an adapter
type Notifier interface {
	// On subscribes fn to event and returns a handle for Off
	On(event string, fn Listener) ListenerID
	// Off removes the subscription, unknown ids are ignored
	Off(event string, id ListenerID)
	// Emit delivers ev to every listener of event in subscription order
	Emit(event string, ev Event)
}

// Store is a key-value backend
type Store interface {
	Notifier

	// Get returns the value for key. found is false when the key is absent
	// or expired; a stored zero value is still found.
	Get(ctx context.Context, key string) (value any, found bool, err error)

	// Set stores value under key. A ttl of zero uses the adapter's default
	// lifetime, which may be "never expires".
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes key, deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Clear removes every key owned by the adapter
	Clear(ctx context.Context) error

	// Close releases the adapter's resources
	Close() error
}
