package store

import (
	"fmt"
	"time"
)

var (
	// ErrClosed is returned when operations are attempted on a closed store
	ErrClosed = fmt.Errorf("store: store is closed")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("store: invalid config: %s", msg)
}

// ErrConnection backend connection error
func ErrConnection(backend string, err error) error {
	return fmt.Errorf("store: %s connection failed: %w", backend, err)
}

// ErrUnsupportedScheme is returned by Open for unknown URI schemes
func ErrUnsupportedScheme(scheme string) error {
	return fmt.Errorf("store: unsupported uri scheme %q (want memory, redis, rediss or mysql)", scheme)
}

// ErrInvalidURI wraps a URI parse failure
func ErrInvalidURI(uri string, err error) error {
	return fmt.Errorf("store: invalid uri %q: %w", uri, err)
}

// ErrCodec wraps a value encoding or decoding failure
func ErrCodec(key string, err error) error {
	return fmt.Errorf("store: codec failed for key %q: %w", key, err)
}

// ErrInvalidTTL returns an error for a negative ttl
func ErrInvalidTTL(ttl time.Duration) error {
	return fmt.Errorf("store: invalid ttl: %v (must be >= 0)", ttl)
}
