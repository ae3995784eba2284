package cache

import (
	"fmt"
)

var (
	// ErrClosed is returned when operations are attempted on a closed cache
	ErrClosed = fmt.Errorf("cache: cache is closed")
)

// ErrInvalidConfig returns an error for an invalid configuration
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("cache: invalid config: %s", msg)
}

// ErrOpenStore wraps a failure to open one of the backends
func ErrOpenStore(role string, err error) error {
	return fmt.Errorf("cache: open %s store: %w", role, err)
}

// ErrTypeMismatch is returned by GetAs when the value cannot be converted
func ErrTypeMismatch(key string, want, got any) error {
	return fmt.Errorf("cache: value of key %q is %T, cannot convert to %T", key, got, want)
}

// ErrInvalidTarget is returned for an unknown event target
func ErrInvalidTarget(t Target) error {
	return fmt.Errorf("cache: invalid event target %d", t)
}
