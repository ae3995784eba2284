package cache

import (
	"context"

	"github.com/vmihailenco/msgpack/v5"
)

// GetAs returns the value of key as T. Values that came back from a
// serializing backend (maps, narrowed integers) are converted through msgpack.
func GetAs[T any](ctx context.Context, c CachedStore, key string) (T, bool, error) {
	var zero T
	val, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return zero, false, err
	}
	if typed, ok := val.(T); ok {
		return typed, true, nil
	}

	data, err := msgpack.Marshal(val)
	if err != nil {
		return zero, false, ErrTypeMismatch(key, zero, val)
	}
	var result T
	if err := msgpack.Unmarshal(data, &result); err != nil {
		return zero, false, ErrTypeMismatch(key, zero, val)
	}
	return result, true, nil
}
