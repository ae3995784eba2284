package deadletter

import "fmt"

var (
	// ErrSinkClosed is returned by Put after Close
	ErrSinkClosed = fmt.Errorf("deadletter: sink is closed")
)

// ErrInvalidConfig dead-letter configuration error
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("deadletter: invalid config: %s", msg)
}

// ErrCodec wraps a letter encoding or decoding failure
func ErrCodec(err error) error {
	return fmt.Errorf("deadletter: codec failed: %w", err)
}

// ErrReplay wraps a failure to re-apply a letter
func ErrReplay(id string, err error) error {
	return fmt.Errorf("deadletter: replay of %s failed: %w", id, err)
}
