package syncer

import (
	"fmt"

	"github.com/dailyyoga/cachedkv/queue"
)

var (
	// ErrAlreadyStarted is returned by Start on a running engine
	ErrAlreadyStarted = fmt.Errorf("syncer: engine already started")

	// ErrStopped is returned when starting or feeding a stopped engine
	ErrStopped = fmt.Errorf("syncer: engine is stopped")

	// ErrNilStore is returned when the engine is created without a durable store
	ErrNilStore = fmt.Errorf("syncer: durable store is required")

	// ErrNilQueue is returned when the engine is created without a queue
	ErrNilQueue = fmt.Errorf("syncer: queue is required")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("syncer: invalid config: %s", msg)
}

// ErrTaskPanic is returned for a durable store call that panicked
func ErrTaskPanic(m queue.Mutation, r any) error {
	return fmt.Errorf("syncer: %s panicked: %v", m, r)
}

// ReplayError is carried by the "error" event emitted on the durable store
// when a mutation could not be applied. The mutation has been dropped.
type ReplayError struct {
	Mutation queue.Mutation
	Attempts int
	Err      error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("syncer: %s failed after %d attempt(s): %v", e.Mutation, e.Attempts, e.Err)
}

func (e *ReplayError) Unwrap() error {
	return e.Err
}
