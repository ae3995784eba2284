package queue

import "fmt"

var (
	// ErrClosed is returned by Enqueue after Close
	ErrClosed = fmt.Errorf("queue: queue is closed")
)

// ErrUnknownOp is returned when a mutation carries an op Apply does not know
func ErrUnknownOp(op Op) error {
	return fmt.Errorf("queue: unknown mutation op %q", op)
}

// ErrNilStore is returned when a mutation is applied to a nil store
var ErrNilStore = fmt.Errorf("queue: nil store")
