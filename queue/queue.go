// Package queue holds durable store mutations waiting to be replayed.
//
// The queue is unbounded: while the durable store is unavailable or slower
// than the write rate it grows without limit, size deployments accordingly.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/smallnest/chanx"
)

// defaultInitCapacity is the size of the input and output channels, the
// overflow lives in an internal ring buffer
const defaultInitCapacity = 64

// Queue is an unbounded FIFO of mutations. Any number of goroutines may
// Enqueue; a single consumer dequeues.
type Queue struct {
	mu      sync.RWMutex
	closed  bool
	ch      *chanx.UnboundedChan[Mutation]
	pending atomic.Int64
}

// New creates an empty queue. initCapacity <= 0 uses a default.
func New(initCapacity int) *Queue {
	if initCapacity <= 0 {
		initCapacity = defaultInitCapacity
	}
	return &Queue{
		ch: chanx.NewUnboundedChan[Mutation](context.Background(), initCapacity),
	}
}

// Enqueue appends m to the tail
func (q *Queue) Enqueue(m Mutation) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	// counted before the send so a consumer never misses it
	q.pending.Add(1)
	q.ch.In <- m
	return nil
}

// Len returns the number of pending mutations
func (q *Queue) Len() int {
	return int(q.pending.Load())
}

// TryDequeue removes the head of the queue. It returns false when the queue
// is empty or drained after Close, or when ctx is done.
func (q *Queue) TryDequeue(ctx context.Context) (Mutation, bool) {
	if q.pending.Load() == 0 {
		return Mutation{}, false
	}
	// counted, possibly still moving through the internal buffer
	select {
	case m, ok := <-q.ch.Out:
		if ok {
			q.pending.Add(-1)
		}
		return m, ok
	case <-ctx.Done():
		return Mutation{}, false
	}
}

// Close stops accepting mutations. Mutations already enqueued can still be
// dequeued. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch.In)
}

// Closed reports whether Close has been called
func (q *Queue) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
