package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/dailyyoga/cachedkv/store"
	"github.com/google/uuid"
)

// Op is the durable store operation a mutation replays
type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpClear  Op = "clear"
)

// Mutation is a deferred durable store write. All arguments are bound when the
// mutation is created and it is never modified afterwards.
type Mutation struct {
	ID         string        `msgpack:"id"`
	Op         Op            `msgpack:"op"`
	Key        string        `msgpack:"key,omitempty"`
	Value      any           `msgpack:"value,omitempty"`
	TTL        time.Duration `msgpack:"ttl,omitempty"`
	EnqueuedAt time.Time     `msgpack:"enqueued_at"`
}

func newMutation(op Op) Mutation {
	return Mutation{
		ID:         uuid.NewString(),
		Op:         op,
		EnqueuedAt: time.Now(),
	}
}

// NewSet returns a mutation that stores value under key
func NewSet(key string, value any, ttl time.Duration) Mutation {
	m := newMutation(OpSet)
	m.Key = key
	m.Value = value
	m.TTL = ttl
	return m
}

// NewDelete returns a mutation that removes key
func NewDelete(key string) Mutation {
	m := newMutation(OpDelete)
	m.Key = key
	return m
}

// NewClear returns a mutation that clears the whole store
func NewClear() Mutation {
	return newMutation(OpClear)
}

// Apply runs the mutation against s
func (m Mutation) Apply(ctx context.Context, s store.Store) error {
	if s == nil {
		return ErrNilStore
	}
	switch m.Op {
	case OpSet:
		return s.Set(ctx, m.Key, m.Value, m.TTL)
	case OpDelete:
		return s.Delete(ctx, m.Key)
	case OpClear:
		return s.Clear(ctx)
	default:
		return ErrUnknownOp(m.Op)
	}
}

func (m Mutation) String() string {
	if m.Op == OpClear {
		return fmt.Sprintf("%s(%s)", m.Op, m.ID)
	}
	return fmt.Sprintf("%s %q (%s)", m.Op, m.Key, m.ID)
}
