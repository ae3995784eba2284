// Package deadletter keeps mutations the sync engine gave up on, so a failed
// durable write is recorded somewhere instead of only being reported.
package deadletter

import (
	"context"
	"time"

	"github.com/dailyyoga/cachedkv/queue"
	"github.com/vmihailenco/msgpack/v5"
)

// Letter is a mutation that could not be applied to the durable store
type Letter struct {
	Mutation queue.Mutation `msgpack:"mutation"`
	// Error is the message of the last failure
	Error    string    `msgpack:"error"`
	Attempts int       `msgpack:"attempts"`
	FailedAt time.Time `msgpack:"failed_at"`
}

// NewLetter builds a letter for m failing with err after attempts tries
func NewLetter(m queue.Mutation, err error, attempts int) Letter {
	l := Letter{
		Mutation: m,
		Attempts: attempts,
		FailedAt: time.Now(),
	}
	if err != nil {
		l.Error = err.Error()
	}
	return l
}

// Sink receives dead letters
type Sink interface {
	Put(ctx context.Context, l Letter) error
	Close() error
}

// Encode serializes l with msgpack
func Encode(l Letter) ([]byte, error) {
	data, err := msgpack.Marshal(&l)
	if err != nil {
		return nil, ErrCodec(err)
	}
	return data, nil
}

// Decode parses a letter produced by Encode
func Decode(data []byte) (Letter, error) {
	var l Letter
	if err := msgpack.Unmarshal(data, &l); err != nil {
		return Letter{}, ErrCodec(err)
	}
	return l, nil
}
