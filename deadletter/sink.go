package deadletter

import (
	"context"
	"slices"
	"sync"

	"github.com/dailyyoga/cachedkv/logger"
	"go.uber.org/zap"
)

type logSink struct {
	logger logger.Logger
}

// NewLogSink returns a sink that only logs letters; the mutation is lost
func NewLogSink(log logger.Logger) Sink {
	return &logSink{logger: logger.OrNop(log)}
}

func (s *logSink) Put(_ context.Context, l Letter) error {
	s.logger.Error("mutation dropped",
		zap.String("id", l.Mutation.ID),
		zap.String("op", string(l.Mutation.Op)),
		zap.String("key", l.Mutation.Key),
		zap.Int("attempts", l.Attempts),
		zap.String("error", l.Error),
	)
	return nil
}

func (s *logSink) Close() error {
	return nil
}

// MemorySink keeps letters in process memory, oldest first
type MemorySink struct {
	mu      sync.Mutex
	letters []Letter
	closed  bool
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Put(_ context.Context, l Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	s.letters = append(s.letters, l)
	return nil
}

// Letters returns a copy of the stored letters
func (s *MemorySink) Letters() []Letter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.letters)
}

// Drain removes and returns every stored letter
func (s *MemorySink) Drain() []Letter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.letters
	s.letters = nil
	return out
}

func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.letters)
}

func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
