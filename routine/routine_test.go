package routine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunner_GoNamed(t *testing.T) {
	runner := New(zap.NewNop())

	var counter atomic.Int32
	for i := 0; i < 50; i++ {
		runner.GoNamed(context.Background(), "worker", func(ctx context.Context) {
			counter.Add(1)
		})
	}
	runner.Wait()

	if counter.Load() != 50 {
		t.Errorf("expected 50 executions, got %d", counter.Load())
	}
}

func TestRunner_GoNamed_WithPanic(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	runner := New(zap.New(core))

	var after atomic.Bool
	runner.GoNamed(context.Background(), "panicky", func(ctx context.Context) {
		panic("boom")
	})
	runner.GoNamed(context.Background(), "healthy", func(ctx context.Context) {
		after.Store(true)
	})
	runner.Wait()

	if !after.Load() {
		t.Error("expected goroutine after panic to execute")
	}
	entries := recorded.FilterMessage("goroutine panicked").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 panic log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["routine"] != "panicky" {
		t.Errorf("expected routine name in log, got %v", entries[0].ContextMap())
	}
}

func TestRunner_NilLogger(t *testing.T) {
	runner := New(nil)
	runner.GoNamed(context.Background(), "", func(ctx context.Context) { panic("ignored") })
	runner.Wait()
}

func TestGoNamed_Standalone(t *testing.T) {
	ctx := context.WithValue(context.Background(), "key", "standalone")
	var got string
	var wg sync.WaitGroup
	wg.Add(1)

	GoNamed(ctx, zap.NewNop(), "standalone", func(ctx context.Context) {
		defer wg.Done()
		got = ctx.Value("key").(string)
	})
	wg.Wait()

	if got != "standalone" {
		t.Errorf("expected 'standalone', got %q", got)
	}
}

func TestSafe(t *testing.T) {
	if err := Safe(func() error { return nil }); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	want := errors.New("plain")
	if err := Safe(func() error { return want }); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}

	err := Safe(func() error { panic("exploded") })
	if !errors.Is(err, ErrPanicRecovered) {
		t.Fatalf("expected ErrPanicRecovered, got %v", err)
	}
	if err.Error() != "routine: panic recovered: exploded" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
