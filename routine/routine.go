// Package routine provides safe goroutine execution with panic recovery.
//
// Background loops and user-supplied callbacks (backend adapters, event
// listeners) run through this package so a panic is logged or turned into
// an error instead of crashing the process.
package routine

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/dailyyoga/cachedkv/logger"
	"go.uber.org/zap"
)

// Runner starts tracked goroutines with panic recovery
type Runner interface {
	// GoNamed executes fn in a new goroutine; name is used for logging
	GoNamed(ctx context.Context, name string, fn func(ctx context.Context))

	// Wait blocks until every goroutine started by this runner has returned
	Wait()
}

type defaultRunner struct {
	log logger.Logger
	wg  sync.WaitGroup
}

// New creates a new Runner with the given logger
func New(log logger.Logger) Runner {
	return &defaultRunner{log: logger.OrNop(log)}
}

func (r *defaultRunner) GoNamed(ctx context.Context, name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer recoverWithLog(r.log, name)
		fn(ctx)
	}()
}

func (r *defaultRunner) Wait() {
	r.wg.Wait()
}

// GoNamed executes a named function in an untracked goroutine with panic recovery
func GoNamed(ctx context.Context, log logger.Logger, name string, fn func(ctx context.Context)) {
	go func() {
		defer recoverWithLog(logger.OrNop(log), name)
		fn(ctx)
	}()
}

// Safe calls fn and converts a panic into an error wrapping ErrPanicRecovered
func Safe(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = ErrPanic(rec)
		}
	}()
	return fn()
}

func recoverWithLog(log logger.Logger, name string) {
	if rec := recover(); rec != nil {
		fields := []zap.Field{
			zap.Any("panic", rec),
			zap.String("stack", string(debug.Stack())),
		}
		if name != "" {
			fields = append([]zap.Field{zap.String("routine", name)}, fields...)
		}
		log.Error("goroutine panicked", fields...)
	}
}
